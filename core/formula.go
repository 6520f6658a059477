package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaterializeFormula expands a deferred formula template into a concrete
// spreadsheet formula for one output row. {col_ref_N} placeholders resolve
// to the column letter of the Nth input id; {row} resolves to the row
// number.
func MaterializeFormula(template string, inputIDs []string, columnIDs map[string]int, rowNum int) (string, error) {
	if template == "" {
		return "", fmt.Errorf("empty formula template")
	}

	expanded := strings.ReplaceAll(template, "{row}", strconv.Itoa(rowNum))
	for i, inputID := range inputIDs {
		placeholder := fmt.Sprintf("{col_ref_%d}", i)
		if !strings.Contains(expanded, placeholder) {
			continue
		}
		colIdx, ok := columnIDs[inputID]
		if !ok {
			return "", fmt.Errorf("formula input %q not in column layout", inputID)
		}
		colName, err := excelize.ColumnNumberToName(colIdx)
		if err != nil {
			return "", fmt.Errorf("invalid column index %d for %q: %w", colIdx, inputID, err)
		}
		expanded = strings.ReplaceAll(expanded, placeholder, colName)
	}

	if strings.Contains(expanded, "{col_ref_") {
		return "", fmt.Errorf("formula template %q has unresolved column references", template)
	}
	return expanded, nil
}
