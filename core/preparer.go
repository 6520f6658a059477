package core

import (
	"log/slog"
	"sort"
	"strings"

	"invoice-gen/config"
)

// PrepareResult is the output of one row-preparation run.
type PrepareResult struct {
	// Rows are the ordered output rows, column index to cell value.
	Rows []Row
	// PalletCounts is the per-row pallet metadata for table sources, padded
	// with zeros to the row count.
	PalletCounts []int
	// DynamicDescUsed reports whether any description cell was populated
	// from source data rather than a fallback.
	DynamicDescUsed bool
	// SourceRowCount is the number of rows the data source itself carried.
	SourceRowCount int
}

// dafFieldMap pairs each DAF-mode output column with the fixed field name
// the aggregation pass emits for it.
var dafFieldMap = []struct {
	colID   string
	dataKey string
}{
	{"col_po", "combined_po"},
	{"col_item", "combined_item"},
	{"col_desc", "combined_description"},
	{"col_qty_sf", "total_sqft"},
	{"col_amount", "total_amount"},
}

// unitPriceFormula divides the amount column by the area column on the
// current row; injected for the price column in both aggregation modes
// that carry pre-summed amounts.
var unitPriceFormula = Formula{
	Template: "{col_ref_1}{row}/{col_ref_0}{row}",
	Inputs:   []string{"col_qty_sf", "col_amount"},
}

// amountFormula multiplies area by unit price on the current row; injected
// for the amount column of plain aggregation sheets.
var amountFormula = Formula{
	Template: "{col_ref_1}{row}*{col_ref_0}{row}",
	Inputs:   []string{"col_qty_sf", "col_unit_price"},
}

// PrepareDataRows turns a data source of the declared shape into the
// ordered sequence of output rows, resolving every dynamic mapping rule,
// substituting fallbacks for empty fields, and injecting the synthetic
// price/amount formulas.
//
// Unsupported source types yield an empty result so that unconfigured
// sheets can be skipped upstream; a diagnostic is logged since the silence
// can also mask a misconfigured bundle.
func PrepareDataRows(
	sourceType string,
	source any,
	rules map[string]Rule,
	columnIDs map[string]int,
	idxToHeader map[int]string,
	descColIdx int,
	numStaticLabels int,
	staticValues map[int]any,
	dafMode bool,
) PrepareResult {
	validateDescriptionFallback(rules, idxToHeader[descColIdx])

	var result PrepareResult

	switch sourceType {
	case config.SourceDAFAggregation:
		data, _ := source.(DAFAggregation)
		result = prepareDAFRows(data, rules, columnIDs, dafMode)

	case config.SourceCustomAggregation:
		data, _ := source.(Aggregation)
		result = prepareCustomAggregationRows(data, rules, columnIDs, dafMode)

	case config.SourceAggregation:
		data, _ := source.(Aggregation)
		result = prepareAggregationRows(data, rules, columnIDs, dafMode)

	case config.SourceProcessedTables, config.SourceProcessedTablesMulti:
		data, _ := source.(Table)
		result = prepareTableRows(data, rules, columnIDs, dafMode)

	default:
		slog.Warn("Unsupported data source type; producing no rows", "data_source_type", sourceType)
	}

	// Static constants fill any column the row did not set itself.
	if len(staticValues) > 0 {
		for _, row := range result.Rows {
			for colIdx, staticVal := range staticValues {
				if _, ok := row[colIdx]; !ok {
					row[colIdx] = staticVal
				}
			}
		}
	}

	// The label column may carry more entries than there are data rows;
	// pad so every label row has a (possibly empty) data row behind it.
	for len(result.Rows) < numStaticLabels {
		result.Rows = append(result.Rows, Row{})
	}

	return result
}

// validateDescriptionFallback is a diagnostic pre-flight only: a
// description rule without any fallback silently produces blank cells when
// source data is missing, so it is flagged loudly but never aborts.
func validateDescriptionFallback(rules map[string]Rule, descHeader string) {
	for _, field := range sortedFieldNames(rules) {
		if !strings.Contains(strings.ToLower(field), "desc") {
			continue
		}
		if !hasFallback(rules[field]) {
			slog.Error("Description field is missing fallback configuration; missing source data will leave description cells blank",
				"field", field, "column_header", descHeader, "rule", rules[field])
		}
		return
	}
	slog.Warn("No description field found in dynamic mapping rules", "column_header", descHeader)
}

func prepareDAFRows(data DAFAggregation, rules map[string]Rule, columnIDs map[string]int, dafMode bool) PrepareResult {
	result := PrepareResult{SourceRowCount: len(data)}
	priceColIdx := columnIDs["col_unit_price"]

	rowKeys := make([]string, 0, len(data))
	for k := range data {
		rowKeys = append(rowKeys, k)
	}
	sort.Strings(rowKeys)

	for _, rowKey := range rowKeys {
		values := data[rowKey]
		row := Row{}
		for _, field := range dafFieldMap {
			targetIdx := columnIDs[field.colID]
			if targetIdx == 0 {
				continue
			}

			val := values[field.dataKey]
			if !isEmptyValue(val) {
				row[targetIdx] = ToNumeric(val)
				if field.colID == "col_desc" {
					result.DynamicDescUsed = true
				}
			} else {
				applyFallback(row, targetIdx, ruleForColumnID(rules, field.colID), dafMode)
			}
		}

		// The price column is always computed from amount and area,
		// overriding any configured mapping for it.
		if priceColIdx != 0 {
			row[priceColIdx] = unitPriceFormula
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}

func prepareCustomAggregationRows(data Aggregation, rules map[string]Rule, columnIDs map[string]int, dafMode bool) PrepareResult {
	result := PrepareResult{SourceRowCount: len(data)}
	priceColIdx := columnIDs["col_unit_price"]
	descColIdx := columnIDs["col_desc"]

	for _, entry := range data.sorted() {
		if len(entry.Key) < 4 {
			continue
		}

		row := Row{}
		// PO, item and the pre-summed quantities bypass the generic rule
		// lookup; this shape carries them directly.
		setIfMapped(row, columnIDs["col_po"], entry.Key[0])
		setIfMapped(row, columnIDs["col_item"], entry.Key[1])
		setIfMapped(row, columnIDs["col_qty_sf"], ToNumeric(entry.Value["sqft_sum"]))
		setIfMapped(row, columnIDs["col_amount"], ToNumeric(entry.Value["amount_sum"]))

		if descColIdx != 0 {
			if desc := entry.Key[3]; !isEmptyValue(desc) {
				row[descColIdx] = desc
				result.DynamicDescUsed = true
			}
		}

		// Every other mapped column has no direct source value in this
		// shape and resolves through the fallback policy alone.
		for _, field := range sortedFieldNames(rules) {
			rule := rules[field]
			targetIdx := columnIDs[rule.TargetID()]
			if targetIdx == 0 {
				continue
			}
			if _, ok := row[targetIdx]; ok {
				continue
			}
			applyFallback(row, targetIdx, rule, dafMode)
		}

		if priceColIdx != 0 {
			row[priceColIdx] = unitPriceFormula
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}

func prepareAggregationRows(data Aggregation, rules map[string]Rule, columnIDs map[string]int, dafMode bool) PrepareResult {
	result := PrepareResult{SourceRowCount: len(data)}
	amountColIdx := columnIDs["col_amount"]

	for _, entry := range data.sorted() {
		row := Row{}
		for _, field := range sortedFieldNames(rules) {
			rule := rules[field]
			targetID := rule.TargetID()
			targetIdx := columnIDs[targetID]
			if targetIdx == 0 {
				continue
			}

			// A value comes from the key tuple by position, or from the
			// value map by name; both rule dialects are honored.
			var val any
			if keyIdx, ok := firstIndex(rule, "key_index", "source_key"); ok && keyIdx >= 0 && keyIdx < len(entry.Key) {
				val = entry.Key[keyIdx]
			} else if valKey := firstString(rule, "value_key", "source_value"); valKey != "" {
				val = entry.Value[valKey]
			}

			if isEmptyValue(val) {
				applyFallback(row, targetIdx, rule, dafMode)
				continue
			}
			if numericColumnIDs[targetID] {
				val = ToNumeric(val)
			}
			row[targetIdx] = val
			if targetID == "col_desc" {
				result.DynamicDescUsed = true
			}
		}

		// Amount is recomputed from area and unit price on every row.
		if amountColIdx != 0 {
			row[amountColIdx] = amountFormula
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}

func prepareTableRows(data Table, rules map[string]Rule, columnIDs map[string]int, dafMode bool) PrepareResult {
	var result PrepareResult

	maxLen := 0
	for _, list := range data {
		if len(list) > maxLen {
			maxLen = len(list)
		}
	}
	result.SourceRowCount = maxLen
	result.PalletCounts = palletCounts(data, maxLen)

	for i := 0; i < maxLen; i++ {
		row := Row{}
		for _, field := range sortedFieldNames(rules) {
			rule := rules[field]
			targetID := rule.TargetID()
			targetIdx := columnIDs[targetID]
			if targetIdx == 0 {
				continue
			}

			// Source lists are keyed strictly by column identifier, never
			// by the raw field name a legacy payload might use.
			var val any
			if list := data[targetID]; i < len(list) {
				val = list[i]
			}

			if isEmptyValue(val) {
				applyFallback(row, targetIdx, rule, dafMode)
				continue
			}
			if numericColumnIDs[targetID] {
				val = ToNumeric(val)
			}
			row[targetIdx] = val
			if targetID == "col_desc" {
				result.DynamicDescUsed = true
			}
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}

// palletCounts extracts the auxiliary pallet list, truncated or
// zero-padded to the row count. Both the bare and col_-prefixed field
// names are accepted.
func palletCounts(data Table, rowCount int) []int {
	if rowCount == 0 {
		return nil
	}
	raw := data["pallet_count"]
	if raw == nil {
		raw = data["col_pallet_count"]
	}

	counts := make([]int, rowCount)
	for i := 0; i < rowCount && i < len(raw); i++ {
		counts[i] = asInt(raw[i])
	}
	return counts
}

func asInt(v any) int {
	switch n := ToNumeric(v).(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// ruleForColumnID finds the dynamic rule targeting a column identifier.
func ruleForColumnID(rules map[string]Rule, colID string) Rule {
	for _, field := range sortedFieldNames(rules) {
		if rules[field].TargetID() == colID {
			return rules[field]
		}
	}
	return Rule{}
}

func setIfMapped(row Row, colIdx int, val any) {
	if colIdx != 0 {
		row[colIdx] = val
	}
}

// sortedFieldNames fixes the rule iteration order so repeated runs on the
// same input produce identical rows and diagnostics.
func sortedFieldNames(rules map[string]Rule) []string {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
