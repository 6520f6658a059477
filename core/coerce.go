package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// numericColumnIDs are the column identifiers whose source values are
// normalized numerically before landing in a cell.
var numericColumnIDs = map[string]bool{
	"col_qty_pcs":    true,
	"col_qty_sf":     true,
	"col_unit_price": true,
	"col_amount":     true,
	"col_net":        true,
	"col_gross":      true,
	"col_cbm":        true,
}

// ToNumeric attempts to normalize a value to a number.
//
// Numbers pass through unchanged. Strings are stripped of thousands
// separators and surrounding whitespace; an empty remainder yields nil
// (absent, deliberately not zero), otherwise the value parses as int when
// it has no decimal point and float otherwise. A string that does not
// parse is returned unchanged. Decimal inputs convert to float64.
func ToNumeric(value any) any {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return value
	case decimal.Decimal:
		f, _ := v.Float64()
		return f
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if cleaned == "" {
			return nil
		}
		if strings.Contains(cleaned, ".") {
			if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
				return f
			}
			return value
		}
		if i, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
			return int(i)
		}
		return value
	}
	return value
}

// applyFallback writes the substitute value for an empty field into the
// row, honoring the exact precedence order callers depend on:
//
//  1. mode-specific key (fallback_on_DAF in alternate mode, fallback_on_none
//     otherwise),
//  2. the mode-agnostic fallback key,
//  3. fallback_on_none again as the universal last resort.
//
// fallback_on_none is deliberately consulted twice; alternate-mode configs
// without a DAF-specific value fall through to it. When no fallback key is
// defined at all, the cell is left absent rather than set to a nil
// placeholder.
func applyFallback(row Row, targetColIdx int, rule Rule, dafMode bool) {
	if dafMode {
		if v, ok := rule["fallback_on_DAF"]; ok {
			row[targetColIdx] = v
			return
		}
	} else {
		if v, ok := rule["fallback_on_none"]; ok {
			row[targetColIdx] = v
			return
		}
	}

	if v, ok := rule["fallback"]; ok {
		row[targetColIdx] = v
		return
	}

	if v, ok := rule["fallback_on_none"]; ok {
		row[targetColIdx] = v
	}
}

// isEmptyValue reports whether a source value counts as missing for the
// purpose of fallback substitution: nil, or a blank/whitespace-only string.
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// hasFallback reports whether a rule defines any of the three fallback keys.
func hasFallback(rule Rule) bool {
	for _, key := range []string{"fallback_on_none", "fallback_on_DAF", "fallback"} {
		if _, ok := rule[key]; ok {
			return true
		}
	}
	return false
}
