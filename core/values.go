package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Row maps a 1-based output column index to a cell value. Values are
// numbers, strings, or a Formula descriptor expanded by the renderer.
type Row map[int]any

// Formula is a deferred-formula cell value. Template placeholders
// {col_ref_N} reference the Nth input column id and {row} the output row
// number; the renderer resolves both into a real spreadsheet formula.
type Formula struct {
	Template string
	Inputs   []string
}

// Rule is a raw dynamic mapping rule as it appears in the bundle config.
// Both the legacy (id/key_index/value_key) and bundled
// (column/source_key/source_value) key dialects are looked up at use sites.
type Rule map[string]any

// firstString returns the first non-empty string found under the given
// keys, preserving the dialect preference order.
func firstString(rule Rule, keys ...string) string {
	for _, k := range keys {
		if v, ok := rule[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// firstIndex returns the first integer found under the given keys. JSON
// decoding yields float64, YAML yields int; both are accepted.
func firstIndex(rule Rule, keys ...string) (int, bool) {
	for _, k := range keys {
		v, ok := rule[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			return int(n), true
		}
	}
	return 0, false
}

// TargetID resolves the rule's target column identifier, preferring the
// legacy key when both dialects are present.
func (r Rule) TargetID() string {
	return firstString(r, "id", "column")
}

// Table is a column-oriented data source: field name to a parallel list of
// per-row values.
type Table map[string][]any

// DAFAggregation maps an opaque row key to a per-row value map keyed by the
// fixed combined-field names.
type DAFAggregation map[string]map[string]any

// TupleKey is the ordered composite key produced by the aggregation pass,
// e.g. (po, item, unit price, description).
type TupleKey []any

// AggEntry is one aggregated row: a tuple key plus its summed values.
type AggEntry struct {
	Key   TupleKey       `json:"key"`
	Value map[string]any `json:"value"`
}

// Aggregation is a tuple-keyed aggregation source.
type Aggregation []AggEntry

// sorted returns the entries in ascending tuple-key order, leaving the
// receiver untouched. Repeated runs on the same input must emit rows in an
// identical order.
func (a Aggregation) sorted() Aggregation {
	out := make(Aggregation, len(a))
	copy(out, a)
	sort.SliceStable(out, func(i, j int) bool {
		return compareTupleKeys(out[i].Key, out[j].Key) < 0
	})
	return out
}

// compareTupleKeys orders composite keys element-wise. Within an element,
// numbers sort before strings and strings before anything else; mixed-type
// elements never compare equal unless their formatted forms match.
func compareTupleKeys(a, b TupleKey) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := compareKeyElem(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func compareKeyElem(a, b any) int {
	ra, na := keyElemRank(a)
	rb, nb := keyElemRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if ra == 0 { // both numeric
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	sa, sb := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func keyElemRank(v any) (rank int, numeric float64) {
	switch n := v.(type) {
	case int:
		return 0, float64(n)
	case int64:
		return 0, float64(n)
	case float64:
		return 0, n
	case float32:
		return 0, float64(n)
	case decimal.Decimal:
		f, _ := n.Float64()
		return 0, f
	case string:
		return 1, 0
	case nil:
		return 2, 0
	default:
		return 3, 0
	}
}
