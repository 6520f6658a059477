package core

import (
	"log/slog"

	"invoice-gen/config"
)

// FormulaRule is a parsed formula instruction for one output column. The
// template is expanded by the renderer once the row number is known.
type FormulaRule struct {
	Template string
	InputIDs []string
}

// ParsedMapping is the canonical form of a sheet's mapping rules, built
// once per sheet-processing run and discarded afterwards.
type ParsedMapping struct {
	// StaticValues holds per-column constants applied to every row unless
	// the row already set that column.
	StaticValues map[int]any
	// InitialLabels are the fixed label strings occupying the leading rows
	// of the static label column.
	InitialLabels []string
	// DynamicRules are the per-field data-extraction instructions, keyed by
	// field name.
	DynamicRules map[string]Rule
	// FormulaRules are deferred formula instructions keyed by column index.
	FormulaRules map[int]FormulaRule
	// LabelColIndex is the 1-based index of the static label column, or 0
	// when the sheet has none.
	LabelColIndex int
	// NumStaticLabels is len(InitialLabels).
	NumStaticLabels int
	// StaticHeaderName is the header text above the static label column.
	StaticHeaderName string
}

// ParseMappingRules normalizes a sheet's raw mapping-rule map into its
// canonical form in a single pass.
//
// Two rule dialects are accepted without config migration: legacy flat keys
// (id/key_index/value_key) and bundled keys (column/source_key/source_value).
// Resolution points check both names and prefer the first found. Malformed
// rules never abort parsing; they are logged and skipped, leaving the column
// to auto-mapping or to the fallback policy downstream.
func ParseMappingRules(raw map[string]any, columnIDs map[string]int, idxToHeader map[int]string) *ParsedMapping {
	parsed := &ParsedMapping{
		StaticValues: make(map[int]any),
		DynamicRules: make(map[string]Rule),
		FormulaRules: make(map[int]FormulaRule),
	}

	covered := make(map[string]bool)

	for ruleKey, ruleValue := range raw {
		rule, ok := asRule(ruleValue)
		if !ok {
			continue
		}

		// Nested dialect: the whole data_map object is the set of dynamic
		// rules (used by multi-table sheet configs).
		if ruleKey == "data_map" {
			for field, nested := range rule {
				if nestedRule, ok := asRule(nested); ok {
					parsed.DynamicRules[field] = nestedRule
					covered[nestedRule.TargetID()] = true
				}
			}
			continue
		}

		ruleType := firstString(rule, "type")

		if ruleType == "initial_static_rows" {
			staticColID := firstString(rule, "column_header_id")
			targetIdx := columnIDs[staticColID]
			if targetIdx == 0 {
				slog.Warn("Initial static rows column not found; rule skipped", "column_header_id", staticColID)
				continue
			}
			covered[staticColID] = true
			parsed.StaticHeaderName = idxToHeader[targetIdx]
			parsed.LabelColIndex = targetIdx
			parsed.InitialLabels = stringList(rule["values"])
			parsed.NumStaticLabels = len(parsed.InitialLabels)
			parsed.FormulaRules[targetIdx] = FormulaRule{
				Template: firstString(rule, "formula_template"),
				InputIDs: stringList(rule["inputs"]),
			}
			continue
		}

		targetID := rule.TargetID()
		if targetID != "" {
			covered[targetID] = true
		}
		targetIdx := columnIDs[targetID]

		switch {
		case ruleType == "formula":
			if targetIdx == 0 {
				slog.Warn("Could not find target column for formula rule", "id", targetID)
				continue
			}
			parsed.FormulaRules[targetIdx] = FormulaRule{
				Template: firstString(rule, "formula_template"),
				InputIDs: stringList(rule["inputs"]),
			}

		case hasKey(rule, "static_value"):
			if targetIdx == 0 {
				slog.Warn("Could not find target column for static_value rule", "id", targetID)
				continue
			}
			parsed.StaticValues[targetIdx] = rule["static_value"]

		default:
			// Plain dynamic field rule, keyed by its original field name
			// (the path used by flat aggregation-sheet configs).
			parsed.DynamicRules[ruleKey] = rule
		}
	}

	// Auto-mapping: any layout column not referenced by an explicit rule
	// gets a same-name dynamic rule, so no column is silently unaddressed.
	for colID := range columnIDs {
		if !covered[colID] && colID != config.ColStatic {
			if _, exists := parsed.DynamicRules[colID]; !exists {
				parsed.DynamicRules[colID] = Rule{"column": colID}
			}
		}
	}

	return parsed
}

func asRule(v any) (Rule, bool) {
	switch m := v.(type) {
	case map[string]any:
		return Rule(m), true
	case Rule:
		return m, true
	}
	return nil, false
}

func hasKey(rule Rule, key string) bool {
	_, ok := rule[key]
	return ok
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
