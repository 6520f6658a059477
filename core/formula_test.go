package core

import (
	"strings"
	"testing"
)

func TestMaterializeFormula(t *testing.T) {
	columnIDs := map[string]int{
		"col_qty_sf":     4,
		"col_unit_price": 5,
		"col_amount":     27, // spills past Z to AA
	}

	tests := []struct {
		name     string
		template string
		inputs   []string
		rowNum   int
		want     string
		wantErr  bool
	}{
		{
			name:     "Multiplication",
			template: "{col_ref_1}{row}*{col_ref_0}{row}",
			inputs:   []string{"col_qty_sf", "col_unit_price"},
			rowNum:   7,
			want:     "E7*D7",
		},
		{
			name:     "Division",
			template: "{col_ref_1}{row}/{col_ref_0}{row}",
			inputs:   []string{"col_qty_sf", "col_amount"},
			rowNum:   12,
			want:     "AA12/D12",
		},
		{
			name:     "Repeated Placeholder",
			template: "SUM({col_ref_0}2:{col_ref_0}{row})",
			inputs:   []string{"col_qty_sf"},
			rowNum:   9,
			want:     "SUM(D2:D9)",
		},
		{
			name:     "Unused Extra Input",
			template: "{col_ref_0}{row}",
			inputs:   []string{"col_qty_sf", "col_unit_price"},
			rowNum:   3,
			want:     "D3",
		},
		{
			name:     "Empty Template",
			template: "",
			inputs:   []string{"col_qty_sf"},
			rowNum:   2,
			wantErr:  true,
		},
		{
			name:     "Unknown Input Column",
			template: "{col_ref_0}{row}",
			inputs:   []string{"col_missing"},
			rowNum:   2,
			wantErr:  true,
		},
		{
			name:     "Unresolved Reference",
			template: "{col_ref_0}{row}+{col_ref_5}{row}",
			inputs:   []string{"col_qty_sf"},
			rowNum:   2,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MaterializeFormula(tt.template, tt.inputs, columnIDs, tt.rowNum)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if tt.wantErr && got != "" {
				t.Errorf("error case returned %q, want empty", got)
			}
			if !tt.wantErr && strings.Contains(got, "{") {
				t.Errorf("unexpanded placeholder in %q", got)
			}
		})
	}
}
