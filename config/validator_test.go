package config

import "testing"

func validBundle() *BundleConfig {
	return &BundleConfig{
		SheetsToProcess: []string{"Invoice"},
		Sheets: map[string]SheetConfig{
			"Invoice": {
				DataSource: SourceProcessedTables,
				Columns: []ColumnSpec{
					{ID: "col_po"},
					{ID: "col_amount"},
				},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(validBundle()); err != nil {
		t.Fatalf("valid bundle rejected: %v", err)
	}
}

func TestValidate_NoSheetsToProcess(t *testing.T) {
	cfg := validBundle()
	cfg.SheetsToProcess = nil
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty sheets_to_process")
	}
}

func TestValidate_UnconfiguredSheet(t *testing.T) {
	cfg := validBundle()
	cfg.SheetsToProcess = append(cfg.SheetsToProcess, "Ghost")
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unconfigured listed sheet")
	}
}

func TestValidate_UnknownDataSourceIsAccepted(t *testing.T) {
	// Unknown source types are only warned about; the engine skips them
	// at generation time.
	cfg := validBundle()
	sheet := cfg.Sheets["Invoice"]
	sheet.DataSource = "future_source"
	cfg.Sheets["Invoice"] = sheet
	if err := Validate(cfg); err != nil {
		t.Fatalf("unknown data source should not be rejected: %v", err)
	}
}

func TestValidate_ColumnProblems(t *testing.T) {
	tests := []struct {
		name    string
		columns []ColumnSpec
	}{
		{"Empty ID", []ColumnSpec{{ID: ""}}},
		{"Duplicate ID", []ColumnSpec{{ID: "col_po"}, {ID: "col_po"}}},
		{"Negative Index", []ColumnSpec{{ID: "col_po", Index: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBundle()
			sheet := cfg.Sheets["Invoice"]
			sheet.Columns = tt.columns
			cfg.Sheets["Invoice"] = sheet
			if err := Validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
