package config

import (
	"fmt"
	"log/slog"
	"slices"
)

// Validate performs structural checks on a bundle config. Unknown
// data-source types are logged, not rejected: the engine skips them at
// generation time and a bundle may carry sheets for a newer engine.
func Validate(cfg *BundleConfig) error {
	if len(cfg.SheetsToProcess) == 0 {
		return fmt.Errorf("bundle config must list at least one sheet in sheets_to_process")
	}

	for _, name := range cfg.SheetsToProcess {
		sheet, ok := cfg.Sheets[name]
		if !ok {
			return fmt.Errorf("sheet %q listed in sheets_to_process but not configured", name)
		}
		if err := validateSheet(name, &sheet); err != nil {
			return err
		}
	}
	return nil
}

func validateSheet(name string, sheet *SheetConfig) error {
	if sheet.DataSource != "" && !slices.Contains(KnownSourceTypes, sheet.DataSource) {
		slog.Warn("Sheet declares unrecognized data source type; it will be skipped at generation time",
			"sheet", name, "data_source", sheet.DataSource)
	}

	seen := make(map[string]bool, len(sheet.Columns))
	for _, col := range sheet.Columns {
		if col.ID == "" {
			return fmt.Errorf("sheet %q has a column with an empty id", name)
		}
		if seen[col.ID] {
			return fmt.Errorf("sheet %q has duplicate column id %q", name, col.ID)
		}
		seen[col.ID] = true
		if col.Index < 0 {
			return fmt.Errorf("sheet %q column %q has negative index", name, col.ID)
		}
	}
	return nil
}
