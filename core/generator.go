package core

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/xuri/excelize/v2"

	"invoice-gen/config"
)

// Generator drives one invoice generation run: path resolution, per-sheet
// processing through the row preparation engine, cell writing, and the
// metadata side-car. It is stateless across runs; every run loads fresh
// config and data.
type Generator struct {
	TemplateDir string
	ConfigDir   string
	DAFMode     bool
	CustomMode  bool
}

func NewGenerator(templateDir, configDir string, dafMode, customMode bool) *Generator {
	return &Generator{
		TemplateDir: templateDir,
		ConfigDir:   configDir,
		DAFMode:     dafMode,
		CustomMode:  customMode,
	}
}

// Run generates a workbook for an input data file, deriving the config and
// template from the file stem. It returns the output path on success; the
// metadata side-car is written in every case.
func (g *Generator) Run(inputDataPath, outputPath string) (string, error) {
	monitor := NewMonitor(outputPath, map[string]any{
		"input_data_file": inputDataPath,
		"config_dir":      g.ConfigDir,
		"daf_mode":        g.DAFMode,
		"custom_mode":     g.CustomMode,
	})

	paths, err := config.ResolvePaths(inputDataPath, g.TemplateDir, g.ConfigDir)
	if err != nil {
		monitor.Finish(err)
		return "", err
	}
	slog.Info("Resolved generation inputs", "config", paths.Config, "template", paths.Template)

	cfg, err := config.Load(paths.Config)
	if err != nil {
		monitor.Finish(err)
		return "", err
	}
	if err := config.Validate(cfg); err != nil {
		err = fmt.Errorf("invalid bundle config %s: %w", paths.Config, err)
		monitor.Finish(err)
		return "", err
	}

	data, err := LoadInvoiceData(paths.Data)
	if err != nil {
		monitor.Finish(err)
		return "", err
	}

	if err := g.generate(data, cfg, paths.Template, outputPath, monitor); err != nil {
		monitor.Finish(err)
		return "", err
	}
	monitor.Finish(nil)
	return outputPath, nil
}

// GenerateWith generates a workbook from an already-loaded payload and
// bundle, with an explicit template. Used by the bulk pipeline, which
// injects one payload per source row.
func (g *Generator) GenerateWith(data *InvoiceData, cfg *config.BundleConfig, templatePath, outputPath string) error {
	monitor := NewMonitor(outputPath, map[string]any{
		"template":    templatePath,
		"daf_mode":    g.DAFMode,
		"custom_mode": g.CustomMode,
	})
	err := g.generate(data, cfg, templatePath, outputPath, monitor)
	monitor.Finish(err)
	return err
}

func (g *Generator) generate(data *InvoiceData, cfg *config.BundleConfig, templatePath, outputPath string, monitor *Monitor) (err error) {
	monitor.SetInputMetadata(data.Metadata)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := OpenExcelFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to open template: %w", err)
	}
	defer func(f ExcelFile) {
		if closeErr := f.Close(); closeErr != nil {
			if err == nil {
				err = fmt.Errorf("failed to close workbook: %w", closeErr)
			} else {
				err = fmt.Errorf("%w; (cleanup error: %v)", err, closeErr)
			}
		}
	}(f)

	// Whatever was already written is worth keeping when a sheet blows up.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sheet processing panicked: %v", r)
			if saveErr := f.SaveAs(outputPath); saveErr != nil {
				slog.Error("Emergency save failed", "error", saveErr)
			} else {
				slog.Warn("Emergency save written after failure", "path", outputPath)
			}
		}
	}()

	sheetList := f.GetSheetList()
	var sheetsToProcess []string
	for _, name := range cfg.SheetsToProcess {
		if slices.Contains(sheetList, name) {
			sheetsToProcess = append(sheetsToProcess, name)
		} else {
			slog.Warn("Configured sheet not present in template", "sheet", name)
		}
	}
	if len(sheetsToProcess) == 0 {
		return fmt.Errorf("no valid sheets found to process in configuration")
	}

	grandTotalPallets := data.GrandTotalPallets()

	for _, sheetName := range sheetsToProcess {
		slog.Info("Processing sheet", "sheet", sheetName)

		sheetCfg, _ := cfg.Sheet(sheetName)
		if sheetCfg.DataSource == "" {
			slog.Warn("Skipping sheet: no data source configured", "sheet", sheetName)
			continue
		}

		if err := g.processSheet(f, sheetName, &sheetCfg, data, grandTotalPallets); err != nil {
			monitor.SheetFailed(sheetName, err)
			continue
		}
		monitor.SheetProcessed(sheetName)
	}

	// Reset view to A1 on all sheets and activate the first one.
	for _, sheet := range sheetList {
		_ = f.SetSelection(sheet, "A1")
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save output: %w", err)
	}
	return nil
}

func (g *Generator) processSheet(f ExcelFile, sheetName string, sheetCfg *config.SheetConfig, data *InvoiceData, grandTotalPallets int) error {
	columnIDs := sheetCfg.ColumnIDMap()
	idxToHeader := sheetCfg.HeaderMap()
	parsed := ParseMappingRules(sheetCfg.MappingRules, columnIDs, idxToHeader)

	startRow := sheetCfg.StartRow
	if startRow == 0 {
		startRow = 2 // row 1 is the header in the stock templates
	}

	sourceType := sheetCfg.DataSource
	if g.CustomMode && sourceType == config.SourceAggregation {
		sourceType = config.SourceCustomAggregation
	}

	switch sourceType {
	case config.SourceProcessedTables, config.SourceProcessedTablesMulti:
		return g.processTableSheet(f, sheetName, sourceType, startRow, parsed, columnIDs, idxToHeader, data, grandTotalPallets)
	default:
		return g.processSingleSheet(f, sheetName, sourceType, startRow, parsed, columnIDs, idxToHeader, data)
	}
}

// processSingleSheet handles the aggregation-shaped sources, which carry
// exactly one logical table per sheet.
func (g *Generator) processSingleSheet(f ExcelFile, sheetName, sourceType string, startRow int, parsed *ParsedMapping, columnIDs map[string]int, idxToHeader map[int]string, data *InvoiceData) error {
	source := data.SourceFor(sourceType)
	res := PrepareDataRows(sourceType, source, parsed.DynamicRules, columnIDs, idxToHeader,
		columnIDs["col_desc"], parsed.NumStaticLabels, parsed.StaticValues, g.DAFMode)

	if res.SourceRowCount == 0 && len(res.Rows) == 0 {
		slog.Warn("No rows produced for sheet", "sheet", sheetName, "data_source_type", sourceType)
	}

	_, err := g.writeRows(f, sheetName, startRow, res.Rows, parsed, columnIDs)
	return err
}

// processTableSheet stacks every processed table onto the sheet in
// ascending table-id order, each followed by a totals row.
func (g *Generator) processTableSheet(f ExcelFile, sheetName, sourceType string, startRow int, parsed *ParsedMapping, columnIDs map[string]int, idxToHeader map[int]string, data *InvoiceData, grandTotalPallets int) error {
	next := startRow

	for _, tableID := range data.TableIDs() {
		table := data.ProcessedTables[tableID]
		res := PrepareDataRows(sourceType, table, parsed.DynamicRules, columnIDs, idxToHeader,
			columnIDs["col_desc"], parsed.NumStaticLabels, parsed.StaticValues, g.DAFMode)

		written, err := g.writeRows(f, sheetName, next, res.Rows, parsed, columnIDs)
		if err != nil {
			return fmt.Errorf("table %s: %w", tableID, err)
		}

		if palletIdx := columnIDs["col_pallet_count"]; palletIdx != 0 {
			for i, count := range res.PalletCounts {
				cell, err := excelize.CoordinatesToCellName(palletIdx, next+i)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(sheetName, cell, count); err != nil {
					return fmt.Errorf("writing pallet count: %w", err)
				}
			}
		}
		next += written

		wrote, err := g.writeTotalsRow(f, sheetName, next, table, columnIDs)
		if err != nil {
			return fmt.Errorf("table %s totals: %w", tableID, err)
		}
		if wrote {
			next++
		}
	}

	slog.Debug("Finished table sheet", "sheet", sheetName, "grand_total_pallets", grandTotalPallets)
	return nil
}

// writeRows renders prepared rows into cells starting at startRow.
// Formula descriptors and config-declared formula columns are expanded
// against the current row number; static labels occupy the leading rows of
// the label column.
func (g *Generator) writeRows(f ExcelFile, sheetName string, startRow int, rows []Row, parsed *ParsedMapping, columnIDs map[string]int) (int, error) {
	formulaCols := make([]int, 0, len(parsed.FormulaRules))
	for colIdx := range parsed.FormulaRules {
		formulaCols = append(formulaCols, colIdx)
	}
	sort.Ints(formulaCols)

	for i, row := range rows {
		rowNum := startRow + i

		if parsed.LabelColIndex != 0 && i < len(parsed.InitialLabels) {
			cell, err := excelize.CoordinatesToCellName(parsed.LabelColIndex, rowNum)
			if err != nil {
				return 0, err
			}
			if err := f.SetCellValue(sheetName, cell, parsed.InitialLabels[i]); err != nil {
				return 0, fmt.Errorf("writing static label: %w", err)
			}
		}

		colIdxs := make([]int, 0, len(row))
		for colIdx := range row {
			colIdxs = append(colIdxs, colIdx)
		}
		sort.Ints(colIdxs)

		for _, colIdx := range colIdxs {
			val := row[colIdx]
			if val == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx, rowNum)
			if err != nil {
				return 0, err
			}

			if formula, ok := val.(Formula); ok {
				expanded, err := MaterializeFormula(formula.Template, formula.Inputs, columnIDs, rowNum)
				if err != nil {
					slog.Warn("Skipping unexpandable formula", "sheet", sheetName, "cell", cell, "error", err)
					continue
				}
				if err := f.SetCellFormula(sheetName, cell, expanded); err != nil {
					return 0, fmt.Errorf("writing formula at %s: %w", cell, err)
				}
				continue
			}

			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return 0, fmt.Errorf("writing cell %s: %w", cell, err)
			}
		}

		// Config-declared formula columns apply to every row that did not
		// already fill the cell; label rows keep their literal labels.
		for _, colIdx := range formulaCols {
			if _, ok := row[colIdx]; ok {
				continue
			}
			if colIdx == parsed.LabelColIndex && i < len(parsed.InitialLabels) {
				continue
			}
			rule := parsed.FormulaRules[colIdx]
			expanded, err := MaterializeFormula(rule.Template, rule.InputIDs, columnIDs, rowNum)
			if err != nil {
				slog.Warn("Skipping unexpandable formula rule", "sheet", sheetName, "column", colIdx, "error", err)
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx, rowNum)
			if err != nil {
				return 0, err
			}
			if err := f.SetCellFormula(sheetName, cell, expanded); err != nil {
				return 0, fmt.Errorf("writing formula at %s: %w", cell, err)
			}
		}
	}

	return len(rows), nil
}

// writeTotalsRow writes the per-table footer sums under the quantity and
// amount columns. Reports whether anything was written.
func (g *Generator) writeTotalsRow(f ExcelFile, sheetName string, rowNum int, table Table, columnIDs map[string]int) (bool, error) {
	totals := table.Totals()
	cells := []struct {
		colID string
		value float64
	}{
		{"col_qty_pcs", totals.Pieces.InexactFloat64()},
		{"col_qty_sf", totals.Sqft.InexactFloat64()},
		{"col_amount", totals.Amount.InexactFloat64()},
	}

	wrote := false
	for _, c := range cells {
		colIdx := columnIDs[c.colID]
		if colIdx == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(colIdx, rowNum)
		if err != nil {
			return wrote, err
		}
		if err := f.SetCellValue(sheetName, cell, c.value); err != nil {
			return wrote, fmt.Errorf("writing total at %s: %w", cell, err)
		}
		wrote = true
	}

	if wrote {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return wrote, err
		}
		if _, taken := invertedLookup(columnIDs, 1); !taken {
			if err := f.SetCellValue(sheetName, cell, "TOTAL:"); err != nil {
				return wrote, fmt.Errorf("writing totals label: %w", err)
			}
		}
	}
	return wrote, nil
}

func invertedLookup(columnIDs map[string]int, idx int) (string, bool) {
	for id, i := range columnIDs {
		if i == idx && numericColumnIDs[id] {
			return id, true
		}
	}
	return "", false
}
