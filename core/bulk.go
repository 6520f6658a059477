package core

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"invoice-gen/config"
)

// BulkGenerator turns each fetched source record into its own workbook.
// Rows are processed sequentially; a failing row is recorded and skipped so
// one bad record does not sink the batch.
type BulkGenerator struct {
	Generator *Generator
	Fetcher   RowFetcher

	// FilenameKey names the record field used for output filenames.
	// Records missing it fall back to a positional name.
	FilenameKey string
}

// BulkResult reports the partial-failure outcome of a batch.
type BulkResult struct {
	OutputPaths []string
	Errors      []error
}

func NewBulkGenerator(gen *Generator, fetcher RowFetcher, filenameKey string) *BulkGenerator {
	return &BulkGenerator{
		Generator:   gen,
		Fetcher:     fetcher,
		FilenameKey: filenameKey,
	}
}

// GenerateAll fetches records from sourceName and generates one workbook
// per record into outputDir. Dynamic date expressions in params are
// resolved before fetching.
func (b *BulkGenerator) GenerateAll(sourceName string, params map[string]string, cfg *config.BundleConfig, templatePath, outputDir string) (*BulkResult, error) {
	resolved, err := ResolveParams(params, time.Now())
	if err != nil {
		return nil, err
	}

	records, err := b.Fetcher.Fetch(sourceName, resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records from %s: %w", sourceName, err)
	}
	if len(records) == 0 {
		slog.Warn("No records fetched for bulk generation", "source", sourceName)
		return &BulkResult{}, nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkResult{}
	for i, record := range records {
		outputPath := filepath.Join(outputDir, b.outputName(record, i))

		data := ColumnizeRow(record)
		if err := b.Generator.GenerateWith(data, cfg, templatePath, outputPath); err != nil {
			slog.Error("Bulk record failed", "source", sourceName, "record", i, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		result.OutputPaths = append(result.OutputPaths, outputPath)
	}

	slog.Info("Bulk generation finished",
		"source", sourceName,
		"generated", len(result.OutputPaths),
		"failed", len(result.Errors))
	return result, nil
}

// outputName derives a workbook filename from the record's filename field,
// falling back to a positional name when the field is absent or empty.
func (b *BulkGenerator) outputName(record map[string]any, index int) string {
	key := b.FilenameKey
	if key == "" {
		key = "invoice_no"
	}
	if raw, ok := record[key]; ok {
		name := sanitizeFilename(fmt.Sprintf("%v", raw))
		if name != "" {
			return name + ".xlsx"
		}
	}
	return fmt.Sprintf("Invoice_%d.xlsx", index+1)
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return strings.Trim(sb.String(), "._")
}

// ZipArchive bundles generated workbooks into a single zip file.
func ZipArchive(paths []string, zipPath string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no files to archive")
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", zipPath, err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	for _, path := range paths {
		if err := addToArchive(w, path); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	slog.Info("Archive written", "path", zipPath, "files", len(paths))
	return nil
}

func addToArchive(w *zip.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for archiving: %w", path, err)
	}
	defer file.Close()

	entry, err := w.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", path, err)
	}
	if _, err := io.Copy(entry, file); err != nil {
		return fmt.Errorf("failed to write %s into archive: %w", path, err)
	}
	return nil
}
