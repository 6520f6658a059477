package core

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"invoice-gen/config"
)

type stubRowFetcher struct {
	records []map[string]any
	err     error

	gotSource string
	gotParams map[string]string
}

func (s *stubRowFetcher) Fetch(sourceName string, params map[string]string) ([]map[string]any, error) {
	s.gotSource = sourceName
	s.gotParams = params
	return s.records, s.err
}

func bulkTestBundle() *config.BundleConfig {
	return &config.BundleConfig{
		SheetsToProcess: []string{"Invoice"},
		Sheets: map[string]config.SheetConfig{
			"Invoice": {
				DataSource: config.SourceProcessedTables,
				StartRow:   2,
				Columns: []config.ColumnSpec{
					{ID: "col_po"},
					{ID: "col_amount"},
				},
			},
		},
	}
}

func TestBulkGenerator_GenerateAll(t *testing.T) {
	tmpDir := t.TempDir()
	templatePath := filepath.Join(tmpDir, "template.xlsx")
	writeTestTemplate(t, templatePath, "Invoice")
	outputDir := filepath.Join(tmpDir, "out")

	fetcher := &stubRowFetcher{
		records: []map[string]any{
			{"invoice_no": "INV-2024/001", "col_po": "PO-1", "col_amount": "100"},
			{"col_po": "PO-2", "col_amount": "200"}, // no filename field
		},
	}

	gen := NewGenerator(tmpDir, tmpDir, false, false)
	bulk := NewBulkGenerator(gen, fetcher, "")

	result, err := bulk.GenerateAll("invoices", map[string]string{"customer": "ACME"}, bulkTestBundle(), templatePath, outputDir)
	if err != nil {
		t.Fatalf("GenerateAll error: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v", result.Errors)
	}
	if fetcher.gotSource != "invoices" || fetcher.gotParams["customer"] != "ACME" {
		t.Errorf("fetch called with %q / %v", fetcher.gotSource, fetcher.gotParams)
	}

	// The slash in the invoice number is sanitized; the second record gets a
	// positional name.
	wantPaths := []string{
		filepath.Join(outputDir, "INV-2024_001.xlsx"),
		filepath.Join(outputDir, "Invoice_2.xlsx"),
	}
	if len(result.OutputPaths) != 2 {
		t.Fatalf("output paths = %v", result.OutputPaths)
	}
	for i, want := range wantPaths {
		if result.OutputPaths[i] != want {
			t.Errorf("path %d = %q, want %q", i, result.OutputPaths[i], want)
		}
		if _, err := os.Stat(want); err != nil {
			t.Errorf("missing output %s: %v", want, err)
		}
	}

	// Each record became a one-row workbook.
	wb, err := excelize.OpenFile(wantPaths[0])
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer wb.Close()
	if val, _ := wb.GetCellValue("Invoice", "A2"); val != "PO-1" {
		t.Errorf("A2 = %q, want PO-1", val)
	}
}

func TestBulkGenerator_FetchError(t *testing.T) {
	fetcher := &stubRowFetcher{err: errors.New("connection refused")}
	gen := NewGenerator("", "", false, false)
	bulk := NewBulkGenerator(gen, fetcher, "")

	if _, err := bulk.GenerateAll("invoices", nil, bulkTestBundle(), "x.xlsx", t.TempDir()); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
}

func TestBulkGenerator_NoRecords(t *testing.T) {
	fetcher := &stubRowFetcher{}
	gen := NewGenerator("", "", false, false)
	bulk := NewBulkGenerator(gen, fetcher, "")

	result, err := bulk.GenerateAll("invoices", nil, bulkTestBundle(), "x.xlsx", t.TempDir())
	if err != nil {
		t.Fatalf("GenerateAll error: %v", err)
	}
	if len(result.OutputPaths) != 0 || len(result.Errors) != 0 {
		t.Errorf("empty fetch should produce an empty result, got %+v", result)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"INV-2024/001", "INV-2024_001"},
		{"  spaced name  ", "spaced_name"},
		{"ok_name-1.v2", "ok_name-1.v2"},
		{"///", ""},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestZipArchive(t *testing.T) {
	tmpDir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.xlsx", "b.xlsx"} {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte("content-"+name), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, p)
	}

	zipPath := filepath.Join(tmpDir, "bundle.zip")
	if err := ZipArchive(paths, zipPath); err != nil {
		t.Fatalf("ZipArchive error: %v", err)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer r.Close()
	if len(r.File) != 2 {
		t.Fatalf("archive entries = %d, want 2", len(r.File))
	}
	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	if !names["a.xlsx"] || !names["b.xlsx"] {
		t.Errorf("archive names = %v", names)
	}
}

func TestZipArchive_Empty(t *testing.T) {
	if err := ZipArchive(nil, filepath.Join(t.TempDir(), "x.zip")); err == nil {
		t.Fatal("expected error for empty file list")
	}
}
