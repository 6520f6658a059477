package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCSVRowFetcher_Fetch(t *testing.T) {
	dir := t.TempDir()
	content := "invoice_no,customer,amount\nINV-1,ACME,100\nINV-2,GLOBEX,200\nINV-3,ACME,300\n"
	if err := os.WriteFile(filepath.Join(dir, "invoices.csv"), []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	fetcher := NewCSVRowFetcher(dir)

	records, err := fetcher.Fetch("invoices", nil)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[0]["invoice_no"] != "INV-1" || records[0]["amount"] != "100" {
		t.Errorf("first record = %v", records[0])
	}

	filtered, err := fetcher.Fetch("invoices", map[string]string{"customer": "ACME"})
	if err != nil {
		t.Fatalf("filtered Fetch error: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("filtered records = %d, want 2", len(filtered))
	}
	for _, r := range filtered {
		if r["customer"] != "ACME" {
			t.Errorf("filter leaked record %v", r)
		}
	}
}

func TestCSVRowFetcher_MissingFile(t *testing.T) {
	fetcher := NewCSVRowFetcher(t.TempDir())
	if _, err := fetcher.Fetch("absent", nil); err == nil {
		t.Fatal("expected error for missing csv file")
	}
}

func TestCSVRowFetcher_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "empty.csv"), []byte("a,b\n"), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	fetcher := NewCSVRowFetcher(dir)
	records, err := fetcher.Fetch("empty", nil)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %d, want 0", len(records))
	}
}
