package core

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"

	"invoice-gen/config"
)

// InvoiceData is the raw payload produced by the upstream extraction pass.
// The shape of each substructure is determined by the bundle config's
// declared data-source type per sheet, not by the payload itself.
type InvoiceData struct {
	Metadata          map[string]any   `json:"metadata,omitempty"`
	ProcessedTables   map[string]Table `json:"processed_tables_data,omitempty"`
	Aggregation       Aggregation      `json:"standard_aggregation_results,omitempty"`
	CustomAggregation Aggregation      `json:"custom_aggregation_results,omitempty"`
	DAFAggregation    DAFAggregation   `json:"DAF_aggregation_results,omitempty"`
}

// LoadInvoiceData reads an invoice data payload from a JSON file.
func LoadInvoiceData(path string) (*InvoiceData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice data file: %w", err)
	}
	var data InvoiceData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse invoice data %s: %w", path, err)
	}
	return &data, nil
}

// SourceFor returns the substructure matching a sheet's declared
// data-source type. Table sources are handled per-table by the sheet
// processors and are not returned here.
func (d *InvoiceData) SourceFor(sourceType string) any {
	switch sourceType {
	case config.SourceAggregation:
		return d.Aggregation
	case config.SourceCustomAggregation:
		return d.CustomAggregation
	case config.SourceDAFAggregation:
		return d.DAFAggregation
	}
	return nil
}

// TableIDs returns the processed-table identifiers in ascending order, so
// multi-table sheets emit their tables deterministically.
func (d *InvoiceData) TableIDs() []string {
	ids := make([]string, 0, len(d.ProcessedTables))
	for id := range d.ProcessedTables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GrandTotalPallets sums the pallet counts across every processed table.
func (d *InvoiceData) GrandTotalPallets() int {
	total := 0
	for _, table := range d.ProcessedTables {
		raw := table["pallet_count"]
		if raw == nil {
			raw = table["col_pallet_count"]
		}
		for _, v := range raw {
			total += asInt(v)
		}
	}
	return total
}

// TableTotals are the per-table footer sums.
type TableTotals struct {
	Pieces decimal.Decimal
	Sqft   decimal.Decimal
	Amount decimal.Decimal
}

// Totals sums the quantity and amount columns of one table. Summation uses
// decimals so locale-formatted strings and float inputs accumulate without
// drift.
func (t Table) Totals() TableTotals {
	return TableTotals{
		Pieces: sumColumn(t["col_qty_pcs"]),
		Sqft:   sumColumn(t["col_qty_sf"]),
		Amount: sumColumn(t["col_amount"]),
	}
}

func sumColumn(values []any) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		switch n := ToNumeric(v).(type) {
		case int:
			sum = sum.Add(decimal.NewFromInt(int64(n)))
		case float64:
			sum = sum.Add(decimal.NewFromFloat(n))
		}
	}
	return sum
}

// ColumnizeRow turns one flat record (a bulk-source row) into a
// single-table payload: each field becomes a one-element column list.
func ColumnizeRow(record map[string]any) *InvoiceData {
	table := make(Table, len(record))
	for field, value := range record {
		table[field] = []any{value}
	}
	return &InvoiceData{
		ProcessedTables: map[string]Table{"1": table},
	}
}
