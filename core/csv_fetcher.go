package core

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// RowFetcher retrieves flat invoice records from a backing source for bulk
// generation. Implementations resolve sourceName to a table, view, or file
// and apply simple equality filtering from params.
type RowFetcher interface {
	Fetch(sourceName string, params map[string]string) ([]map[string]any, error)
}

// CSVRowFetcher reads invoice records from CSV files under a root
// directory; sourceName maps to "<sourceName>.csv". The first record is
// treated as the header.
type CSVRowFetcher struct {
	RootDir string
}

func NewCSVRowFetcher(rootDir string) *CSVRowFetcher {
	return &CSVRowFetcher{RootDir: rootDir}
}

func (f *CSVRowFetcher) Fetch(sourceName string, params map[string]string) ([]map[string]any, error) {
	filePath := filepath.Join(f.RootDir, sourceName+".csv")

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file %s: %w", filePath, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv content: %w", err)
	}
	if len(records) < 1 {
		return nil, nil
	}

	header := records[0]
	var result []map[string]any

	for i := 1; i < len(records); i++ {
		record := make(map[string]any, len(header))
		for j, cell := range records[i] {
			if j < len(header) {
				record[header[j]] = cell
			}
		}

		match := true
		for k, v := range params {
			if cellVal, hasCol := record[k]; hasCol {
				if fmt.Sprintf("%v", cellVal) != v {
					match = false
					break
				}
			}
		}
		if match {
			result = append(result, record)
		}
	}

	return result, nil
}
