package core

import (
	"database/sql"
	"fmt"
	"strings"
)

// SQLRowFetcher reads invoice records from a relational table or view.
// MySQL and PostgreSQL are supported; sourceName is used as the table name.
type SQLRowFetcher struct {
	DB         *sql.DB
	DriverName string // "mysql" or "postgres"
}

func NewSQLRowFetcher(db *sql.DB, driverName string) *SQLRowFetcher {
	return &SQLRowFetcher{
		DB:         db,
		DriverName: driverName,
	}
}

// Fetch selects every row of sourceName, filtered by equality on params.
func (f *SQLRowFetcher) Fetch(sourceName string, params map[string]string) ([]map[string]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s", sourceName)
	var args []any

	if len(params) > 0 {
		var conditions []string
		i := 1
		for k, v := range params {
			if f.DriverName == "postgres" {
				conditions = append(conditions, fmt.Sprintf("%s = $%d", k, i))
			} else {
				conditions = append(conditions, fmt.Sprintf("%s = ?", k))
			}
			args = append(args, v)
			i++
		}
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := f.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var result []map[string]any

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			// The MySQL driver returns text columns as []byte.
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		result = append(result, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return result, nil
}
