package config

// Data-source type tags a sheet can declare. The row preparation engine
// dispatches on these; anything else is skipped upstream.
const (
	SourceAggregation          = "aggregation"
	SourceDAFAggregation       = "DAF_aggregation"
	SourceCustomAggregation    = "custom_aggregation"
	SourceProcessedTables      = "processed_tables"
	SourceProcessedTablesMulti = "processed_tables_multi"
)

// ColStatic is the sentinel column id for the static label column. It is
// never auto-mapped to a dynamic rule.
const ColStatic = "col_static"

// KnownSourceTypes lists every data-source tag the engine understands.
var KnownSourceTypes = []string{
	SourceAggregation,
	SourceDAFAggregation,
	SourceCustomAggregation,
	SourceProcessedTables,
	SourceProcessedTablesMulti,
}

// Meta carries bundle-level metadata.
type Meta struct {
	CustomerID   string `json:"customer_id,omitempty"   yaml:"customer_id,omitempty"`
	TemplateName string `json:"template_name,omitempty" yaml:"template_name,omitempty"`
	ArchiveRule  string `json:"archive_rule,omitempty"  yaml:"archive_rule,omitempty"`
}

// ColumnSpec places a stable column id at a worksheet position. Index is
// 1-based; when omitted the ordinal position in the list is used.
type ColumnSpec struct {
	ID     string `json:"id"               yaml:"id"`
	Header string `json:"header,omitempty" yaml:"header,omitempty"`
	Index  int    `json:"index,omitempty"  yaml:"index,omitempty"`
}

// SheetConfig describes one worksheet: where data rows start, how the
// layout columns are identified, and the raw mapping rules the parser
// consumes.
type SheetConfig struct {
	DataSource   string         `json:"data_source"             yaml:"data_source"`
	StartRow     int            `json:"start_row,omitempty"     yaml:"start_row,omitempty"`
	Columns      []ColumnSpec   `json:"columns,omitempty"       yaml:"columns,omitempty"`
	MappingRules map[string]any `json:"mapping_rules,omitempty" yaml:"mapping_rules,omitempty"`
}

// BundleConfig is the per-customer configuration document.
type BundleConfig struct {
	Meta            Meta                   `json:"_meta,omitempty"   yaml:"_meta,omitempty"`
	SheetsToProcess []string               `json:"sheets_to_process" yaml:"sheets_to_process"`
	Sheets          map[string]SheetConfig `json:"sheets"            yaml:"sheets"`
}

// ColumnIDMap builds the column-id to 1-based-position map from the layout.
func (s *SheetConfig) ColumnIDMap() map[string]int {
	m := make(map[string]int, len(s.Columns))
	for i, col := range s.Columns {
		idx := col.Index
		if idx == 0 {
			idx = i + 1
		}
		m[col.ID] = idx
	}
	return m
}

// HeaderMap builds the reverse position-to-header map.
func (s *SheetConfig) HeaderMap() map[int]string {
	m := make(map[int]string, len(s.Columns))
	for i, col := range s.Columns {
		idx := col.Index
		if idx == 0 {
			idx = i + 1
		}
		m[idx] = col.Header
	}
	return m
}

// Sheet returns the configuration for a named sheet.
func (c *BundleConfig) Sheet(name string) (SheetConfig, bool) {
	sc, ok := c.Sheets[name]
	return sc, ok
}

// DataSourceType returns the declared source type for a sheet, or "" when
// the sheet is not configured or declares none.
func (c *BundleConfig) DataSourceType(name string) string {
	if sc, ok := c.Sheets[name]; ok {
		return sc.DataSource
	}
	return ""
}
