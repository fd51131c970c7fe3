package types

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

type Column struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Nullable bool   `json:"nullable" yaml:"nullable"`
}

type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []Column `json:"columns" yaml:"columns"`
}

type TableDescription struct {
	Name       string           `json:"name" yaml:"name"`
	Columns    []Column         `json:"columns" yaml:"columns"`
	RowCount   int64            `json:"row_count" yaml:"row_count"`
	SampleData []map[string]any `json:"sample_data" yaml:"sample_data"`
}

// Schema maps column names to their declared types.
func (d *TableDescription) Schema() map[string]string {
	out := make(map[string]string, len(d.Columns))
	for _, c := range d.Columns {
		out[c.Name] = c.Type
	}
	return out
}

// Warning is a non-fatal problem found while reading input, such as a
// JSONL line that did not parse.
type Warning struct {
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

type IngestResult struct {
	IngestID   string            `json:"ingest_id" yaml:"ingest_id"`
	TableName  string            `json:"table_name" yaml:"table_name"`
	Format     Format            `json:"format" yaml:"format"`
	Schema     map[string]string `json:"schema" yaml:"schema"`
	Columns    []Column          `json:"columns" yaml:"columns"`
	RowCount   int64             `json:"row_count" yaml:"row_count"`
	SampleData []map[string]any  `json:"sample_data" yaml:"sample_data"`
	Warnings   []Warning         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type Format string

const (
	FormatTable     Format = "table"
	FormatJSONArray Format = "json_array"
	FormatJSONL     Format = "jsonl"
	FormatHTMLTable Format = "html_table"
)

// Label is the name used in user-facing error messages.
func (f Format) Label() string {
	switch f {
	case FormatTable:
		return "CSV"
	case FormatJSONArray:
		return "JSON"
	case FormatJSONL:
		return "JSONL"
	case FormatHTMLTable:
		return "HTML"
	default:
		return strings.ToUpper(string(f))
	}
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSONArray, FormatJSONL, FormatHTMLTable:
		return f, nil
	case "csv", "tsv":
		return FormatTable, nil
	case "json":
		return FormatJSONArray, nil
	case "ndjson":
		return FormatJSONL, nil
	case "html", "htm":
		return FormatHTMLTable, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// DetectFormat picks a format from a file name's extension.
func DetectFormat(filename string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch ext {
	case "csv", "tsv", "txt":
		return FormatTable, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "":
		return "", fmt.Errorf("cannot detect format of %q: no extension", filename)
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return "", fmt.Errorf("cannot detect format of %q: %w", filename, err)
	}
	return f, nil
}

// FormatSchema renders a table description as plain text for prompts.
func FormatSchema(d *TableDescription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n", d.Name)
	b.WriteString("Columns:\n")
	for _, c := range d.Columns {
		fmt.Fprintf(&b, "  - %s (%s)\n", c.Name, c.Type)
	}
	fmt.Fprintf(&b, "Row count: %d\n", d.RowCount)
	return b.String()
}

// FormatSchemas renders several descriptions sorted by table name.
func FormatSchemas(ds []*TableDescription) string {
	sorted := append([]*TableDescription(nil), ds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	parts := make([]string, len(sorted))
	for i, d := range sorted {
		parts[i] = FormatSchema(d)
	}
	return strings.Join(parts, "\n")
}
