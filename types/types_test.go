package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		file string
		want Format
	}{
		{"users.csv", FormatTable},
		{"USERS.TSV", FormatTable},
		{"data.json", FormatJSONArray},
		{"events.jsonl", FormatJSONL},
		{"events.ndjson", FormatJSONL},
		{"report.html", FormatHTMLTable},
		{"/tmp/x/report.htm", FormatHTMLTable},
	}
	for _, tc := range tests {
		got, err := DetectFormat(tc.file)
		require.NoError(t, err, tc.file)
		assert.Equal(t, tc.want, got, tc.file)
	}

	_, err := DetectFormat("README")
	assert.Error(t, err)
	_, err = DetectFormat("photo.png")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSONL ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSONL, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "CSV", FormatTable.Label())
	assert.Equal(t, "JSON", FormatJSONArray.Label())
	assert.Equal(t, "JSONL", FormatJSONL.Label())
	assert.Equal(t, "HTML", FormatHTMLTable.Label())
}

func TestFormatSchema(t *testing.T) {
	d := &TableDescription{
		Name:     "users",
		Columns:  []Column{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "TEXT"}},
		RowCount: 3,
	}
	want := "Table: users\nColumns:\n  - id (INTEGER)\n  - name (TEXT)\nRow count: 3\n"
	assert.Equal(t, want, FormatSchema(d))
	assert.Equal(t, map[string]string{"id": "INTEGER", "name": "TEXT"}, d.Schema())

	both := FormatSchemas([]*TableDescription{{Name: "b"}, {Name: "a"}})
	assert.Equal(t, "Table: a\nColumns:\nRow count: 0\n\nTable: b\nColumns:\nRow count: 0\n", both)
}

func TestWarningString(t *testing.T) {
	assert.Equal(t, "line 4: bad", Warning{Line: 4, Message: "bad"}.String())
	assert.Equal(t, "bad", Warning{Message: "bad"}.String())
}
