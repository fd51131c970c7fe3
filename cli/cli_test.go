package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mcp-ingest "+Version+"\n", out)
}

func TestIngestDescribeTables(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.db")
	csv := writeFile(t, dir, "Sales Report.csv", "Region,Units\nnorth,10\nsouth,7\n")

	out, err := runCLI(t, "--db-file", db, "ingest", csv)
	require.NoError(t, err)

	var res struct {
		TableName string            `json:"table_name"`
		Schema    map[string]string `json:"schema"`
		RowCount  int64             `json:"row_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Sales_Report", res.TableName)
	assert.Equal(t, map[string]string{"region": "TEXT", "units": "INTEGER"}, res.Schema)
	assert.Equal(t, int64(2), res.RowCount)

	out, err = runCLI(t, "--db-file", db, "tables")
	require.NoError(t, err)
	assert.Equal(t, "Sales_Report\n", out)

	out, err = runCLI(t, "--db-file", db, "describe", "Sales_Report")
	require.NoError(t, err)
	assert.Equal(t, "Table: Sales_Report\nColumns:\n  - region (TEXT)\n  - units (INTEGER)\nRow count: 2\n", out)
}

func TestIngestYAMLOutputAndFlags(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.db")
	data := writeFile(t, dir, "data.txt", `[{"id":1,"tags":["a","b"]},{"id":2}]`)

	out, err := runCLI(t, "--db-file", db, "ingest", data,
		"--format", "json", "--table", "things", "--output", "yaml", "--sample-size", "1")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, "things", res["table_name"])
	assert.Equal(t, "json_array", res["format"])
	assert.Len(t, res["sample_data"], 1)
	assert.Contains(t, out, "tags_0")
}

func TestIngestTSVUsesTabs(t *testing.T) {
	dir := t.TempDir()
	tsv := writeFile(t, dir, "pets.tsv", "name\tlegs\ncat\t4\nbird\t2\n")

	out, err := runCLI(t, "--db-file", filepath.Join(dir, "cli.db"), "ingest", tsv)
	require.NoError(t, err)
	assert.Contains(t, out, `"legs": "INTEGER"`)
}

func TestIngestFormatTSVFlag(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, dir, "pets.txt", "name\tlegs\ncat\t4\n")

	out, err := runCLI(t, "--db-file", filepath.Join(dir, "cli.db"), "ingest", txt, "--format", "tsv")
	require.NoError(t, err)
	assert.Contains(t, out, `"legs": "INTEGER"`)
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "ingest.yaml", "database:\n  type: sqlite\n  file: "+filepath.Join(dir, "from-file.db")+"\n")
	envDB := filepath.Join(dir, "from-env.db")
	t.Setenv("INGEST_DATABASE_FILE", envDB)

	csv := writeFile(t, dir, "x.csv", "a\n1\n")
	_, err := runCLI(t, "--config", cfgPath, "ingest", csv)
	require.NoError(t, err)

	_, err = os.Stat(envDB)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "from-file.db"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLIErrors(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.db")

	_, err := runCLI(t, "--config", filepath.Join(dir, "missing.yaml"), "tables")
	assert.ErrorContains(t, err, "load config")

	_, err = runCLI(t, "--db-type", "oracle", "tables")
	assert.EqualError(t, err, "unsupported database type: oracle")

	_, err = runCLI(t, "--db-file", db, "ingest", writeFile(t, dir, "bad.json", `{"a":1}`))
	assert.EqualError(t, err, "Error converting JSON to SQLite: JSON must be an array of objects")

	_, err = runCLI(t, "--db-file", db, "describe", "nope")
	assert.EqualError(t, err, "table nope not found")

	_, err = runCLI(t, "--db-file", db, "ingest", writeFile(t, dir, "a.csv", "a\n1\n"), "--output", "xml")
	assert.EqualError(t, err, "unsupported output format: xml")

	_, err = runCLI(t, "--db-file", db, "--log-format", "xml", "tables")
	assert.True(t, strings.HasPrefix(err.Error(), "unsupported log format"))
}

func TestDescribeAllTables(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.db")
	for name, body := range map[string]string{
		"b.csv":   "x\n1\n",
		"a.jsonl": `{"k":"v"}` + "\n",
	} {
		_, err := runCLI(t, "--db-file", db, "ingest", writeFile(t, dir, name, body))
		require.NoError(t, err)
	}

	out, err := runCLI(t, "--db-file", db, "describe")
	require.NoError(t, err)
	assert.Equal(t, "Table: a\nColumns:\n  - k (TEXT)\nRow count: 1\n\nTable: b\nColumns:\n  - x (INTEGER)\nRow count: 1\n", out)

	out, err = runCLI(t, "--db-file", db, "describe", "a", "b", "--output", "json")
	require.NoError(t, err)
	var descs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &descs))
	assert.Len(t, descs, 2)
}
