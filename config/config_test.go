package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  type: postgres
  connection_string: postgres://u:p@localhost:5432/app
ingest:
  sample_size: 10
  delimiter: ";"
metrics:
  backend: datadog
  tags: [env:dev, team:data]
  flush_every: 15s
log:
  level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.DBType)
	assert.Equal(t, 10, cfg.Ingest.SampleSize)
	assert.Equal(t, "table", cfg.Ingest.HTMLSelector, "unset keys keep defaults")
	assert.Equal(t, []string{"env:dev", "team:data"}, cfg.Metrics.Tags)
	assert.Equal(t, 15*time.Second, cfg.Metrics.FlushEvery)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	r, err := cfg.Ingest.DelimiterRune()
	require.NoError(t, err)
	assert.Equal(t, ';', r)

	conn, err := cfg.Database.GetConnectionString()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/app", conn)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "database: [not, a, map]"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "metrics:\n  backend: statsd\n"))
	assert.EqualError(t, err, "unsupported metrics backend: statsd")

	_, err = LoadConfig(writeConfig(t, "ingest:\n  delimiter: ab\n"))
	assert.Error(t, err)
}

func TestGetConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DatabaseConfig
		want    string
		wantErr bool
	}{
		{name: "sqlite default file", cfg: DatabaseConfig{DBType: "sqlite"}, want: "database.db"},
		{name: "sqlite3 file", cfg: DatabaseConfig{DBType: "sqlite3", File: "x.db"}, want: "x.db"},
		{name: "mysql", cfg: DatabaseConfig{DBType: "mysql", ConnectionString: "u:p@/db"}, want: "u:p@/db"},
		{name: "mssql needs string", cfg: DatabaseConfig{DBType: "mssql"}, wantErr: true},
		{name: "unknown", cfg: DatabaseConfig{DBType: "oracle"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cfg.GetConnectionString()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDefaultDelimiterIsUnset(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Ingest.HasDelimiter())
	assert.True(t, IngestConfig{Delimiter: ";"}.HasDelimiter())
}

func TestDelimiterRune(t *testing.T) {
	for in, want := range map[string]rune{"": ',', `\t`: '\t', "tab": '\t', "|": '|'} {
		got, err := IngestConfig{Delimiter: in}.DelimiterRune()
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := IngestConfig{Delimiter: `"`}.DelimiterRune()
	assert.Error(t, err)
}
