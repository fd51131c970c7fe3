package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/melkeydev/mcp-ingest/config"
	"github.com/melkeydev/mcp-ingest/metrics/datadog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "INGEST"
	defaultConfigFile = "config.yaml"
)

// flagKeys maps command-line flags to config keys. Flags that a command does
// not define are skipped.
var flagKeys = map[string]string{
	"db-type":         "database.type",
	"dsn":             "database.connection_string",
	"db-file":         "database.file",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"metrics-backend": "metrics.backend",
	"sample-size":     "ingest.sample_size",
	"delimiter":       "ingest.delimiter",
	"html-selector":   "ingest.html_selector",
}

var envKeys = append([]string{"metrics.tags", "metrics.flush_every"}, mapValues(flagKeys)...)

// loadSettings resolves the configuration for cmd. Flags win over INGEST_*
// environment variables, which win over the YAML file, which wins over
// defaults. A missing config.yaml is fine unless --config names it.
func loadSettings(cmd *cobra.Command, configPath string) (*config.Config, error) {
	cfg := config.Default()

	path, explicit := configPath, configPath != ""
	if !explicit {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil || explicit {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	overrideString(v, "database.type", &cfg.Database.DBType)
	overrideString(v, "database.connection_string", &cfg.Database.ConnectionString)
	overrideString(v, "database.file", &cfg.Database.File)
	overrideString(v, "log.level", &cfg.Log.Level)
	overrideString(v, "log.format", &cfg.Log.Format)
	overrideString(v, "metrics.backend", &cfg.Metrics.Backend)
	overrideString(v, "ingest.delimiter", &cfg.Ingest.Delimiter)
	overrideString(v, "ingest.html_selector", &cfg.Ingest.HTMLSelector)
	if v.IsSet("ingest.sample_size") {
		cfg.Ingest.SampleSize = v.GetInt("ingest.sample_size")
	}
	if v.IsSet("metrics.tags") {
		cfg.Metrics.Tags = datadog.ParseTagsCSV(v.GetString("metrics.tags"))
	}
	if v.IsSet("metrics.flush_every") {
		cfg.Metrics.FlushEvery = v.GetDuration("metrics.flush_every")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func mapValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
}
