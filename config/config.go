package config

import (
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	DBType           string `yaml:"type"`
	ConnectionString string `yaml:"connection_string,omitempty"`
	File             string `yaml:"file,omitempty"`
}

type IngestConfig struct {
	SampleSize   int    `yaml:"sample_size"`
	Delimiter    string `yaml:"delimiter"`
	HTMLSelector string `yaml:"html_selector"`
}

type MetricsConfig struct {
	// Backend is "none" or "datadog".
	Backend    string        `yaml:"backend"`
	Tags       []string      `yaml:"tags,omitempty"`
	FlushEvery time.Duration `yaml:"flush_every"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Database: DatabaseConfig{DBType: "sqlite", File: "database.db"},
		Ingest:   IngestConfig{SampleSize: 5, HTMLSelector: "table"},
		Metrics:  MetricsConfig{Backend: "none", FlushEvery: time.Minute},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Ingest.SampleSize < 0 {
		return fmt.Errorf("ingest.sample_size must not be negative")
	}
	if _, err := c.Ingest.DelimiterRune(); err != nil {
		return err
	}
	switch c.Metrics.Backend {
	case "", "none", "datadog":
	default:
		return fmt.Errorf("unsupported metrics backend: %s", c.Metrics.Backend)
	}
	return nil
}

// DelimiterRune returns the single-character field separator. "\t" and
// "tab" both mean a tab. An empty Delimiter means comma, or tab for .tsv
// files; see HasDelimiter.
func (i IngestConfig) DelimiterRune() (rune, error) {
	switch i.Delimiter {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(i.Delimiter)
	if r == utf8.RuneError || size != len(i.Delimiter) || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid ingest.delimiter %q", i.Delimiter)
	}
	return r, nil
}

// HasDelimiter reports whether a separator was configured explicitly.
func (i IngestConfig) HasDelimiter() bool {
	return i.Delimiter != ""
}

func (d *DatabaseConfig) GetConnectionString() (string, error) {
	switch d.DBType {
	case "postgres", "mysql", "mssql":
		if d.ConnectionString == "" {
			return "", fmt.Errorf("connection string is required for %s connection", d.DBType)
		}
		return d.ConnectionString, nil

	case "sqlite", "sqlite3":
		if d.File == "" {
			d.File = "database.db"
		}
		return d.File, nil

	default:
		return "", fmt.Errorf("unsupported database type: %s", d.DBType)
	}
}
