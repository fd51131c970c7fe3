// Package cli implements the mcp-ingest command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/melkeydev/mcp-ingest/config"
	"github.com/melkeydev/mcp-ingest/databases"
	_ "github.com/melkeydev/mcp-ingest/databases/all"
	"github.com/melkeydev/mcp-ingest/ingest"
	"github.com/melkeydev/mcp-ingest/metrics"
	"github.com/melkeydev/mcp-ingest/metrics/datadog"
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "0.1.0"

// app holds what the subcommands share. It is set up by the root command's
// PersistentPreRunE and torn down by close.
type app struct {
	configPath string

	cfg    *config.Config
	logger *slog.Logger
	conn   *databases.Connector
	mback  *datadog.Backend

	stdout io.Writer
	stderr io.Writer
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcp-ingest",
		Short: "Load CSV, JSON, JSONL and HTML tables into SQL databases",
		Long: `mcp-ingest turns tabular and JSON files into database tables.

Nested JSON objects are flattened into columns joined by "__", array
elements by "_<index>". Every run replaces the target table and reports its
schema, row count and a few sample rows. The serve command exposes the same
operations as MCP tools over stdio.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to config file (default: ./config.yaml if present)")
	pf.String("db-type", "", "database type: "+fmt.Sprint(databases.Kinds()))
	pf.String("dsn", "", "connection string for postgres, mysql and mssql")
	pf.String("db-file", "", "database file for sqlite (default: database.db)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("metrics-backend", "", "metrics backend: none or datadog")

	root.AddCommand(a.versionCmd())
	root.AddCommand(a.ingestCmd())
	root.AddCommand(a.describeCmd())
	root.AddCommand(a.tablesCmd())
	root.AddCommand(a.serveCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := loadSettings(cmd, a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	logger, err := newLogger(a.stderr, cfg.Log)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)

	if cfg.Metrics.Backend == "datadog" {
		b, err := datadog.NewBackend(cmd.Context(), datadog.Options{
			Tags:       cfg.Metrics.Tags,
			FlushEvery: cfg.Metrics.FlushEvery,
		})
		if err != nil {
			return fmt.Errorf("start datadog metrics: %w", err)
		}
		a.mback = b
		metrics.SetBackend(b)
	}

	connStr, err := cfg.Database.GetConnectionString()
	if err != nil {
		return err
	}
	conn, err := databases.Open(cmd.Context(), cfg.Database.DBType, connStr)
	if err != nil {
		return err
	}
	a.conn = conn
	logger.Debug("connected", "type", cfg.Database.DBType)
	return nil
}

func (a *app) pipeline() (*ingest.Pipeline, error) {
	opts := []ingest.Option{
		ingest.WithSampleSize(a.cfg.Ingest.SampleSize),
		ingest.WithHTMLSelector(a.cfg.Ingest.HTMLSelector),
		ingest.WithLogger(a.logger),
	}
	if a.cfg.Ingest.HasDelimiter() {
		delim, err := a.cfg.Ingest.DelimiterRune()
		if err != nil {
			return nil, err
		}
		opts = append(opts, ingest.WithDelimiter(delim))
	}
	return ingest.New(a.conn, opts...), nil
}

func (a *app) close() {
	if a.conn != nil {
		if err := a.conn.Close(); err != nil && a.logger != nil {
			a.logger.Warn("close database", "error", err)
		}
		a.conn = nil
	}
	if a.mback != nil {
		if err := a.mback.Close(); err != nil && a.logger != nil {
			a.logger.Warn("flush metrics", "error", err)
		}
		metrics.SetBackend(nil)
		a.mback = nil
	}
}
