package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/melkeydev/mcp-ingest/mcp"
	"github.com/melkeydev/mcp-ingest/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "mcp-ingest %s\n", Version)
		},
	}
}

func (a *app) ingestCmd() *cobra.Command {
	var table, format, output string

	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Load a file into a database table",
		Long: `Ingest loads FILE into a table and prints the result.

The format is taken from the extension unless --format is given:
  .csv .tsv .txt   table
  .json            json_array
  .jsonl .ndjson   jsonl
  .html .htm       html_table

The table name defaults to the file name without its extension. An existing
table with the same name is dropped first.

Example:
  mcp-ingest ingest users.csv
  mcp-ingest ingest events.jsonl --table events --output yaml
  mcp-ingest --db-type postgres --dsn postgres://localhost/app ingest report.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			var f types.Format
			if format != "" {
				parsed, err := types.ParseFormat(format)
				if err != nil {
					return err
				}
				f = parsed
			}

			if strings.EqualFold(format, "tsv") && !a.cfg.Ingest.HasDelimiter() {
				a.cfg.Ingest.Delimiter = "tab"
			}

			p, err := a.pipeline()
			if err != nil {
				return err
			}
			res, err := p.IngestFile(cmd.Context(), path, table, f)
			if err != nil {
				return err
			}
			return a.print(res, output)
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "target table name (default: file name)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format: table, csv, tsv, json_array, jsonl or html_table")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	cmd.Flags().Int("sample-size", 0, "sample rows to return (default 5)")
	cmd.Flags().String("delimiter", "", `field separator for delimited files (default "," or tab for .tsv; "tab" for tabs)`)
	cmd.Flags().String("html-selector", "", `CSS selector of the HTML table (default "table")`)
	return cmd
}

func (a *app) describeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "describe [TABLE...]",
		Short: "Show the columns, row count and sample rows of tables",
		Long: `Describe prints each named table, or every table when none is named.
Text output is the schema summary; json and yaml include sample rows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				all, err := a.conn.ListTables(cmd.Context())
				if err != nil {
					return err
				}
				names = all
			}

			descs := make([]*types.TableDescription, 0, len(names))
			for _, name := range names {
				desc, err := a.conn.DescribeTable(cmd.Context(), name)
				if err != nil {
					return err
				}
				descs = append(descs, desc)
			}

			if output == "text" {
				_, err := fmt.Fprint(a.stdout, types.FormatSchemas(descs))
				return err
			}
			if len(args) == 1 {
				return a.print(descs[0], output)
			}
			return a.print(descs, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	return cmd
}

func (a *app) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := a.conn.ListTables(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range tables {
				fmt.Fprintln(a.stdout, t)
			}
			return nil
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the ingest tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline()
			if err != nil {
				return err
			}

			s := server.NewMCPServer(
				"mcp-ingest",
				Version,
				server.WithToolCapabilities(false),
				server.WithLogging(),
			)
			mcp.RegisterTools(s, a.conn, p)
			a.logger.Info("serving MCP over stdio", "database", a.conn.Dialect().DisplayName, "tools", mcp.ToolNames)

			if err := server.ServeStdio(s); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
}

func (a *app) print(v any, output string) error {
	var (
		data []byte
		err  error
	)
	switch output {
	case "", "json":
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unsupported output format: %s", output)
	}
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = a.stdout.Write(data)
	return err
}
