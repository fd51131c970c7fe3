package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/melkeydev/mcp-ingest/databases"
	"github.com/melkeydev/mcp-ingest/ingest"
	"github.com/melkeydev/mcp-ingest/types"
)

type ToolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

const defaultSampleLimit = 10

// IngestHandler creates a handler for the ingest_file tool. It loads either
// a file on disk ("path") or inline "content"; inline content needs a table
// name and a format.
func IngestHandler(p *ingest.Pipeline) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		pl := p
		path := stringArg(args, "path")
		content := stringArg(args, "content")
		table := stringArg(args, "table")

		var format types.Format
		if s := stringArg(args, "format"); s != "" {
			f, err := types.ParseFormat(s)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			format = f
			if strings.EqualFold(s, "tsv") {
				pl = p.With(ingest.WithDelimiter('\t'))
			}
		}

		var (
			res *types.IngestResult
			err error
		)
		switch {
		case path != "" && content != "":
			return mcp.NewToolResultError("Provide either path or content, not both"), nil
		case path != "":
			res, err = pl.IngestFile(ctx, path, table, format)
		case content != "":
			if table == "" {
				return mcp.NewToolResultError("Missing table parameter: required with inline content"), nil
			}
			if format == "" {
				return mcp.NewToolResultError("Missing format parameter: required with inline content"), nil
			}
			res, err = pl.Ingest(ctx, []byte(content), table, format)
		default:
			return mcp.NewToolResultError("Missing path or content parameter"), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res)
	}
}

// DescribeHandler creates a handler for the describe_table tool.
func DescribeHandler(conn *databases.Connector) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := request.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing table parameter: %v", err)), nil
		}

		desc, err := conn.DescribeTable(ctx, table)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Describe failed: %v", err)), nil
		}

		if stringArg(request.GetArguments(), "output") == "text" {
			return mcp.NewToolResultText(types.FormatSchema(desc)), nil
		}
		return jsonResult(desc)
	}
}

// SampleHandler creates a handler for the sample_table tool.
func SampleHandler(conn *databases.Connector) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := request.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing table parameter: %v", err)), nil
		}

		limit := defaultSampleLimit
		if n, ok := request.GetArguments()["limit"].(float64); ok && n > 0 {
			limit = int(n)
		}

		results, err := conn.Sample(ctx, table, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Sample failed: %v", err)), nil
		}
		return jsonResult(results)
	}
}

// ListTablesHandler creates a handler for the list_tables tool.
func ListTablesHandler(conn *databases.Connector) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tables, err := conn.ListTables(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("List tables failed: %v", err)), nil
		}
		return jsonResult(tables)
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
