package mcp

import (
	goMCP "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/melkeydev/mcp-ingest/databases"
	"github.com/melkeydev/mcp-ingest/handlers"
	"github.com/melkeydev/mcp-ingest/ingest"
)

// ToolNames lists every tool RegisterTools adds, in registration order.
var ToolNames = []string{"ingest_file", "describe_table", "sample_table", "list_tables"}

func RegisterTools(s *server.MCPServer, conn *databases.Connector, pipeline *ingest.Pipeline) {
	// Ingest tool
	ingestTool := goMCP.NewTool("ingest_file",
		goMCP.WithDescription("Load a CSV, JSON, JSONL or HTML table into a database table and return its schema and a sample"),
		goMCP.WithString("path",
			goMCP.Description("Path of the file to load. Either path or content is required"),
		),
		goMCP.WithString("content",
			goMCP.Description("Inline file content to load instead of a path"),
		),
		goMCP.WithString("table",
			goMCP.Description("Target table name (default: file name). Any existing table with this name is replaced"),
		),
		goMCP.WithString("format",
			goMCP.Description("Input format: table (csv), json_array, jsonl or html_table. Detected from the file extension when omitted"),
			goMCP.Enum("table", "csv", "tsv", "json_array", "json", "jsonl", "ndjson", "html_table", "html"),
		),
	)

	// Describe tool
	describeTool := goMCP.NewTool("describe_table",
		goMCP.WithDescription("Get the columns, row count and sample rows of a table"),
		goMCP.WithString("table",
			goMCP.Required(),
			goMCP.Description("Name of the table to describe"),
		),
		goMCP.WithString("output",
			goMCP.Description("json (default) or text"),
			goMCP.Enum("json", "text"),
		),
	)

	// Sample tool
	sampleTool := goMCP.NewTool("sample_table",
		goMCP.WithDescription("Get sample data from a specific table"),
		goMCP.WithString("table",
			goMCP.Required(),
			goMCP.Description("Name of the table to sample"),
		),
		goMCP.WithNumber("limit",
			goMCP.Description("Number of rows to return (default: 10)"),
		),
	)

	listTool := goMCP.NewTool("list_tables",
		goMCP.WithDescription("List the tables in the database"),
	)

	s.AddTool(ingestTool, handlers.IngestHandler(pipeline))
	s.AddTool(describeTool, handlers.DescribeHandler(conn))
	s.AddTool(sampleTool, handlers.SampleHandler(conn))
	s.AddTool(listTool, handlers.ListTablesHandler(conn))
}
