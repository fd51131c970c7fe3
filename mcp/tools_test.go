package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/melkeydev/mcp-ingest/databases"
	_ "github.com/melkeydev/mcp-ingest/databases/sqlite"
	"github.com/melkeydev/mcp-ingest/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *server.MCPServer {
	t.Helper()
	conn, err := databases.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	s := server.NewMCPServer("mcp-ingest", "test", server.WithToolCapabilities(false))
	RegisterTools(s, conn, ingest.New(conn))
	return s
}

func handle(t *testing.T, s *server.MCPServer, msg string) string {
	t.Helper()
	resp := s.HandleMessage(context.Background(), json.RawMessage(msg))
	require.NotNil(t, resp)
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(out)
}

func TestRegisterTools(t *testing.T) {
	s := newServer(t)
	out := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	for _, name := range ToolNames {
		assert.Contains(t, out, `"name":"`+name+`"`)
	}
}

func TestIngestThroughServer(t *testing.T) {
	s := newServer(t)

	out := handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"ingest_file",
		"arguments":{"content":"[{\"a\":1},{\"a\":2,\"b\":true}]","table":"events","format":"json_array"}}}`)
	assert.Contains(t, out, `table_name`)
	assert.NotContains(t, out, `"isError":true`)

	out = handle(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"list_tables","arguments":{}}}`)
	assert.Contains(t, out, `events`)
}
