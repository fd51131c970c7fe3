// Package all registers every storage backend.
package all

import (
	_ "github.com/melkeydev/mcp-ingest/databases/mssql"
	_ "github.com/melkeydev/mcp-ingest/databases/mysql"
	_ "github.com/melkeydev/mcp-ingest/databases/postgres"
	_ "github.com/melkeydev/mcp-ingest/databases/sqlite"
)
