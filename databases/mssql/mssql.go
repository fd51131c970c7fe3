package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/melkeydev/mcp-ingest/databases"
	"github.com/melkeydev/mcp-ingest/query"
	mssqldb "github.com/microsoft/go-mssqldb"
)

var Dialect = query.Dialect{
	Name:        "mssql",
	DisplayName: "SQL Server",
	BindType:    sqlx.AT,
	QuoteOpen:   "[",
	QuoteClose:  "]",
	// SQL Server rejects more than 2100 parameters per request.
	MaxParams: 2000,
	Types: query.ColumnTypes{
		Text:    "NVARCHAR(MAX)",
		Integer: "BIGINT",
		Real:    "FLOAT",
		Boolean: "BIT",
	},
	ListTablesSQL: `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = SCHEMA_NAME()
		AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`,
	CountSQL:  "SELECT COUNT_BIG(*) FROM {table}",
	SampleSQL: "SELECT TOP (?) * FROM {table}",
	DropSQL:   "DROP TABLE IF EXISTS {table}",
}

const columnsSQL = `
	SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = SCHEMA_NAME()
	AND TABLE_NAME = ?
	ORDER BY ORDINAL_POSITION`

func init() {
	databases.Register("mssql", databases.Driver{
		Dialect: Dialect,
		Open:    Open,
		Columns: databases.InformationSchemaColumns(columnsSQL),
	})
}

func Open(_ context.Context, connectionString string) (*sqlx.DB, error) {
	connector, err := mssqldb.NewConnector(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	return sqlx.NewDb(sql.OpenDB(connector), "sqlserver"), nil
}
