package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/melkeydev/mcp-ingest/databases"
	"github.com/melkeydev/mcp-ingest/query"
)

var Dialect = query.Dialect{
	Name:        "postgres",
	DisplayName: "PostgreSQL",
	BindType:    sqlx.DOLLAR,
	QuoteOpen:   `"`,
	QuoteClose:  `"`,
	MaxParams:   65535,
	Types: query.ColumnTypes{
		Text:    "TEXT",
		Integer: "BIGINT",
		Real:    "DOUBLE PRECISION",
		Boolean: "BOOLEAN",
	},
	ListTablesSQL: `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	CountSQL:  "SELECT COUNT(*) FROM {table}",
	SampleSQL: "SELECT * FROM {table} LIMIT ?",
	DropSQL:   "DROP TABLE IF EXISTS {table}",
}

const columnsSQL = `
	SELECT column_name, data_type, is_nullable
	FROM information_schema.columns
	WHERE table_schema = current_schema()
	AND table_name = ?
	ORDER BY ordinal_position`

func init() {
	databases.Register("postgres", databases.Driver{
		Dialect: Dialect,
		Open:    Open,
		Columns: databases.InformationSchemaColumns(columnsSQL),
	})
}

func Open(_ context.Context, connectionString string) (*sqlx.DB, error) {
	config, err := pgx.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	config.PreferSimpleProtocol = true

	return sqlx.NewDb(stdlib.OpenDB(*config), "pgx"), nil
}
