package mysql

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/melkeydev/mcp-ingest/databases"
	"github.com/melkeydev/mcp-ingest/query"
)

var Dialect = query.Dialect{
	Name:        "mysql",
	DisplayName: "MySQL",
	BindType:    sqlx.QUESTION,
	QuoteOpen:   "`",
	QuoteClose:  "`",
	MaxParams:   65535,
	Types: query.ColumnTypes{
		Text:    "TEXT",
		Integer: "BIGINT",
		Real:    "DOUBLE",
		Boolean: "BOOLEAN",
	},
	ListTablesSQL: `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	CountSQL:  "SELECT COUNT(*) FROM {table}",
	SampleSQL: "SELECT * FROM {table} LIMIT ?",
	DropSQL:   "DROP TABLE IF EXISTS {table}",
}

const columnsSQL = `
	SELECT column_name, data_type, is_nullable
	FROM information_schema.columns
	WHERE table_schema = DATABASE()
	AND table_name = ?
	ORDER BY ordinal_position`

func init() {
	databases.Register("mysql", databases.Driver{
		Dialect: Dialect,
		Open:    Open,
		Columns: databases.InformationSchemaColumns(columnsSQL),
	})
}

func Open(_ context.Context, connectionString string) (*sqlx.DB, error) {
	config, err := mysql.ParseDSN(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	// DATE and DATETIME columns scan as time.Time.
	config.ParseTime = true

	return sqlx.Open("mysql", config.FormatDSN())
}
