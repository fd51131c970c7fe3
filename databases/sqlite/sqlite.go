// Package sqlite registers two SQLite backends: "sqlite" on the pure-Go
// modernc.org/sqlite driver and "sqlite3" on the cgo mattn/go-sqlite3 driver.
// Both share one dialect.
package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/melkeydev/mcp-ingest/databases"
	"github.com/melkeydev/mcp-ingest/query"
	"github.com/melkeydev/mcp-ingest/types"
	_ "modernc.org/sqlite"
)

var Dialect = query.Dialect{
	Name:        "sqlite",
	DisplayName: "SQLite",
	BindType:    sqlx.QUESTION,
	QuoteOpen:   `"`,
	QuoteClose:  `"`,
	MaxParams:   32766,
	Types: query.ColumnTypes{
		Text:    "TEXT",
		Integer: "INTEGER",
		Real:    "REAL",
		Boolean: "INTEGER",
	},
	ListTablesSQL: `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name`,
	CountSQL:  "SELECT COUNT(*) FROM {table}",
	SampleSQL: "SELECT * FROM {table} LIMIT ?",
	DropSQL:   "DROP TABLE IF EXISTS {table}",
}

func init() {
	databases.Register("sqlite", Driver("sqlite"))
	databases.Register("sqlite3", Driver("sqlite3"))
}

// Driver returns the backend for the named database/sql driver.
func Driver(driverName string) databases.Driver {
	return databases.Driver{
		Dialect: Dialect,
		Open: func(ctx context.Context, dsn string) (*sqlx.DB, error) {
			return Open(driverName, dsn)
		},
		Columns: loadColumns,
	}
}

// Open opens a SQLite file. A single writer connection avoids SQLITE_BUSY
// between the pipeline's transaction and introspection reads.
func Open(driverName, path string) (*sqlx.DB, error) {
	if path == "" {
		path = "database.db"
	}
	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func loadColumns(ctx context.Context, q query.Execer, b *query.Builder, table string) ([]types.Column, error) {
	rows, err := b.Query(ctx, q, "PRAGMA table_info({table})", query.Identifiers{"table": query.Table(table)})
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	columns := []types.Column{}
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var defaultValue any
		var pk int

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		columns = append(columns, types.Column{
			Name:     name,
			Type:     dataType,
			Nullable: notNull == 0,
		})
	}
	return columns, rows.Err()
}
