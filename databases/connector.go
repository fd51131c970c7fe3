package databases

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/melkeydev/mcp-ingest/identifier"
	"github.com/melkeydev/mcp-ingest/query"
	"github.com/melkeydev/mcp-ingest/types"
)

// ColumnsFunc lists the columns of table in declaration order. It returns an
// empty slice when the table does not exist.
type ColumnsFunc func(ctx context.Context, q query.Execer, b *query.Builder, table string) ([]types.Column, error)

// Driver is what a storage backend registers.
type Driver struct {
	Dialect query.Dialect
	Open    func(ctx context.Context, dsn string) (*sqlx.DB, error)
	Columns ColumnsFunc
}

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{}
)

// Register makes a backend available under kind. It is called from the
// backend package's init and panics on duplicates.
func Register(kind string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if kind == "" {
		panic("databases: Register called with empty kind")
	}
	if d.Open == nil || d.Columns == nil {
		panic(fmt.Sprintf("databases: incomplete driver for kind=%q", kind))
	}
	if _, exists := drivers[kind]; exists {
		panic(fmt.Sprintf("databases: driver already registered for kind=%q", kind))
	}
	drivers[kind] = d
}

// Kinds lists the registered backend kinds.
func Kinds() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	out := make([]string, 0, len(drivers))
	for k := range drivers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Connector is an open database plus the dialect used to talk to it. The
// caller owns it and must Close it.
type Connector struct {
	db      *sqlx.DB
	driver  Driver
	builder *query.Builder
}

func Open(ctx context.Context, kind, dsn string) (*Connector, error) {
	driversMu.RLock()
	d, ok := drivers[kind]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", kind)
	}

	db, err := d.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c := NewConnector(db, d)
	if err := c.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return c, nil
}

// NewConnector wraps an already open handle.
func NewConnector(db *sqlx.DB, d Driver) *Connector {
	return &Connector{db: db, driver: d, builder: query.NewBuilder(d.Dialect)}
}

func (c *Connector) DB() *sqlx.DB {
	return c.db
}

func (c *Connector) Dialect() query.Dialect {
	return c.driver.Dialect
}

func (c *Connector) Builder() *query.Builder {
	return c.builder
}

func (c *Connector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Connector) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Connector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.builder.Query(ctx, c.db, c.driver.Dialect.ListTablesSQL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Sample returns up to limit rows of table, 10 when limit is not positive.
func (c *Connector) Sample(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 10
	}
	return c.sample(ctx, c.db, table, limit)
}

func (c *Connector) sample(ctx context.Context, q query.Execer, table string, limit int) ([]map[string]any, error) {
	rows, err := c.builder.Rows(ctx, q, c.driver.Dialect.SampleSQL, query.Identifiers{"table": query.Table(table)}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sample table: %w", err)
	}
	return rows, nil
}

func (c *Connector) DescribeTable(ctx context.Context, table string) (*types.TableDescription, error) {
	return c.Introspect(ctx, c.db, table, 5)
}

// Introspect reads column metadata, the row count and up to sampleSize rows
// of table through q. The table name is sanitized before use.
func (c *Connector) Introspect(ctx context.Context, q query.Execer, table string, sampleSize int) (*types.TableDescription, error) {
	name := identifier.Sanitize(table, identifier.Table)

	columns, err := c.driver.Columns(ctx, q, c.builder, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", name)
	}

	rows, err := c.builder.Query(ctx, q, c.driver.Dialect.CountSQL, query.Identifiers{"table": query.Table(name)})
	if err != nil {
		return nil, fmt.Errorf("failed to get row count: %w", err)
	}
	var rowCount int64
	if rows.Next() {
		err = rows.Scan(&rowCount)
	} else {
		err = rows.Err()
	}
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to get row count: %w", err)
	}

	sampleData := []map[string]any{}
	if sampleSize > 0 {
		if sampleData, err = c.sample(ctx, q, name, sampleSize); err != nil {
			return nil, err
		}
	}

	return &types.TableDescription{
		Name:       name,
		Columns:    columns,
		RowCount:   rowCount,
		SampleData: sampleData,
	}, nil
}

// InformationSchemaColumns returns a ColumnsFunc for engines that expose
// information_schema. stmt must select name, data type and an
// is_nullable flag, with one ? bound to the table name.
func InformationSchemaColumns(stmt string) ColumnsFunc {
	return func(ctx context.Context, q query.Execer, b *query.Builder, table string) ([]types.Column, error) {
		rows, err := b.Query(ctx, q, stmt, nil, table)
		if err != nil {
			return nil, fmt.Errorf("failed to query columns: %w", err)
		}
		defer rows.Close()

		columns := []types.Column{}
		for rows.Next() {
			var name, dataType, nullable string
			if err := rows.Scan(&name, &dataType, &nullable); err != nil {
				return nil, fmt.Errorf("failed to scan column: %w", err)
			}
			columns = append(columns, types.Column{
				Name:     name,
				Type:     dataType,
				Nullable: nullable == "YES",
			})
		}
		return columns, rows.Err()
	}
}
