package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/melkeydev/mcp-ingest/query"
)

// maxRowsPerInsert caps the VALUES tuples of one INSERT.
const maxRowsPerInsert = 500

// columnSlots registers one identifier slot per column and returns them.
func columnSlots(ids query.Identifiers, columns []string) []string {
	slots := make([]string, len(columns))
	for i, c := range columns {
		slots[i] = "c" + strconv.Itoa(i)
		ids[slots[i]] = query.Column(c)
	}
	return slots
}

// replaceTable drops table if it exists and creates it with the given
// columns and declared types.
func replaceTable(ctx context.Context, b *query.Builder, q query.Execer, table string, columns, sqlTypes []string) error {
	ids := query.Identifiers{"table": query.Table(table)}
	if _, err := b.Exec(ctx, q, b.Dialect().DropSQL, ids); err != nil {
		return storageErr("drop table", err)
	}

	slots := columnSlots(ids, columns)
	defs := make([]string, len(slots))
	for i, s := range slots {
		defs[i] = "{" + s + "} " + sqlTypes[i]
	}
	stmt := "CREATE TABLE {table} (" + strings.Join(defs, ", ") + ")"
	if _, err := b.Exec(ctx, q, stmt, ids); err != nil {
		return storageErr("create table", err)
	}
	return nil
}

// bulkInserter batches rows into multi-row INSERT statements that stay under
// the dialect's bound parameter limit.
type bulkInserter struct {
	ctx     context.Context
	b       *query.Builder
	tx      *sqlx.Tx
	ids     query.Identifiers
	slots   []string
	perStmt int

	full    string
	pending []any
	rows    int
	written int64
}

func newBulkInserter(ctx context.Context, b *query.Builder, tx *sqlx.Tx, table string, columns []string) (*bulkInserter, error) {
	maxParams := b.Dialect().MaxParams
	if maxParams <= 0 {
		maxParams = 999
	}
	if len(columns) > maxParams {
		return nil, &StorageError{
			Op:  "insert rows",
			Err: fmt.Errorf("%d columns exceed the %d parameters %s allows per statement", len(columns), maxParams, b.Dialect().DisplayName),
		}
	}

	ins := &bulkInserter{
		ctx:     ctx,
		b:       b,
		tx:      tx,
		ids:     query.Identifiers{"table": query.Table(table)},
		perStmt: min(maxParams/len(columns), maxRowsPerInsert),
	}
	ins.slots = columnSlots(ins.ids, columns)
	return ins, nil
}

func (ins *bulkInserter) template(rows int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(ins.slots)), ", ") + ")"
	cols := make([]string, len(ins.slots))
	for i, s := range ins.slots {
		cols[i] = "{" + s + "}"
	}
	return "INSERT INTO {table} (" + strings.Join(cols, ", ") + ") VALUES " +
		strings.TrimSuffix(strings.Repeat(tuple+", ", rows), ", ")
}

func (ins *bulkInserter) Add(values []any) error {
	ins.pending = append(ins.pending, values...)
	ins.rows++
	if ins.rows == ins.perStmt {
		return ins.flush()
	}
	return nil
}

func (ins *bulkInserter) flush() error {
	if ins.rows == 0 {
		return nil
	}
	var stmt string
	if ins.rows == ins.perStmt {
		if ins.full == "" {
			ins.full = ins.template(ins.rows)
		}
		stmt = ins.full
	} else {
		stmt = ins.template(ins.rows)
	}

	if _, err := ins.b.Exec(ins.ctx, ins.tx, stmt, ins.ids, ins.pending...); err != nil {
		return storageErr("insert rows", err)
	}
	ins.written += int64(ins.rows)
	ins.pending = ins.pending[:0]
	ins.rows = 0
	return nil
}

// Close writes any buffered rows.
func (ins *bulkInserter) Close() error {
	return ins.flush()
}

// storageErr wraps database failures; template errors pass through as-is.
func storageErr(op string, err error) error {
	var qe *query.QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
