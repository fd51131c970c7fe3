// Package query builds and runs SQL statements whose identifiers come from
// untrusted input. Identifiers are only ever placed into SQL text through
// a Builder; values always travel as bound parameters.
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	"github.com/melkeydev/mcp-ingest/identifier"
)

var ErrMissingIdentifier = errors.New("missing identifier")

// QueryError reports a template that could not be filled safely.
type QueryError struct {
	Slot  string
	Value string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("query: slot {%s}: %v", e.Slot, e.Err)
	}
	return fmt.Sprintf("query: slot {%s} = %q: %v", e.Slot, e.Value, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Ident is a raw identifier and the kind it must be sanitized as.
type Ident struct {
	Raw  string
	Kind identifier.Kind
}

func Table(raw string) Ident  { return Ident{Raw: raw, Kind: identifier.Table} }
func Column(raw string) Ident { return Ident{Raw: raw, Kind: identifier.Column} }

// Identifiers maps slot names in a template to their values.
type Identifiers map[string]Ident

// Execer is satisfied by *sqlx.DB, *sqlx.Tx and *sqlx.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
}

var slotPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

type Builder struct {
	dialect Dialect
}

func NewBuilder(d Dialect) *Builder {
	return &Builder{dialect: d}
}

func (b *Builder) Dialect() Dialect {
	return b.dialect
}

// Build fills every {slot} in tmpl with the sanitized, validated and quoted
// identifier from ids, then rebinds ? placeholders for the dialect.
func (b *Builder) Build(tmpl string, ids Identifiers) (string, error) {
	var firstErr error
	out := slotPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		if firstErr != nil {
			return m
		}
		slot := m[1 : len(m)-1]
		id, ok := ids[slot]
		if !ok {
			firstErr = &QueryError{Slot: slot, Err: ErrMissingIdentifier}
			return m
		}
		safe := identifier.Sanitize(id.Raw, id.Kind)
		if err := identifier.Validate(safe, id.Kind); err != nil {
			firstErr = &QueryError{Slot: slot, Value: id.Raw, Err: err}
			return m
		}
		return b.dialect.Quote(safe)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return sqlx.Rebind(b.dialect.BindType, out), nil
}

func (b *Builder) Exec(ctx context.Context, q Execer, tmpl string, ids Identifiers, args ...any) (sql.Result, error) {
	stmt, err := b.Build(tmpl, ids)
	if err != nil {
		return nil, err
	}
	return q.ExecContext(ctx, stmt, args...)
}

func (b *Builder) Query(ctx context.Context, q Execer, tmpl string, ids Identifiers, args ...any) (*sqlx.Rows, error) {
	stmt, err := b.Build(tmpl, ids)
	if err != nil {
		return nil, err
	}
	return q.QueryxContext(ctx, stmt, args...)
}

// Rows runs a query and scans every row into a map keyed by column name.
// []byte values are returned as strings.
func (b *Builder) Rows(ctx context.Context, q Execer, tmpl string, ids Identifiers, args ...any) ([]map[string]any, error) {
	rows, err := b.Query(ctx, q, tmpl, ids, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []map[string]any{}
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("unable to scan row: %w", err)
		}
		for k, v := range row {
			if raw, ok := v.([]byte); ok {
				row[k] = string(raw)
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
