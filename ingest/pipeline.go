// Package ingest loads delimited, JSON, JSONL and HTML table content into a
// database table and reports what was created.
//
// A run moves through fixed stages: connecting, decoding, schema discovery
// (JSON formats only), column normalization, table creation, bulk load and
// introspection. Any failure stops the run and is returned as *Error. The
// target table is dropped and recreated on every run; a failure after
// creation can leave it empty.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/melkeydev/mcp-ingest/databases"
	"github.com/melkeydev/mcp-ingest/identifier"
	"github.com/melkeydev/mcp-ingest/metrics"
	"github.com/melkeydev/mcp-ingest/schema"
	"github.com/melkeydev/mcp-ingest/types"
)

const DefaultSampleSize = 5

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Pipeline struct {
	conn         *databases.Connector
	logger       *slog.Logger
	sampleSize   int
	delimiter    rune
	delimiterSet bool
	htmlSelector string
}

type Option func(*Pipeline)

// WithSampleSize sets how many rows are returned in IngestResult.SampleData.
func WithSampleSize(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.sampleSize = n
		}
	}
}

// WithDelimiter sets the field separator of delimited tables. Without it,
// IngestFile reads .tsv files with tabs and everything else with commas.
func WithDelimiter(r rune) Option {
	return func(p *Pipeline) {
		if r != 0 {
			p.delimiter = r
			p.delimiterSet = true
		}
	}
}

// WithHTMLSelector sets the CSS selector of the HTML table to load.
func WithHTMLSelector(sel string) Option {
	return func(p *Pipeline) {
		if sel != "" {
			p.htmlSelector = sel
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a pipeline writing through conn. The pipeline never closes
// conn.
func New(conn *databases.Connector, opts ...Option) *Pipeline {
	p := &Pipeline{
		conn:         conn,
		logger:       slog.Default(),
		sampleSize:   DefaultSampleSize,
		delimiter:    ',',
		htmlSelector: "table",
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// With returns a copy of p with opts applied. p is not modified.
func (p *Pipeline) With(opts ...Option) *Pipeline {
	cp := *p
	for _, o := range opts {
		o(&cp)
	}
	return &cp
}

// IngestFile reads path and ingests it. An empty format is detected from the
// file extension and an empty tableName defaults to the file name.
func (p *Pipeline) IngestFile(ctx context.Context, path, tableName string, format types.Format) (*types.IngestResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if format == "" {
		if format, err = types.DetectFormat(path); err != nil {
			return nil, err
		}
	}
	if tableName == "" {
		tableName = filepath.Base(path)
	}
	if !p.delimiterSet && strings.EqualFold(filepath.Ext(path), ".tsv") {
		p = p.With(WithDelimiter('\t'))
	}
	return p.Ingest(ctx, content, tableName, format)
}

// dataset is decoded input ready to load: raw column names, their declared
// types and a way to stream rows aligned with them.
type dataset struct {
	columns  []string
	sqlTypes []string
	each     func(fn func(values []any) error) error
	skipped  []types.Warning
}

// Ingest loads content into tableName, replacing any table of that
// (sanitized) name.
func (p *Pipeline) Ingest(ctx context.Context, content []byte, tableName string, format types.Format) (*types.IngestResult, error) {
	r := &run{
		p:      p,
		format: format,
		store:  p.conn.Dialect().DisplayName,
		id:     newIngestID(),
	}
	r.log = p.logger.With("ingest_id", r.id, "format", string(format), "table", tableName)
	started := time.Now()

	res, err := r.execute(ctx, bytes.TrimPrefix(content, utf8BOM), tableName)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IncCounter(metrics.RunsTotal, 1, metrics.Labels{"format": string(format), "status": status})
	if err != nil {
		return nil, err
	}

	metrics.IncCounter(metrics.RowsTotal, float64(res.RowCount), metrics.Labels{"format": string(format)})
	r.log.Info("ingest complete",
		"table_name", res.TableName,
		"rows", res.RowCount,
		"columns", len(res.Columns),
		"warnings", len(res.Warnings),
		"elapsed", time.Since(started))
	return res, nil
}

type run struct {
	p      *Pipeline
	format types.Format
	store  string
	id     string
	log    *slog.Logger
}

func (r *run) execute(ctx context.Context, content []byte, tableName string) (*types.IngestResult, error) {
	var conn *sqlx.Conn
	err := r.stage(StageConnecting, func() (err error) {
		conn, err = r.p.conn.DB().Connx(ctx)
		if err != nil {
			return &StorageError{Op: "acquire connection", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var (
		g   *grid
		src schema.Source
	)
	if err := r.stage(StageDecoding, func() (err error) {
		g, src, err = r.decode(content)
		return err
	}); err != nil {
		return nil, err
	}

	var data *dataset
	if src != nil {
		if err := r.stage(StageSchemaDiscovery, func() (err error) {
			data, err = r.discover(src)
			return err
		}); err != nil {
			return nil, err
		}
	} else {
		data = r.tabular(g)
	}

	var (
		table    string
		columns  []string
		warnings = data.skipped
	)
	if err := r.stage(StageNormalizing, func() error {
		var err error
		if table, err = identifier.Resolve(tableName, identifier.Table); err != nil {
			warnings = append(warnings, renameWarning(identifier.Table, tableName, table, err))
		}
		var renamed []types.Warning
		columns, renamed = columnNames(data.columns)
		warnings = append(warnings, renamed...)
		return nil
	}); err != nil {
		return nil, err
	}

	b := r.p.conn.Builder()
	if err := r.stage(StageTableCreation, func() error {
		return replaceTable(ctx, b, conn, table, columns, data.sqlTypes)
	}); err != nil {
		return nil, err
	}

	if err := r.stage(StageBulkLoad, func() error {
		return r.load(ctx, conn, table, columns, data)
	}); err != nil {
		return nil, err
	}

	var desc *types.TableDescription
	if err := r.stage(StageIntrospection, func() (err error) {
		desc, err = r.p.conn.Introspect(ctx, conn, table, r.p.sampleSize)
		if err != nil {
			return storageErr("introspect table", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	for _, w := range warnings {
		r.log.Warn("ingest warning", "line", w.Line, "message", w.Message)
	}

	return &types.IngestResult{
		IngestID:   r.id,
		TableName:  table,
		Format:     r.format,
		Schema:     desc.Schema(),
		Columns:    desc.Columns,
		RowCount:   desc.RowCount,
		SampleData: desc.SampleData,
		Warnings:   warnings,
	}, nil
}

// stage runs fn, records its duration and wraps a failure in *Error.
func (r *run) stage(s Stage, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ObserveHistogram(metrics.StageDuration, time.Since(start).Seconds(),
		metrics.Labels{"stage": string(s), "status": status})

	if err != nil {
		r.log.Error("ingest failed", "stage", s, "error", err)
		return &Error{Format: r.format, Store: r.store, Stage: s, Err: err}
	}
	r.log.Debug("ingest stage done", "stage", s, "elapsed", time.Since(start))
	return nil
}

// decode parses content. Tabular formats yield a grid; JSON formats yield a
// record source for schema discovery.
func (r *run) decode(content []byte) (*grid, schema.Source, error) {
	switch r.format {
	case types.FormatTable:
		g, err := decodeDelimited(content, r.p.delimiter)
		return g, nil, err
	case types.FormatHTMLTable:
		g, err := decodeHTMLTable(content, r.p.htmlSelector)
		return g, nil, err
	case types.FormatJSONArray:
		recs, err := decodeJSONArray(content)
		if err != nil {
			return nil, nil, err
		}
		return nil, recs, nil
	case types.FormatJSONL:
		return nil, jsonlSource{content: content}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported format %q", r.format)
	}
}

func (r *run) tabular(g *grid) *dataset {
	kinds := inferKinds(g)
	colTypes := r.p.conn.Dialect().Types

	sqlTypes := make([]string, len(kinds))
	for i, k := range kinds {
		switch k {
		case kindInteger:
			sqlTypes[i] = colTypes.Integer
		case kindReal:
			sqlTypes[i] = colTypes.Real
		case kindBoolean:
			sqlTypes[i] = colTypes.Boolean
		default:
			sqlTypes[i] = colTypes.Text
		}
	}

	return &dataset{
		columns:  g.header,
		sqlTypes: sqlTypes,
		each: func(fn func([]any) error) error {
			values := make([]any, len(kinds))
			for _, row := range g.rows {
				for i, k := range kinds {
					values[i] = convert(k, row[i])
				}
				if err := fn(values); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// discover unions the record paths of src. Every path is stored as text.
func (r *run) discover(src schema.Source) (*dataset, error) {
	s, warnings, err := schema.Discover(src)
	if errors.Is(err, schema.ErrNoFields) {
		msg := msgEmptyJSONL
		if r.format == types.FormatJSONArray {
			msg = "JSON array objects have no fields"
		}
		return nil, &EmptyInputError{Msg: msg}
	}
	if err != nil {
		return nil, err
	}

	if len(warnings) > 0 {
		metrics.IncCounter(metrics.SkippedRecordsTotal, float64(len(warnings)), metrics.Labels{"format": string(r.format)})
	}

	sqlTypes := make([]string, s.Len())
	for i := range sqlTypes {
		sqlTypes[i] = r.p.conn.Dialect().Types.Text
	}

	return &dataset{
		columns:  s.Paths(),
		sqlTypes: sqlTypes,
		skipped:  warnings,
		each: func(fn func([]any) error) error {
			values := make([]any, s.Len())
			return schema.Each(src, s, func(_ int, row schema.Row) error {
				for i, v := range row {
					if v == nil {
						values[i] = nil
					} else {
						values[i] = *v
					}
				}
				return fn(values)
			})
		},
	}, nil
}

// load inserts every row in one transaction.
func (r *run) load(ctx context.Context, conn *sqlx.Conn, table string, columns []string, data *dataset) error {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin transaction", Err: err}
	}
	defer tx.Rollback()

	ins, err := newBulkInserter(ctx, r.p.conn.Builder(), tx, table, columns)
	if err != nil {
		return err
	}
	if err := data.each(ins.Add); err != nil {
		return err
	}
	if err := ins.Close(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	r.log.Debug("rows inserted", "rows", ins.written)
	return nil
}

func newIngestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
