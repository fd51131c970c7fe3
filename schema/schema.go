// Package schema unions the flattened paths of heterogeneous JSON records
// into one column set and projects records onto it.
package schema

import (
	"errors"

	"github.com/melkeydev/mcp-ingest/flatten"
	"github.com/melkeydev/mcp-ingest/types"
)

// RawRecord is one unit of input. Err is set when the unit could not be
// decoded; Line is its 1-based position in the source.
type RawRecord struct {
	Line  int
	Value any
	Err   error
}

// Source yields raw records. Every call to Scan starts from the beginning of
// the input, so a Source can be read once for discovery and again for loading.
type Source interface {
	Scan(fn func(rec RawRecord) error) error
}

// Records adapts already decoded values to a Source.
type Records []any

func (r Records) Scan(fn func(rec RawRecord) error) error {
	for i, v := range r {
		if err := fn(RawRecord{Line: i + 1, Value: v}); err != nil {
			return err
		}
	}
	return nil
}

// Schema is the ordered union of flattened paths. It is immutable once
// returned by Discover.
type Schema struct {
	paths []string
	index map[string]int
}

func (s Schema) Paths() []string {
	return append([]string(nil), s.paths...)
}

func (s Schema) Len() int {
	return len(s.paths)
}

func (s Schema) Index(path string) (int, bool) {
	i, ok := s.index[path]
	return i, ok
}

// ErrNoFields is returned by Discover when no record contributed a path.
var ErrNoFields = errors.New("no fields discovered")

// Row is a record projected onto a Schema, aligned with Schema.Paths.
// nil entries are SQL NULL.
type Row []*string

// Discover flattens every record of src and unions the paths in first-seen
// order. Records that failed to decode or are not objects are skipped and
// reported as warnings.
func Discover(src Source) (Schema, []types.Warning, error) {
	s := Schema{index: make(map[string]int)}
	var warnings []types.Warning

	err := src.Scan(func(rec RawRecord) error {
		flat, w := flattenRecord(rec)
		if w != nil {
			warnings = append(warnings, *w)
			return nil
		}
		for _, f := range flat {
			if _, ok := s.index[f.Path]; ok {
				continue
			}
			s.index[f.Path] = len(s.paths)
			s.paths = append(s.paths, f.Path)
		}
		return nil
	})
	if err != nil {
		return Schema{}, nil, err
	}
	if len(s.paths) == 0 {
		return Schema{}, warnings, ErrNoFields
	}
	return s, warnings, nil
}

// Materialize projects a flattened record onto s. Paths missing from the
// record are nil; paths unknown to s are dropped.
func Materialize(rec flatten.Record, s Schema) Row {
	row := make(Row, len(s.paths))
	for _, f := range rec {
		if i, ok := s.index[f.Path]; ok {
			row[i] = f.Value
		}
	}
	return row
}

// Each re-reads src and calls fn with every valid record materialized
// against s. Records skipped by Discover are skipped again without a warning.
func Each(src Source, s Schema, fn func(line int, row Row) error) error {
	return src.Scan(func(rec RawRecord) error {
		flat, w := flattenRecord(rec)
		if w != nil {
			return nil
		}
		return fn(rec.Line, Materialize(flat, s))
	})
}

func flattenRecord(rec RawRecord) (flatten.Record, *types.Warning) {
	if rec.Err != nil {
		return nil, &types.Warning{Line: rec.Line, Message: rec.Err.Error()}
	}
	switch rec.Value.(type) {
	case *flatten.Object, map[string]any:
		return flatten.Flatten(rec.Value, ""), nil
	default:
		return nil, &types.Warning{Line: rec.Line, Message: "record is not a JSON object"}
	}
}
