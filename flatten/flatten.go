// Package flatten turns nested JSON values into flat path -> text records.
//
// Object keys are joined with NestedDelimiter and array positions with
// IndexDelimiter, so {"data":{"items":[{"id":1}]}} becomes data__items_0__id = "1".
// Empty objects and arrays produce no fields; null is kept as a nil value.
package flatten

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

const (
	NestedDelimiter = "__"
	IndexDelimiter  = "_"
)

// Field is one flattened leaf. Value is nil for JSON null.
type Field struct {
	Path  string
	Value *string
}

// Record is a flattened object in path discovery order. Paths are unique.
type Record []Field

func (r Record) Paths() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.Path
	}
	return out
}

func (r Record) Map() map[string]*string {
	out := make(map[string]*string, len(r))
	for _, f := range r {
		out[f.Path] = f.Value
	}
	return out
}

// Flatten walks v and returns its leaves. prefix is prepended to every path
// and is normally empty.
func Flatten(v any, prefix string) Record {
	f := &flattener{index: make(map[string]int)}
	f.walk(v, prefix)
	return f.out
}

type flattener struct {
	out   Record
	index map[string]int
}

// Two different source paths can spell the same flat path ({"a":{"b":1}} and
// {"a__b":2}); the later value wins and keeps the earlier position.
func (f *flattener) emit(path string, v *string) {
	if i, ok := f.index[path]; ok {
		f.out[i].Value = v
		return
	}
	f.index[path] = len(f.out)
	f.out = append(f.out, Field{Path: path, Value: v})
}

func (f *flattener) walk(v any, prefix string) {
	switch t := v.(type) {
	case *Object:
		for _, k := range t.keys {
			f.walk(t.values[k], join(prefix, k, NestedDelimiter))
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			f.walk(t[k], join(prefix, k, NestedDelimiter))
		}
	case []any:
		for i, item := range t {
			f.walk(item, join(prefix, strconv.Itoa(i), IndexDelimiter))
		}
	case nil:
		f.emit(prefix, nil)
	default:
		s := Scalar(t)
		f.emit(prefix, &s)
	}
}

func join(prefix, key, delim string) string {
	if prefix == "" {
		return key
	}
	return prefix + delim + key
}

// Scalar renders a JSON scalar as text. Numbers keep their source spelling
// when decoded with UseNumber; booleans are "true" and "false".
func Scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
