package ingest

import (
	"fmt"

	"github.com/melkeydev/mcp-ingest/types"
)

// Stage names a step of an ingestion run.
type Stage string

const (
	StageConnecting      Stage = "connecting"
	StageDecoding        Stage = "decoding"
	StageSchemaDiscovery Stage = "schema_discovery"
	StageNormalizing     Stage = "normalizing"
	StageTableCreation   Stage = "table_creation"
	StageBulkLoad        Stage = "bulk_load"
	StageIntrospection   Stage = "introspection"
)

// Error is returned by every failed run. Use errors.As to reach the cause:
// *InputShapeError, *EmptyInputError, *DecodeError, *query.QueryError or
// *StorageError.
type Error struct {
	Format types.Format
	Store  string
	Stage  Stage
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("Error converting %s to %s: %v", e.Format.Label(), e.Store, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// InputShapeError means the input decoded but is not shaped like a table.
type InputShapeError struct {
	Msg string
}

func (e *InputShapeError) Error() string { return e.Msg }

// EmptyInputError means there was nothing usable to load.
type EmptyInputError struct {
	Msg string
}

func (e *EmptyInputError) Error() string { return e.Msg }

// DecodeError is a fatal parse failure. Line is the 1-based line or table
// row where it happened, or 0 when unknown.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StorageError wraps a failure reported by the database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

const (
	msgNotArrayOfObjects = "JSON must be an array of objects"
	msgEmptyJSONArray    = "JSON array is empty"
	msgEmptyJSONL        = "JSONL file is empty or contains no valid records"
)
