package query

import "strings"

// ColumnTypes are the declared SQL types used when creating tables.
type ColumnTypes struct {
	Text    string
	Integer string
	Real    string
	Boolean string
}

// Dialect describes how a storage engine quotes identifiers, binds values
// and spells the handful of statements the ingestion path needs.
//
// Statement templates use {table} identifier slots and ? value placeholders.
type Dialect struct {
	Name        string
	DisplayName string
	// BindType is one of the sqlx bind types (sqlx.QUESTION, sqlx.DOLLAR, sqlx.AT).
	BindType   int
	QuoteOpen  string
	QuoteClose string
	// MaxParams bounds the number of bound values in one statement.
	MaxParams int
	Types     ColumnTypes

	ListTablesSQL string
	CountSQL      string
	SampleSQL     string
	DropSQL       string
}

// Quote wraps a validated identifier in the dialect's quote characters.
func (d Dialect) Quote(ident string) string {
	return d.QuoteOpen + strings.ReplaceAll(ident, d.QuoteClose, d.QuoteClose+d.QuoteClose) + d.QuoteClose
}

func (d Dialect) String() string {
	return d.DisplayName
}
