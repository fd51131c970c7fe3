package identifier

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: "users", want: "users"},
		{name: "extension stripped", raw: "users.csv", want: "users"},
		{name: "only last extension", raw: "archive.tar.gz", want: "archive_tar"},
		{name: "spaces and hyphens", raw: "my-table name.json", want: "my_table_name"},
		{name: "leading digit", raw: "123data.csv", want: "_123data"},
		{name: "extension only", raw: ".csv", want: "table"},
		{name: "empty", raw: "", want: "table"},
		{name: "injection", raw: "users; DROP TABLE users; --", want: "users__DROP_TABLE_users____"},
		{name: "quote", raw: `a"b`, want: "a_b"},
		{name: "unicode", raw: "café", want: "caf_"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.raw, Table))
		})
	}
}

func TestSanitizeColumn(t *testing.T) {
	assert.Equal(t, "user__name", Sanitize("user__name", Column))
	assert.Equal(t, "a_b", Sanitize("a.b", Column), "columns keep everything before a dot")
	assert.Equal(t, "column", Sanitize("", Column))
	assert.Equal(t, "_1st", Sanitize("1st", Column))
}

func TestSanitizeFallsBackForDeniedNames(t *testing.T) {
	got := Sanitize("select", Column)
	assert.True(t, strings.HasPrefix(got, "column_"), got)
	assert.Len(t, got, len("column_")+8)
	assert.NoError(t, Validate(got, Column))

	// Deterministic for the same input.
	assert.Equal(t, got, Sanitize("select", Column))
	assert.NotEqual(t, got[len("column_"):], Sanitize("select", Table)[len("table_"):], "kind is part of the hash input")

	tbl := Sanitize("sqlite_master", Table)
	assert.True(t, strings.HasPrefix(tbl, "table_"), tbl)
}

func TestSanitizeTruncatesLongNames(t *testing.T) {
	got := Sanitize(strings.Repeat("a", 100), Column)
	assert.Len(t, got, MaxLength)
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"users", "users.csv", "a.b.c", "  spaced  ", "DROP", "drop.csv", "🙂", "x-y-z",
		"123", "_", "__", "table", "column", strings.Repeat("x.", 50), `"; DELETE FROM t`,
		"pg_catalog", "Robert'); DROP TABLE Students;--",
	}
	for _, kind := range []Kind{Table, Column} {
		for _, in := range inputs {
			once := Sanitize(in, kind)
			require.NoError(t, Validate(once, kind), "input %q kind %s", in, kind)
			assert.Equal(t, once, Sanitize(once, kind), "input %q kind %s", in, kind)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		ident string
		kind  Kind
		ok    bool
	}{
		{"users", Table, true},
		{"_private", Column, true},
		{"order", Column, true},
		{"", Column, false},
		{"1abc", Column, false},
		{"a b", Column, false},
		{"a;b", Table, false},
		{"Select", Column, false},
		{"sqlite_sequence", Table, false},
		{"sqlite_thing", Column, true},
		{strings.Repeat("a", MaxLength+1), Table, false},
	}
	for _, tc := range tests {
		err := Validate(tc.ident, tc.kind)
		if tc.ok {
			assert.NoError(t, err, tc.ident)
			continue
		}
		require.Error(t, err, tc.ident)
		assert.True(t, errors.Is(err, ErrInvalid))
	}
}

func TestResolveReportsFallback(t *testing.T) {
	name, err := Resolve("users.csv", Table)
	require.NoError(t, err)
	assert.Equal(t, "users", name)

	name, err = Resolve("update", Column)
	assert.ErrorIs(t, err, ErrReserved)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, Sanitize("update", Column), name)

	_, err = Resolve("pg_stats", Table)
	assert.ErrorIs(t, err, ErrReserved)
}
