// Package identifier turns arbitrary user-supplied names into SQL identifiers
// that are safe to place between quotes in a statement.
package identifier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type Kind int

const (
	Table Kind = iota
	Column
)

func (k Kind) String() string {
	if k == Table {
		return "table"
	}
	return "column"
}

// MaxLength is the longest identifier every supported engine accepts
// without truncating (PostgreSQL's NAMEDATALEN - 1).
const MaxLength = 63

var (
	ErrInvalid  = errors.New("invalid identifier")
	ErrReserved = errors.New("reserved name")
)

var grammar = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Statement keywords are refused even though they would be quoted.
var denied = map[string]struct{}{
	"select": {}, "insert": {}, "update": {}, "delete": {}, "drop": {},
	"alter": {}, "create": {}, "truncate": {}, "replace": {}, "merge": {},
	"pragma": {}, "attach": {}, "detach": {}, "vacuum": {}, "reindex": {},
	"exec": {}, "execute": {}, "grant": {}, "revoke": {}, "union": {},
	"commit": {}, "rollback": {}, "savepoint": {}, "begin": {},
}

// Tables may not shadow engine catalogs.
var reservedTablePrefixes = []string{"sqlite_", "pg_", "information_schema"}

// Sanitize maps raw to an identifier of the given kind. It never fails and
// Sanitize(Sanitize(x, k), k) == Sanitize(x, k).
func Sanitize(raw string, kind Kind) string {
	name, _ := Resolve(raw, kind)
	return name
}

// Resolve is Sanitize that also returns the Validate error which forced the
// hashed fallback name, or nil when the cleaned name was accepted.
func Resolve(raw string, kind Kind) (string, error) {
	name := raw
	if kind == Table {
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[:i]
		}
	}

	var b strings.Builder
	b.Grow(len(name) + 1)
	for _, r := range name {
		if isWordRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()

	if out != "" && !isLeadRune(rune(out[0])) {
		out = "_" + out
	}
	if out == "" {
		out = kind.String()
	}
	if len(out) > MaxLength {
		out = out[:MaxLength]
	}

	if err := Validate(out, kind); err != nil {
		return fallback(raw, kind), err
	}
	return out, nil
}

// Validate checks ident against the identifier grammar and the denylists.
func Validate(ident string, kind Kind) error {
	switch {
	case ident == "":
		return fmt.Errorf("%w: empty %s name", ErrInvalid, kind)
	case len(ident) > MaxLength:
		return fmt.Errorf("%w: %s name %q longer than %d characters", ErrInvalid, kind, ident, MaxLength)
	case !grammar.MatchString(ident):
		return fmt.Errorf("%w: %s name %q has characters outside [A-Za-z0-9_]", ErrInvalid, kind, ident)
	}

	lower := strings.ToLower(ident)
	if _, ok := denied[lower]; ok {
		return fmt.Errorf("%w: %w: %s name %q is a SQL keyword", ErrInvalid, ErrReserved, kind, ident)
	}
	if kind == Table {
		for _, p := range reservedTablePrefixes {
			if strings.HasPrefix(lower, p) {
				return fmt.Errorf("%w: %w: table name %q uses prefix %q", ErrInvalid, ErrReserved, ident, p)
			}
		}
	}
	return nil
}

func fallback(raw string, kind Kind) string {
	h := uuid.NewSHA1(uuid.NameSpaceOID, []byte(raw+kind.String()))
	return kind.String() + "_" + strings.ReplaceAll(h.String(), "-", "")[:8]
}

func isWordRune(r rune) bool {
	return isLeadRune(r) || ('0' <= r && r <= '9')
}

func isLeadRune(r rune) bool {
	return r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}
