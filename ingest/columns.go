package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/melkeydev/mcp-ingest/identifier"
	"github.com/melkeydev/mcp-ingest/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var separators = strings.NewReplacer(" ", "_", "-", "_")

// normalizeColumn lowercases name and turns spaces and hyphens into
// underscores.
func normalizeColumn(c cases.Caser, name string) string {
	return separators.Replace(c.String(name))
}

// columnNames maps raw column names to unique, sanitized identifiers in the
// same order. Names replaced by a hashed fallback or renamed to avoid a
// collision are reported as warnings.
func columnNames(raw []string) ([]string, []types.Warning) {
	lower := cases.Lower(language.Und)

	out := make([]string, len(raw))
	seen := make(map[string]struct{}, len(raw))
	var warnings []types.Warning

	for i, r := range raw {
		name, err := identifier.Resolve(normalizeColumn(lower, r), identifier.Column)
		if err != nil {
			warnings = append(warnings, renameWarning(identifier.Column, r, name, err))
		}
		unique := name
		for n := 2; ; n++ {
			if _, dup := seen[strings.ToLower(unique)]; !dup {
				break
			}
			suffix := "_" + strconv.Itoa(n)
			base := name
			if len(base)+len(suffix) > identifier.MaxLength {
				base = base[:identifier.MaxLength-len(suffix)]
			}
			unique = base + suffix
		}
		if unique != name {
			warnings = append(warnings, types.Warning{
				Message: fmt.Sprintf("column %q renamed to %q to keep names unique", r, unique),
			})
		}
		seen[strings.ToLower(unique)] = struct{}{}
		out[i] = unique
	}
	return out, warnings
}

// renameWarning reports raw being replaced by the fallback name.
func renameWarning(kind identifier.Kind, raw, name string, err error) types.Warning {
	reason := "invalid name"
	if errors.Is(err, identifier.ErrReserved) {
		reason = "reserved name"
	}
	return types.Warning{Message: fmt.Sprintf("%s %q renamed to %q (%s)", kind, raw, name, reason)}
}
