package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// grid is a decoded delimited or HTML table: a header and rectangular rows.
type grid struct {
	header []string
	rows   [][]string
}

func decodeDelimited(content []byte, delim rune) (*grid, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, &EmptyInputError{Msg: "CSV file is empty"}
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = delim
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, csvDecodeError(err)
	}
	r.FieldsPerRecord = len(header)

	g := &grid{header: header}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvDecodeError(err)
		}
		g.rows = append(g.rows, rec)
	}
	return g, nil
}

func csvDecodeError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &DecodeError{Line: pe.Line, Err: pe.Err}
	}
	return &DecodeError{Err: err}
}

// decodeHTMLTable reads the first element matching selector. A leading row
// made only of <th> cells is the header, otherwise the first row is.
func decodeHTMLTable(content []byte, selector string) (*grid, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, &InputShapeError{Msg: fmt.Sprintf("HTML must contain an element matching %q", selector)}
	}

	g := &grid{}
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// Skip rows of nested tables.
		if goquery.NodeName(table) == "table" && !tr.Closest("table").IsSelection(table) {
			return
		}
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}
		texts := cells.Map(func(_ int, s *goquery.Selection) string {
			return strings.TrimSpace(s.Text())
		})
		if g.header == nil {
			g.header = texts
			return
		}
		g.rows = append(g.rows, texts)
	})

	if g.header == nil {
		return nil, &EmptyInputError{Msg: "HTML table is empty"}
	}
	for i, row := range g.rows {
		if len(row) != len(g.header) {
			return nil, &DecodeError{
				Line: i + 2,
				Err:  fmt.Errorf("row has %d cells, header has %d", len(row), len(g.header)),
			}
		}
	}
	return g, nil
}

// valueKind is the inferred type of a tabular column.
type valueKind int

const (
	kindText valueKind = iota
	kindInteger
	kindBoolean
	kindReal
)

func (k valueKind) String() string {
	switch k {
	case kindInteger:
		return "integer"
	case kindBoolean:
		return "boolean"
	case kindReal:
		return "real"
	default:
		return "text"
	}
}

// inferKinds picks the most specific kind every non-empty cell of a column
// parses as. Columns with no values are text.
func inferKinds(g *grid) []valueKind {
	out := make([]valueKind, len(g.header))
	for col := range g.header {
		var seen bool
		allInt, allBool, allFloat := true, true, true

		for _, r := range g.rows {
			v := strings.TrimSpace(r[col])
			if v == "" {
				continue
			}
			seen = true
			if allInt {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					allInt = false
				}
			}
			if allBool {
				if _, ok := parseBool(v); !ok {
					allBool = false
				}
			}
			if allFloat {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					allFloat = false
				}
			}
			if !allInt && !allBool && !allFloat {
				break
			}
		}

		switch {
		case !seen:
			out[col] = kindText
		case allInt:
			out[col] = kindInteger
		case allBool:
			out[col] = kindBoolean
		case allFloat:
			out[col] = kindReal
		default:
			out[col] = kindText
		}
	}
	return out
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// convert turns a cell into the Go value bound for its column. Empty cells
// are NULL; text cells keep their original spacing.
func convert(k valueKind, raw string) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	switch k {
	case kindInteger:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case kindBoolean:
		b, _ := parseBool(v)
		return b
	case kindReal:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return raw
	}
}
