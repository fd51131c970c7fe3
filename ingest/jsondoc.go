package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/melkeydev/mcp-ingest/flatten"
	"github.com/melkeydev/mcp-ingest/schema"
)

// maxJSONLLine bounds a single JSONL record.
const maxJSONLLine = 64 << 20

// decodeJSONArray parses the whole document. Any syntax error is fatal.
func decodeJSONArray(content []byte) (schema.Records, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, &EmptyInputError{Msg: "JSON file is empty"}
	}

	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var recs schema.Records
	err := flatten.DecodeElements(dec, func(_ int, v any) error {
		if _, ok := v.(*flatten.Object); !ok {
			return &InputShapeError{Msg: msgNotArrayOfObjects}
		}
		recs = append(recs, v)
		return nil
	})

	var shape *InputShapeError
	switch {
	case errors.Is(err, flatten.ErrNotArray):
		return nil, &InputShapeError{Msg: msgNotArrayOfObjects}
	case errors.As(err, &shape):
		return nil, shape
	case err != nil:
		return nil, &DecodeError{Err: err}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Err: errors.New("unexpected data after JSON array")}
	}
	if len(recs) == 0 {
		return nil, &EmptyInputError{Msg: msgEmptyJSONArray}
	}
	return recs, nil
}

// jsonlSource yields one record per non-blank line. Lines that do not parse
// are yielded with Err set so discovery can report and skip them.
type jsonlSource struct {
	content []byte
}

func (s jsonlSource) Scan(fn func(schema.RawRecord) error) error {
	sc := bufio.NewScanner(bytes.NewReader(s.content))
	sc.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)

	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}

		rec := schema.RawRecord{Line: line}
		v, err := flatten.Unmarshal(text)
		if err != nil {
			rec.Err = fmt.Errorf("invalid JSON: %w", err)
		} else {
			rec.Value = v
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return &DecodeError{Line: line + 1, Err: err}
	}
	return nil
}
