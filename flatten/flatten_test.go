package flatten

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUnmarshal(t *testing.T, s string) any {
	t.Helper()
	v, err := Unmarshal([]byte(s))
	require.NoError(t, err)
	return v
}

func str(s string) *string { return &s }

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Record
	}{
		{
			name: "nested object",
			in:   `{"user":{"name":"A","age":30}}`,
			want: Record{{"user__name", str("A")}, {"user__age", str("30")}},
		},
		{
			name: "array of scalars",
			in:   `{"tags":["a","b"]}`,
			want: Record{{"tags_0", str("a")}, {"tags_1", str("b")}},
		},
		{
			name: "array of objects",
			in:   `{"data":{"items":[{"id":1,"name":"Item 1"}]}}`,
			want: Record{{"data__items_0__id", str("1")}, {"data__items_0__name", str("Item 1")}},
		},
		{
			name: "empty containers vanish",
			in:   `{"a":{},"b":[],"c":1}`,
			want: Record{{"c", str("1")}},
		},
		{
			name: "null kept",
			in:   `{"email":null}`,
			want: Record{{"email", nil}},
		},
		{
			name: "scalars rendered as text",
			in:   `{"t":true,"f":false,"pi":3.14,"big":12345678901234567890,"exp":1e5}`,
			want: Record{
				{"t", str("true")}, {"f", str("false")}, {"pi", str("3.14")},
				{"big", str("12345678901234567890")}, {"exp", str("1e5")},
			},
		},
		{
			name: "nested arrays",
			in:   `{"m":[[1,2],[3]]}`,
			want: Record{{"m_0_0", str("1")}, {"m_0_1", str("2")}, {"m_1_0", str("3")}},
		},
		{
			name: "colliding paths keep first position",
			in:   `{"a":{"b":1},"x":0,"a__b":2}`,
			want: Record{{"a__b", str("2")}, {"x", str("0")}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Flatten(mustUnmarshal(t, tc.in), "")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFlattenPlainMapIsSorted(t *testing.T) {
	got := Flatten(map[string]any{"b": 1, "a": map[string]any{"z": nil, "y": "v"}}, "")
	assert.Equal(t, []string{"a__y", "a__z", "b"}, got.Paths())
}

func TestFlattenPrefix(t *testing.T) {
	got := Flatten(mustUnmarshal(t, `{"id":7}`), "root")
	assert.Equal(t, []string{"root__id"}, got.Paths())
}

func TestRecordMap(t *testing.T) {
	m := Flatten(mustUnmarshal(t, `{"a":"x","b":null}`), "").Map()
	require.Contains(t, m, "b")
	assert.Nil(t, m["b"])
	assert.Equal(t, "x", *m["a"])
}

func TestUnmarshal(t *testing.T) {
	obj, ok := mustUnmarshal(t, `{"z":1,"a":2,"m":3}`).(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	_, err := Unmarshal([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`{"a":`))
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`this is not json`))
	assert.Error(t, err)
}

func TestDecodeElementsNotArray(t *testing.T) {
	decode := func(doc string) error {
		dec := json.NewDecoder(strings.NewReader(doc))
		dec.UseNumber()
		return DecodeElements(dec, func(int, any) error { return nil })
	}

	assert.ErrorIs(t, decode(`{"a": [1, 2]}`), ErrNotArray)
	assert.ErrorIs(t, decode(`"text"`), ErrNotArray)

	err := decode(`{bad`)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotArray), "malformed input is a syntax error: %v", err)

	var n int
	dec := json.NewDecoder(strings.NewReader(`[{"a":1},{"b":2}]`))
	require.NoError(t, DecodeElements(dec, func(i int, v any) error {
		_, ok := v.(*Object)
		assert.True(t, ok)
		n++
		return nil
	}))
	assert.Equal(t, 2, n)
}
