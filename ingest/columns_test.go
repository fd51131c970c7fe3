package ingest

import (
	"strings"
	"testing"

	"github.com/melkeydev/mcp-ingest/identifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnNames(t *testing.T) {
	got, warnings := columnNames([]string{"User Name", "user-name", "ÄGE", "", "", "1st", "select"})

	assert.Equal(t, "user_name", got[0])
	assert.Equal(t, "user_name_2", got[1])
	assert.Equal(t, "_ge", got[2])
	assert.Equal(t, "column", got[3])
	assert.Equal(t, "column_2", got[4])
	assert.Equal(t, "_1st", got[5])
	assert.True(t, strings.HasPrefix(got[6], "column_"))
	require.Len(t, warnings, 3)
	assert.Equal(t, `column "select" renamed to "`+got[6]+`" (reserved name)`, warnings[2].Message)
}

func TestColumnNamesKeepSuffixWithinLimit(t *testing.T) {
	long := strings.Repeat("x", 80)
	got, _ := columnNames([]string{long, long})
	assert.Len(t, got[0], identifier.MaxLength)
	assert.Len(t, got[1], identifier.MaxLength)
	assert.True(t, strings.HasSuffix(got[1], "_2"))
}

func TestInferKinds(t *testing.T) {
	g := &grid{
		header: []string{"i", "f", "b", "t", "e", "mixed"},
		rows: [][]string{
			{"1", "1.5", "true", "a", "", "1"},
			{"-2", "2", "False", "b", " ", "x"},
			{"", "", "", "", "", ""},
		},
	}
	assert.Equal(t, []valueKind{kindInteger, kindReal, kindBoolean, kindText, kindText, kindText}, inferKinds(g))
}

func TestConvert(t *testing.T) {
	assert.Equal(t, int64(-2), convert(kindInteger, " -2 "))
	assert.Equal(t, 2.5, convert(kindReal, "2.5"))
	assert.Equal(t, true, convert(kindBoolean, "TRUE"))
	assert.Equal(t, " padded ", convert(kindText, " padded "))
	assert.Nil(t, convert(kindText, "   "))
}
