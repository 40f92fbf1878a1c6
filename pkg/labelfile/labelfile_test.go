package labelfile

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-labeler/pkg/types"
)

func TestParse(t *testing.T) {
	records, errs := ParseString("0 0.5 0.5 0.2 0.4\n-3 0.1 0.2 0.3 0.4\n")
	require.Empty(t, errs)
	require.Len(t, records, 2)

	assert.Equal(t, types.Record{Class: 0, CX: 0.5, CY: 0.5, W: 0.2, H: 0.4}, records[0])
	assert.Equal(t, -3, records[1].Class)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	text := "1 0.1 0.1 0.1 0.1\n" +
		"2 0.2 0.2 0.2 0.2\n" +
		"bad line here\n" +
		"3 0.3 0.3 0.3 0.3\n" +
		"4 0.4 0.4 0.4 0.4\n"

	records, errs := ParseString(text)
	require.Len(t, records, 4)
	for i, r := range records {
		assert.Equal(t, i+1, r.Class, "records must keep file order")
	}

	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], types.ErrMalformedRecord))

	var mre *types.MalformedRecordError
	require.ErrorAs(t, errs[0], &mre)
	assert.Equal(t, 3, mre.Line)
}

func TestParseSurvivesOverlongLine(t *testing.T) {
	text := "0 0.5 0.5 0.2 0.4\n" +
		strings.Repeat("x", 70000) + "\n" +
		"1 0.25 0.25 0.1 0.1\n" +
		"2 0.75 0.75 0.1 0.1\n"

	records, errs := ParseString(text)
	require.Len(t, records, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{records[0].Class, records[1].Class, records[2].Class})

	require.Len(t, errs, 1)
	var malformed *types.MalformedRecordError
	require.True(t, errors.As(errs[0], &malformed))
	assert.Equal(t, 2, malformed.Line)
	assert.Less(t, len(malformed.Text), 100)
}

func TestParseFinalLineWithoutNewline(t *testing.T) {
	records, errs := ParseString("0 0.5 0.5 0.2 0.4\n3 0.1 0.1 0.1 0.1")
	assert.Empty(t, errs)
	require.Len(t, records, 2)
	assert.Equal(t, 3, records[1].Class)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"too few fields":  "1 0.5 0.5 0.5",
		"too many fields": "1 0.5 0.5 0.5 0.5 0.5",
		"float class":     "1.5 0.5 0.5 0.5 0.5",
		"word coordinate": "1 0.5 abc 0.5 0.5",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			records, errs := ParseString(line)
			assert.Empty(t, records)
			assert.Len(t, errs, 1)
		})
	}
}

func TestParseIgnoresBlankLines(t *testing.T) {
	records, errs := ParseString("\n  \n0 0.5 0.5 0.2 0.4\n\n")
	assert.Empty(t, errs)
	assert.Len(t, records, 1)
}

func TestFormat(t *testing.T) {
	out := FormatString([]types.Record{
		{Class: 0, CX: 0.5, CY: 0.5, W: 0.2, H: 0.4},
		{Class: 12, CX: 1.0 / 3, CY: 0.25, W: 0.1, H: 0.0},
	})
	assert.Equal(t, "0 0.500000 0.500000 0.200000 0.400000\n12 0.333333 0.250000 0.100000 0.000000\n", out)

	assert.Equal(t, "", FormatString(nil))
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, "dataset/cats/a.txt", PathFor("dataset/cats/a.jpg", ""))
	assert.Equal(t, "dataset/cats/a.b.txt", PathFor("dataset/cats/a.b.PNG", ".txt"))
	assert.Equal(t, "x/y.lbl", PathFor("x/y.jpeg", "lbl"))
	assert.Equal(t, "noext.txt", PathFor("noext", ""))
}
