package lut_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubemix/internal/lut"
)

func cubeText(size int, header string) string {
	var b strings.Builder
	b.WriteString(header)
	step := 1 / float64(size-1)
	for bi := 0; bi < size; bi++ {
		for gi := 0; gi < size; gi++ {
			for ri := 0; ri < size; ri++ {
				fmt.Fprintf(&b, "%g %g %g\n", float64(ri)*step, float64(gi)*step, float64(bi)*step)
			}
		}
	}
	return b.String()
}

func TestParseExplicitSize(t *testing.T) {
	table, err := lut.Parse([]byte(cubeText(4, "LUT_3D_SIZE 4\n")))
	require.NoError(t, err)
	assert.Equal(t, 4, table.Size())
	assert.Equal(t, 64, table.Len())
	assert.Equal(t, lut.RGB{R: 1, G: 0, B: 0}, table.At(3, 0, 0))
	assert.Equal(t, lut.RGB{R: 0, G: 0, B: 1}, table.At(0, 0, 3))
}

func TestParseDefaultsTo32(t *testing.T) {
	table, err := lut.Parse([]byte(cubeText(32, "")))
	require.NoError(t, err)
	assert.Equal(t, lut.DefaultSize, table.Size())
}

func TestParseLastSizeWins(t *testing.T) {
	text := "LUT_3D_SIZE 8\n" + cubeText(2, "") + "LUT_3D_SIZE 2\n"
	table, err := lut.Parse([]byte(text))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Size())
}

func TestParseInvalidSize(t *testing.T) {
	cases := []string{"LUT_3D_SIZE 1\n", "LUT_3D_SIZE 0\n", "LUT_3D_SIZE -4\n", "LUT_3D_SIZE 257\n"}
	for _, text := range cases {
		_, err := lut.Parse([]byte(text))
		require.Error(t, err, text)
		assert.ErrorIs(t, err, lut.ErrInvalidSize, text)
		assert.ErrorIs(t, err, lut.ErrParse, text)
	}
}

func TestParseNonIntegerSizeIsMalformed(t *testing.T) {
	_, err := lut.Parse([]byte("LUT_3D_SIZE abc\n"))
	var rowErr *lut.MalformedRowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 1, rowErr.Line)
}

func TestParseSizeMismatch(t *testing.T) {
	full := cubeText(32, "LUT_3D_SIZE 32\n")
	lines := strings.Split(strings.TrimSuffix(full, "\n"), "\n")
	// drop the final row: one row short is three floats short
	truncated := strings.Join(lines[:len(lines)-1], "\n") + "\n"

	_, err := lut.Parse([]byte(truncated))
	var mismatch *lut.SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 98304, mismatch.Expected)
	assert.Equal(t, 98301, mismatch.Actual)
	assert.ErrorIs(t, err, lut.ErrParse)
}

func TestParseMalformedRows(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"two fields", "0.1 0.2"},
		{"four fields", "0.1 0.2 0.3 0.4"},
		{"not a number", "0.1 abc 0.3"},
		{"nan", "0.1 NaN 0.3"},
		{"inf", "0.1 0.2 +Inf"},
		{"letter prefixed value", "X1 1 1"},
		{"exponent without mantissa", "E5 0 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := "LUT_3D_SIZE 2\n# comment\n" + tc.row + "\n"
			_, err := lut.Parse([]byte(text))
			var rowErr *lut.MalformedRowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, 3, rowErr.Line)
			assert.Equal(t, tc.row, rowErr.Text)
			assert.ErrorIs(t, err, lut.ErrParse)
		})
	}
}

func TestParseCorruptRowInsideData(t *testing.T) {
	lines := strings.Split(cubeText(2, "LUT_3D_SIZE 2\n"), "\n")
	lines[7] = "X1 1 1"
	_, err := lut.Parse([]byte(strings.Join(lines, "\n")))
	var rowErr *lut.MalformedRowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 8, rowErr.Line)

	extra := cubeText(2, "LUT_3D_SIZE 2\n") + "E5 0 0\n"
	_, err = lut.Parse([]byte(extra))
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 10, rowErr.Line)
}

// endlessRows yields "0 0 0" rows forever.
type endlessRows struct{ off int }

func (r *endlessRows) Read(p []byte) (int, error) {
	const row = "0 0 0\n"
	for i := range p {
		p[i] = row[r.off%len(row)]
		r.off++
	}
	return len(p), nil
}

func TestParseStopsOnOversizedData(t *testing.T) {
	if testing.Short() {
		t.Skip("buffers the largest accepted table")
	}
	_, err := lut.ParseReader(&endlessRows{})
	var mismatch *lut.SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 3*lut.DefaultSize*lut.DefaultSize*lut.DefaultSize, mismatch.Expected)
	assert.Greater(t, mismatch.Actual, 3*lut.MaxSize*lut.MaxSize*lut.MaxSize)
}

func TestParseSkipsCommentsAndDirectives(t *testing.T) {
	header := "\ufeff# exported by a grading tool\r\n" +
		"TITLE \"Warm Film\"\r\n" +
		"DOMAIN_MIN 0 0 0\r\n" +
		"DOMAIN_MAX 1 1 1\r\n" +
		"LUT_IN_VIDEO_RANGE\r\n" +
		"\r\n" +
		"LUT_3D_SIZE 2\r\n"
	text := strings.ReplaceAll(cubeText(2, ""), "\n", "\r\n")
	table, err := lut.Parse([]byte(header + text))
	require.NoError(t, err)
	assert.Equal(t, "Warm Film", table.Title())
	assert.Equal(t, 2, table.Size())
}

func TestParseDomainDirectiveMustBeNumeric(t *testing.T) {
	_, err := lut.Parse([]byte("DOMAIN_MIN zero 0 0\n"))
	var rowErr *lut.MalformedRowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 1, rowErr.Line)
}

func TestParseEmptyInput(t *testing.T) {
	_, err := lut.Parse(nil)
	var mismatch *lut.SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 0, mismatch.Actual)
}

func TestWriteRoundTrip(t *testing.T) {
	src := cubeText(5, "TITLE \"Round Trip\"\nLUT_3D_SIZE 5\n")
	first, err := lut.Parse([]byte(src))
	require.NoError(t, err)

	second, err := lut.Parse(lut.Marshal(first))
	require.NoError(t, err)
	assert.Equal(t, first.Size(), second.Size())
	assert.Equal(t, first.Title(), second.Title())
	assert.Equal(t, first.Entries(), second.Entries())
}

func TestWriteRoundTripPreservesOutOfRangeValues(t *testing.T) {
	entries := lut.Identity(2).Entries()
	entries[0] = lut.RGB{R: -0.125, G: 1.5, B: 0.333333}
	table, err := lut.NewTable(2, entries)
	require.NoError(t, err)

	parsed, err := lut.Parse(lut.Marshal(table))
	require.NoError(t, err)
	assert.Equal(t, table.Entries(), parsed.Entries())
	lo, hi := parsed.Range()
	assert.Equal(t, float32(-0.125), lo)
	assert.Equal(t, float32(1.5), hi)
}

func TestNewTableValidates(t *testing.T) {
	_, err := lut.NewTable(1, nil)
	assert.True(t, errors.Is(err, lut.ErrInvalidSize))

	_, err = lut.NewTable(2, make([]lut.RGB, 7))
	var mismatch *lut.SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 24, mismatch.Expected)
	assert.Equal(t, 21, mismatch.Actual)
}
