package lut

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	keywordTitle  = "TITLE"
	keywordSize3D = "LUT_3D_SIZE"
	maxLineBytes  = 1 << 20
	// maxValues bounds buffered data: no valid table holds more floats.
	maxValues     = 3 * MaxSize * MaxSize * MaxSize
)

var errNonFinite = errors.New("non-finite value")

// ignoredKeywords are standard .cube directives that carry no information for
// a [0,1]-domain 3D table.
var ignoredKeywords = map[string]struct{}{
	"DOMAIN_MIN":         {},
	"DOMAIN_MAX":         {},
	"LUT_1D_SIZE":        {},
	"LUT_1D_INPUT_RANGE": {},
	"LUT_3D_INPUT_RANGE": {},
}

// Parse converts .cube text into a Table.
//
// When LUT_3D_SIZE appears more than once the last value wins, wherever it
// sits relative to the data rows. Without a directive the size defaults to
// DefaultSize.
func Parse(data []byte) (*Table, error) {
	return ParseReader(bytes.NewReader(data))
}

// ParseReader is Parse over a stream.
func ParseReader(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		size   = DefaultSize
		title  string
		values = make([]float32, 0, 3*DefaultSize*DefaultSize*DefaultSize)
		lineNo int
	)

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch keyword := fields[0]; {
		case keyword == keywordTitle:
			title = parseTitle(line)
		case keyword == keywordSize3D:
			n, err := parseSize(fields, lineNo, line)
			if err != nil {
				return nil, err
			}
			size = n
		case isKeyword(keyword):
			if _, ok := ignoredKeywords[keyword]; ok {
				if err := checkNumeric(fields[1:], lineNo, line); err != nil {
					return nil, err
				}
			}
			// Unknown vendor directives are skipped.
		default:
			row, err := parseRow(fields, lineNo, line)
			if err != nil {
				return nil, err
			}
			if len(values) >= maxValues {
				return nil, &SizeMismatchError{Expected: 3 * size * size * size, Actual: len(values) + 3}
			}
			values = append(values, row[0], row[1], row[2])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lut: %w", err)
	}

	expected := 3 * size * size * size
	if len(values) != expected {
		return nil, &SizeMismatchError{Expected: expected, Actual: len(values)}
	}

	entries := make([]RGB, size*size*size)
	for i := range entries {
		entries[i] = RGB{R: values[3*i], G: values[3*i+1], B: values[3*i+2]}
	}
	return &Table{size: size, title: title, entries: entries}, nil
}

func parseTitle(line string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(line, keywordTitle))
	if start := strings.Index(rest, `"`); start != -1 {
		if end := strings.LastIndex(rest, `"`); end > start {
			return rest[start+1 : end]
		}
	}
	return rest
}

func parseSize(fields []string, lineNo int, line string) (int, error) {
	if len(fields) != 2 {
		return 0, &MalformedRowError{Line: lineNo, Text: line}
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, &MalformedRowError{Line: lineNo, Text: line, Err: err}
	}
	if n < 2 || n > MaxSize {
		return 0, fmt.Errorf("%w: %d at line %d", ErrInvalidSize, n, lineNo)
	}
	return n, nil
}

func parseRow(fields []string, lineNo int, line string) ([3]float32, error) {
	var row [3]float32
	if len(fields) != 3 {
		return row, &MalformedRowError{Line: lineNo, Text: line}
	}
	for i, field := range fields {
		v, err := parseFloat(field)
		if err != nil {
			return row, &MalformedRowError{Line: lineNo, Text: line, Err: err}
		}
		row[i] = v
	}
	return row, nil
}

func checkNumeric(fields []string, lineNo int, line string) error {
	for _, field := range fields {
		if _, err := parseFloat(field); err != nil {
			return &MalformedRowError{Line: lineNo, Text: line, Err: err}
		}
	}
	return nil
}

func parseFloat(field string) (float32, error) {
	v, err := strconv.ParseFloat(field, 32)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNonFinite
	}
	return float32(v), nil
}

// isKeyword reports whether token is a .cube directive: one of the standard
// keywords, or an upper-case vendor identifier containing an underscore such as
// LUT_IN_VIDEO_RANGE. Any other non-numeric token is a corrupt data row.
func isKeyword(token string) bool {
	if _, ok := ignoredKeywords[token]; ok {
		return true
	}
	if !strings.Contains(token, "_") || token[0] < 'A' || token[0] > 'Z' {
		return false
	}
	for i := 1; i < len(token); i++ {
		c := token[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}
