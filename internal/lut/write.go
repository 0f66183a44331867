package lut

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// Write encodes t as .cube text in red-fastest order. Values use the shortest
// representation that round-trips a float32, so Parse(Write(t)) == t.
func Write(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	if t.title != "" {
		if _, err := fmt.Fprintf(bw, "TITLE %q\n", t.title); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "LUT_3D_SIZE %d\n\n", t.size); err != nil {
		return err
	}

	buf := make([]byte, 0, 48)
	for _, e := range t.entries {
		buf = buf[:0]
		buf = strconv.AppendFloat(buf, float64(e.R), 'g', -1, 32)
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, float64(e.G), 'g', -1, 32)
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, float64(e.B), 'g', -1, 32)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Marshal returns the .cube encoding of t.
func Marshal(t *Table) []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes cannot fail.
	_ = Write(&buf, t)
	return buf.Bytes()
}
