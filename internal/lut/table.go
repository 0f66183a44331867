package lut

import (
	"fmt"
	"math"
)

const (
	// DefaultSize is the grid size assumed when a file has no LUT_3D_SIZE directive.
	DefaultSize = 32
	// MaxSize bounds the grid resolution accepted from untrusted input.
	MaxSize = 256
)

// RGB is a colour triple. Components are nominally in [0, 1].
type RGB struct {
	R, G, B float32
}

// Clamp01 returns c with every component clipped to [0, 1]. NaN maps to 0.
func (c RGB) Clamp01() RGB {
	return RGB{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}
}

// Mul multiplies c by m per channel.
func (c RGB) Mul(m RGB) RGB {
	return RGB{R: c.R * m.R, G: c.G * m.G, B: c.B * m.B}
}

// Lerp blends a towards b by t. The a*(1-t) + b*t form keeps t == 0 and
// t == 1 exact.
func Lerp(a, b RGB, t float32) RGB {
	s := 1 - t
	return RGB{
		R: a.R*s + b.R*t,
		G: a.G*s + b.G*t,
		B: a.B*s + b.B*t,
	}
}

func clamp01(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v >= 0:
		return v
	default:
		// negative values and NaN
		return 0
	}
}

// Table is an immutable 3D LUT.
type Table struct {
	size    int
	title   string
	entries []RGB
}

// NewTable validates and copies entries into a Table. Entries must be in
// red-fastest order and number exactly size³.
func NewTable(size int, entries []RGB) (*Table, error) {
	if size < 2 || size > MaxSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	want := size * size * size
	if len(entries) != want {
		return nil, &SizeMismatchError{Expected: 3 * want, Actual: 3 * len(entries)}
	}
	cp := make([]RGB, want)
	copy(cp, entries)
	return &Table{size: size, entries: cp}, nil
}

// Identity builds a table mapping every grid vertex onto its own coordinate.
func Identity(size int) *Table {
	if size < 2 {
		size = 2
	}
	step := 1 / float64(size-1)
	entries := make([]RGB, size*size*size)
	for b := 0; b < size; b++ {
		for g := 0; g < size; g++ {
			for r := 0; r < size; r++ {
				entries[Index(size, r, g, b)] = RGB{
					R: float32(float64(r) * step),
					G: float32(float64(g) * step),
					B: float32(float64(b) * step),
				}
			}
		}
	}
	return &Table{size: size, title: fmt.Sprintf("Identity %d", size), entries: entries}
}

// Index returns the flat entry index of grid coordinate (r, g, b).
func Index(size, r, g, b int) int {
	return r + g*size + b*size*size
}

// Size returns the grid resolution per axis.
func (t *Table) Size() int { return t.size }

// Len returns the number of grid entries (Size³).
func (t *Table) Len() int { return len(t.entries) }

// Title returns the TITLE directive captured at parse time, if any.
func (t *Table) Title() string { return t.title }

// At returns the entry stored at grid coordinate (r, g, b).
func (t *Table) At(r, g, b int) RGB {
	return t.entries[Index(t.size, r, g, b)]
}

// Entries returns a copy of the flat entry slice.
func (t *Table) Entries() []RGB {
	cp := make([]RGB, len(t.entries))
	copy(cp, t.entries)
	return cp
}

// Range reports the smallest and largest component stored in the table.
func (t *Table) Range() (lo, hi float32) {
	lo, hi = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, e := range t.entries {
		lo = min(lo, e.R, e.G, e.B)
		hi = max(hi, e.R, e.G, e.B)
	}
	return lo, hi
}

// WithTitle returns a shallow copy of t carrying title. Entries are shared,
// which is safe because neither copy mutates them.
func (t *Table) WithTitle(title string) *Table {
	return &Table{size: t.size, title: title, entries: t.entries}
}
