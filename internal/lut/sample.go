package lut

// Sample looks up c in t with trilinear interpolation.
//
// c is clamped to [0, 1] before lookup. The result is not clamped.
func (t *Table) Sample(c RGB) RGB {
	n := t.size
	scale := float32(n - 1)

	r0, r1, fr := locate(c.R, scale, n)
	g0, g1, fg := locate(c.G, scale, n)
	b0, b1, fb := locate(c.B, scale, n)

	e := t.entries
	plane := n * n
	g0o, g1o := g0*n, g1*n
	b0o, b1o := b0*plane, b1*plane

	c000 := e[r0+g0o+b0o]
	c100 := e[r1+g0o+b0o]
	c010 := e[r0+g1o+b0o]
	c110 := e[r1+g1o+b0o]
	c001 := e[r0+g0o+b1o]
	c101 := e[r1+g0o+b1o]
	c011 := e[r0+g1o+b1o]
	c111 := e[r1+g1o+b1o]

	// red
	c00 := mix(c000, c100, fr)
	c10 := mix(c010, c110, fr)
	c01 := mix(c001, c101, fr)
	c11 := mix(c011, c111, fr)

	// green
	c0 := mix(c00, c10, fg)
	c1 := mix(c01, c11, fg)

	// blue
	return mix(c0, c1, fb)
}

// Sample is the free-function form of (*Table).Sample.
func Sample(t *Table, c RGB) RGB {
	return t.Sample(c)
}

// locate maps a component onto the grid axis. lo and hi stay within
// [0, n-1]; at the top edge both collapse onto n-1 with a zero weight.
func locate(v, scale float32, n int) (lo, hi int, frac float32) {
	pos := clamp01(v) * scale
	lo = int(pos)
	if lo > n-1 {
		lo = n - 1
	}
	hi = lo + 1
	if hi > n-1 {
		hi = n - 1
	}
	frac = pos - float32(lo)
	return lo, hi, frac
}

func mix(a, b RGB, t float32) RGB {
	return RGB{
		R: a.R + t*(b.R-a.R),
		G: a.G + t*(b.G-a.G),
		B: a.B + t*(b.B-a.B),
	}
}
