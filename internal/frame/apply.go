package frame

import (
	"runtime"
	"sync"

	"cubemix/internal/lut"
)

// minRowsPerTask keeps tiny frames on one goroutine.
const minRowsPerTask = 16

// Apply runs fn over every pixel of src and returns a new frame. src is not
// modified. Rows are split across at most workers goroutines; workers <= 0
// uses GOMAXPROCS. The result does not depend on the worker count.
func Apply(src *Frame, fn func(lut.RGB) lut.RGB, workers int) *Frame {
	out := src.header()
	out.Pix = make([]lut.RGB, len(src.Pix))
	if fn == nil {
		copy(out.Pix, src.Pix)
		return out
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	tasks := min(workers, max(1, src.Height/minRowsPerTask))
	if tasks <= 1 {
		applyRows(src, out, fn, 0, src.Height)
		return out
	}

	rowsPer := (src.Height + tasks - 1) / tasks
	var wg sync.WaitGroup
	for start := 0; start < src.Height; start += rowsPer {
		end := min(start+rowsPer, src.Height)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			applyRows(src, out, fn, start, end)
		}(start, end)
	}
	wg.Wait()
	return out
}

func applyRows(src, dst *Frame, fn func(lut.RGB) lut.RGB, start, end int) {
	lo, hi := start*src.Width, end*src.Width
	in, out := src.Pix[lo:hi], dst.Pix[lo:hi]
	for i, c := range in {
		out[i] = fn(c)
	}
}
