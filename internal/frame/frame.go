// Package frame defines the pixel grid passed between a frame source, the
// grading transform and a frame sink.
package frame

import (
	"errors"
	"fmt"
	"time"

	"cubemix/internal/lut"
)

// ErrInvalidFrame reports a frame whose buffers do not match its dimensions.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is a decoded picture. Pix is row-major, Width*Height long. Alpha is
// either nil or the same length as Pix. Frames handed to the pipeline are
// treated as read-only.
type Frame struct {
	Index     int
	Timestamp time.Duration
	Width     int
	Height    int
	Pix       []lut.RGB
	Alpha     []float32
}

// New allocates a black frame without alpha.
func New(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]lut.RGB, width*height),
	}
}

// Validate checks buffer lengths against the dimensions.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height {
		return fmt.Errorf("%w: %d pixels for %dx%d", ErrInvalidFrame, len(f.Pix), f.Width, f.Height)
	}
	if f.Alpha != nil && len(f.Alpha) != len(f.Pix) {
		return fmt.Errorf("%w: %d alpha samples for %d pixels", ErrInvalidFrame, len(f.Alpha), len(f.Pix))
	}
	return nil
}

// HasAlpha reports whether the frame carries an alpha plane.
func (f *Frame) HasAlpha() bool { return f.Alpha != nil }

// At returns the pixel at (x, y).
func (f *Frame) At(x, y int) lut.RGB { return f.Pix[y*f.Width+x] }

// Set stores c at (x, y).
func (f *Frame) Set(x, y int, c lut.RGB) { f.Pix[y*f.Width+x] = c }

// Row returns the pixels of row y.
func (f *Frame) Row(y int) []lut.RGB {
	start := y * f.Width
	return f.Pix[start : start+f.Width]
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := f.header()
	out.Pix = append([]lut.RGB(nil), f.Pix...)
	if f.Alpha != nil {
		out.Alpha = append([]float32(nil), f.Alpha...)
	}
	return out
}

// header copies everything except the pixel buffer. Alpha is shared, since
// grading never touches it and neither copy writes to it.
func (f *Frame) header() *Frame {
	return &Frame{
		Index:     f.Index,
		Timestamp: f.Timestamp,
		Width:     f.Width,
		Height:    f.Height,
		Alpha:     f.Alpha,
	}
}
