package lut

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks every LUT ingestion failure. None are retryable without a
	// different input file.
	ErrParse = errors.New("lut parse error")

	// ErrInvalidSize reports a LUT_3D_SIZE outside [2, MaxSize].
	ErrInvalidSize = fmt.Errorf("%w: invalid LUT_3D_SIZE", ErrParse)
)

// SizeMismatchError reports a data section whose float count does not equal
// 3*size³. Counts are in floats, not rows.
type SizeMismatchError struct {
	Expected int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("lut size mismatch: expected %d values, got %d", e.Expected, e.Actual)
}

func (e *SizeMismatchError) Unwrap() error { return ErrParse }

// MalformedRowError reports a line that is neither a directive nor a row of
// exactly three finite floats. Line is 1-based.
type MalformedRowError struct {
	Line int
	Text string
	Err  error
}

func (e *MalformedRowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lut malformed row at line %d (%q): %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("lut malformed row at line %d (%q)", e.Line, e.Text)
}

func (e *MalformedRowError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}
