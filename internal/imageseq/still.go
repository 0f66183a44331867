package imageseq

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"cubemix/internal/frame"
)

// ReadStill decodes a single image file. The container is taken from the
// file extension.
func ReadStill(path string) (*frame.Frame, error) {
	container, ok := containerFor(path)
	if !ok {
		return nil, errors.Wrap(ErrUnsupportedContainer, path)
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open still")
	}
	defer fh.Close()
	m, err := decodeImage(bufio.NewReader(fh), container)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return fromImage(m), nil
}

// WriteStill encodes f at full size to path. The container is taken from the
// file extension; an existing file is replaced.
func WriteStill(path string, f *frame.Frame) error {
	container, ok := containerFor(path)
	if !ok {
		return errors.Wrap(ErrUnsupportedContainer, path)
	}
	if err := f.Validate(); err != nil {
		return err
	}
	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create still")
	}
	w := bufio.NewWriter(fh)
	if err := encodeImage(w, toImage(f, container, f.Width, f.Height), container); err != nil {
		_ = fh.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	if err := w.Flush(); err != nil {
		_ = fh.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(fh.Close(), "close %s", path)
}

// Still is a one-frame Source over an image already in memory.
type Still struct {
	frame *frame.Frame
}

// NewStill wraps f as a Source whose only frame sits at timestamp 0.
func NewStill(f *frame.Frame) *Still {
	f.Index, f.Timestamp = 0, 0
	return &Still{frame: f}
}

func (s *Still) Duration() time.Duration { return 0 }

func (s *Still) FrameCount() int { return 1 }

// FrameAt returns the frame for any timestamp within tolerance of 0.
func (s *Still) FrameAt(ctx context.Context, ts, tolerance time.Duration) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ts.Abs() > tolerance {
		return nil, errors.Wrapf(ErrNoFrame, "%s (still image)", ts)
	}
	return s.frame, nil
}

func (s *Still) Frames(ctx context.Context) (frame.Iterator, error) {
	return &stillIterator{frame: s.frame}, nil
}

type stillIterator struct {
	frame *frame.Frame
	done  bool
}

func (it *stillIterator) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.done {
		return nil, io.EOF
	}
	it.done = true
	return it.frame, nil
}

func (it *stillIterator) Close() error { return nil }
