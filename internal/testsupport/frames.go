package testsupport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"cubemix/internal/frame"
	"cubemix/internal/job"
	"cubemix/internal/lut"
)

// ErrDecode is returned by MemorySource for timestamps listed in FailAt.
var ErrDecode = errors.New("synthetic decode failure")

// MemorySource serves synthetic frames from memory.
type MemorySource struct {
	Frames_  []*frame.Frame
	Interval time.Duration
	// FailAt lists timestamps FrameAt refuses to decode.
	FailAt map[time.Duration]bool
	// FailIndex makes the streaming iterator fail at that frame; -1 disables.
	FailIndex int
	// HideCount makes FrameCount report 0, as a streaming source would.
	HideCount bool

	mu       sync.Mutex
	requests []time.Duration
}

// NewMemorySource builds count frames of width x height. Frame i is filled
// with a colour derived from i so ordering mistakes are visible.
func NewMemorySource(count, width, height int, interval time.Duration) *MemorySource {
	frames := make([]*frame.Frame, count)
	for i := range frames {
		f := frame.New(width, height)
		f.Index = i
		f.Timestamp = time.Duration(i) * interval
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				f.Set(x, y, lut.RGB{
					R: float32(i%10) / 10,
					G: float32(x) / float32(max(width-1, 1)),
					B: float32(y) / float32(max(height-1, 1)),
				})
			}
		}
		frames[i] = f
	}
	return &MemorySource{Frames_: frames, Interval: interval, FailIndex: -1}
}

func (s *MemorySource) Duration() time.Duration {
	return time.Duration(len(s.Frames_)) * s.Interval
}

func (s *MemorySource) FrameCount() int {
	if s.HideCount {
		return 0
	}
	return len(s.Frames_)
}

func (s *MemorySource) FrameAt(ctx context.Context, ts, tolerance time.Duration) (*frame.Frame, error) {
	s.mu.Lock()
	s.requests = append(s.requests, ts)
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.FailAt[ts] {
		return nil, fmt.Errorf("%w at %s", ErrDecode, ts)
	}
	if s.Interval <= 0 || len(s.Frames_) == 0 {
		return nil, ErrDecode
	}
	idx := int((ts + s.Interval/2) / s.Interval)
	if idx >= len(s.Frames_) {
		idx = len(s.Frames_) - 1
	}
	f := s.Frames_[idx]
	if diff := f.Timestamp - ts; diff > tolerance+s.Interval/2 || -diff > tolerance+s.Interval/2 {
		return nil, fmt.Errorf("%w: no frame within %s of %s", ErrDecode, tolerance, ts)
	}
	return f, nil
}

// Requests returns the timestamps passed to FrameAt, in order.
func (s *MemorySource) Requests() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.requests...)
}

func (s *MemorySource) Frames(ctx context.Context) (frame.Iterator, error) {
	return &memoryIterator{src: s}, nil
}

type memoryIterator struct {
	src  *MemorySource
	next int
}

func (it *memoryIterator) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.next >= len(it.src.Frames_) {
		return nil, io.EOF
	}
	if it.next == it.src.FailIndex {
		return nil, fmt.Errorf("%w at frame %d", ErrDecode, it.next)
	}
	f := it.src.Frames_[it.next]
	it.next++
	return f, nil
}

func (it *memoryIterator) Close() error { return nil }

// RecordingSink keeps every written frame in memory.
type RecordingSink struct {
	// OnWrite runs after a frame is recorded; returning an error fails the
	// write. The argument is the number of frames written so far.
	OnWrite func(n int) error
	// Delay slows each write, to give out-of-order workers a chance to race.
	Delay time.Duration

	mu       sync.Mutex
	settings job.EncodeSettings
	opened   bool
	closed   bool
	aborted  bool
	frames   []*frame.Frame
}

func (s *RecordingSink) Open(ctx context.Context, settings job.EncodeSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.opened = true
	return nil
}

func (s *RecordingSink) Write(ctx context.Context, f *frame.Frame) error {
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	s.mu.Lock()
	if !s.opened || s.closed || s.aborted {
		s.mu.Unlock()
		return errors.New("sink not open")
	}
	s.frames = append(s.frames, f)
	n := len(s.frames)
	s.mu.Unlock()
	if s.OnWrite != nil {
		return s.OnWrite(n)
	}
	return nil
}

func (s *RecordingSink) Close(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return "memory://output", nil
}

func (s *RecordingSink) Abort(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	s.frames = nil
	return nil
}

// Written returns the frames written so far.
func (s *RecordingSink) Written() []*frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*frame.Frame(nil), s.frames...)
}

// State reports the sink lifecycle flags.
func (s *RecordingSink) State() (opened, closed, aborted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed, s.aborted
}

// Settings returns the settings passed to Open.
func (s *RecordingSink) Settings() job.EncodeSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}
