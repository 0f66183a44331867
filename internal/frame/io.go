package frame

import (
	"context"
	"time"

	"cubemix/internal/job"
)

// Source supplies decoded frames.
type Source interface {
	// Duration is the total presentation length, or 0 if unknown.
	Duration() time.Duration
	// FrameCount is the number of frames, or 0 if unknown.
	FrameCount() int
	// FrameAt decodes the frame nearest ts within tolerance.
	FrameAt(ctx context.Context, ts, tolerance time.Duration) (*Frame, error)
	// Frames streams every frame in presentation order.
	Frames(ctx context.Context) (Iterator, error)
}

// Iterator yields frames in order. Next returns io.EOF after the last frame.
type Iterator interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// Sink consumes transformed frames in presentation order.
type Sink interface {
	Open(ctx context.Context, settings job.EncodeSettings) error
	Write(ctx context.Context, f *Frame) error
	// Close finalises output and returns its location.
	Close(ctx context.Context) (string, error)
	// Abort discards partial output. It is safe to call after a failed Open.
	Abort(ctx context.Context) error
}
