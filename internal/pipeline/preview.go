package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cubemix/internal/composite"
	"cubemix/internal/frame"
)

// DefaultFallbackOffsets are tried, in order, after the requested timestamp
// fails to decode.
var DefaultFallbackOffsets = []time.Duration{
	100 * time.Millisecond,
	-100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

// PreviewOptions tunes single-frame previews.
type PreviewOptions struct {
	Tolerance time.Duration
	// FallbackOffsets overrides DefaultFallbackOffsets. An empty non-nil
	// slice disables fallback.
	FallbackOffsets []time.Duration
	Workers         int
}

// PreviewResult is one graded frame and the timestamp it was decoded at.
type PreviewResult struct {
	Requested time.Duration
	Actual    time.Duration
	Attempts  int
	Frame     *frame.Frame
}

// Preview decodes the frame at ts, grades it with the same frame.Apply the
// export path uses, and returns it. When decoding fails it retries at ts plus
// each fallback offset, clamped to [0, duration]. Only decode failures are
// retried.
func Preview(ctx context.Context, src frame.Source, ts time.Duration, transform composite.PixelTransform, opts PreviewOptions) (PreviewResult, error) {
	result := PreviewResult{Requested: ts}
	offsets := opts.FallbackOffsets
	if offsets == nil {
		offsets = DefaultFallbackOffsets
	}
	if transform == nil {
		transform = composite.Identity
	}

	candidates := previewCandidates(ts, offsets, src.Duration())
	var failures []error
	for _, at := range candidates {
		if err := ctx.Err(); err != nil {
			return result, Wrap(ErrCancelled, "preview", "", err)
		}
		result.Attempts++
		f, err := src.FrameAt(ctx, at, opts.Tolerance)
		if err == nil {
			err = f.Validate()
			if err != nil {
				return result, Wrap(ErrUnsupported, "preview", fmt.Sprintf("frame at %s", at), err)
			}
			result.Actual = f.Timestamp
			result.Frame = frame.Apply(f, transform, opts.Workers)
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, Wrap(ErrCancelled, "preview", "", ctxErr)
		}
		failures = append(failures, fmt.Errorf("at %s: %w", at, err))
	}
	return result, Wrap(ErrSourceDecode, "preview",
		fmt.Sprintf("no decodable frame near %s after %d attempts", ts, result.Attempts),
		errors.Join(failures...))
}

// previewCandidates lists ts followed by the fallback timestamps, clamped to
// the source bounds and without duplicates.
func previewCandidates(ts time.Duration, offsets []time.Duration, duration time.Duration) []time.Duration {
	clamp := func(v time.Duration) time.Duration {
		if v < 0 {
			return 0
		}
		if duration > 0 && v > duration {
			return duration
		}
		return v
	}
	seen := make(map[time.Duration]struct{}, len(offsets)+1)
	out := make([]time.Duration, 0, len(offsets)+1)
	for _, v := range append([]time.Duration{0}, offsets...) {
		at := clamp(ts + v)
		if _, dup := seen[at]; dup {
			continue
		}
		seen[at] = struct{}{}
		out = append(out, at)
	}
	return out
}
