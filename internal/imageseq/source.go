package imageseq

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"cubemix/internal/frame"
	"cubemix/internal/logging"
)

// ErrNoFrame is returned by FrameAt when no frame lies within tolerance.
var ErrNoFrame = errors.New("no frame near timestamp")

// SourceOptions configures Open.
type SourceOptions struct {
	// FrameRate is used when the directory has no sequence.toml.
	FrameRate float64
	Logger    *slog.Logger
}

// Source reads a directory of numbered stills. Frames are ordered by file
// name, so names must sort in presentation order (frame_000001.png, ...).
type Source struct {
	dir      string
	files    []string
	rate     float64
	interval time.Duration
	logger   *slog.Logger
}

// Open scans dir for supported stills.
func Open(dir string, opts SourceOptions) (*Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "open frame sequence")
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := containerFor(e.Name()); ok {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no png, tiff or hdr frames in %s", dir)
	}
	sort.Strings(files)

	rate := opts.FrameRate
	if m, ok, err := ReadManifest(dir); err != nil {
		return nil, err
	} else if ok && m.FrameRate > 0 {
		rate = m.FrameRate
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, errors.Errorf("frame rate for %s must be positive", dir)
	}

	src := &Source{
		dir:      dir,
		files:    files,
		rate:     rate,
		interval: time.Duration(float64(time.Second) / rate),
		logger:   logging.NewComponentLogger(opts.Logger, "imageseq"),
	}
	src.logger.Debug("frame sequence opened",
		logging.String("dir", dir),
		logging.Int("frames", len(files)),
		logging.Float64("frame_rate", rate),
	)
	return src, nil
}

// FrameRate is the rate the sequence is played back at.
func (s *Source) FrameRate() float64 { return s.rate }

// Interval is the time between frames.
func (s *Source) Interval() time.Duration { return s.interval }

func (s *Source) Duration() time.Duration {
	return time.Duration(len(s.files)) * s.interval
}

func (s *Source) FrameCount() int { return len(s.files) }

// FrameAt decodes the frame nearest ts. A frame matches when its start lies
// within tolerance plus half a frame interval of ts.
func (s *Source) FrameAt(ctx context.Context, ts, tolerance time.Duration) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := int(math.Round(float64(ts) / float64(s.interval)))
	idx = max(0, min(idx, len(s.files)-1))
	at := time.Duration(idx) * s.interval
	if diff := (at - ts).Abs(); diff > tolerance+s.interval/2 {
		return nil, errors.Wrapf(ErrNoFrame, "%s (nearest frame at %s)", ts, at)
	}
	return s.decode(idx)
}

func (s *Source) Frames(ctx context.Context) (frame.Iterator, error) {
	return &iterator{src: s}, nil
}

func (s *Source) decode(idx int) (*frame.Frame, error) {
	name := s.files[idx]
	container, _ := containerFor(name)
	fh, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, errors.Wrapf(err, "open frame %s", name)
	}
	defer fh.Close()

	m, err := decodeImage(fh, container)
	if err != nil {
		return nil, errors.Wrapf(err, "decode frame %s", name)
	}
	f := fromImage(m)
	f.Index = idx
	f.Timestamp = time.Duration(idx) * s.interval
	return f, nil
}

type iterator struct {
	src  *Source
	next int
}

func (it *iterator) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.next >= len(it.src.files) {
		return nil, io.EOF
	}
	f, err := it.src.decode(it.next)
	if err != nil {
		return nil, err
	}
	it.next++
	return f, nil
}

func (it *iterator) Close() error { return nil }
