package imageseq

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/pkg/errors"

	"cubemix/internal/frame"
	"cubemix/internal/job"
	"cubemix/internal/logging"
)

// ErrDestinationExists is returned by Open when the destination is present
// and overwriting was not requested.
var ErrDestinationExists = errors.New("destination already exists")

// SinkOptions configures NewSink.
type SinkOptions struct {
	FrameRate float64
	Overwrite bool
	Logger    *slog.Logger
}

// Sink writes graded frames as numbered stills. Frames are staged in a
// hidden sibling directory and renamed onto the destination by Close, so an
// aborted export leaves nothing at the destination.
type Sink struct {
	dest   string
	opts   SinkOptions
	logger *slog.Logger

	mu        sync.Mutex
	settings  job.EncodeSettings
	container string
	staging   string
	written   int
	width     int
	height    int
}

// NewSink returns a sink that will produce the directory dest.
func NewSink(dest string, opts SinkOptions) *Sink {
	return &Sink{
		dest:   dest,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "imageseq"),
	}
}

// Open validates the container and creates the staging directory.
func (s *Sink) Open(ctx context.Context, settings job.EncodeSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staging != "" {
		return errors.New("sink already open")
	}

	container := settings.Container
	if container == "" {
		container = "png"
	}
	normalized, ok := containerFor(container)
	if !ok || !slices.Contains(Containers, normalized) {
		return errors.Wrapf(ErrUnsupportedContainer, "%q", container)
	}
	if _, err := os.Stat(s.dest); err == nil && !s.opts.Overwrite {
		return errors.Wrap(ErrDestinationExists, s.dest)
	}

	parent := filepath.Dir(s.dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return errors.Wrap(err, "create destination parent")
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(s.dest)+".partial-*")
	if err != nil {
		return errors.Wrap(err, "create staging directory")
	}

	s.settings = settings
	s.container = normalized
	s.staging = staging
	s.written = 0
	s.logger.Debug("sink opened",
		logging.String("destination", s.dest),
		logging.String("staging", staging),
		logging.String("container", normalized),
		logging.Int("max_width", settings.MaxWidth),
		logging.Int("max_height", settings.MaxHeight),
	)
	return nil
}

// Write encodes f as the next frame, scaled down to the tier cap.
func (s *Sink) Write(ctx context.Context, f *frame.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staging == "" {
		return errors.New("sink not open")
	}

	width, height := s.settings.Preset().Fit(f.Width, f.Height)
	m := toImage(f, s.container, width, height)

	name := fmt.Sprintf("frame_%06d.%s", s.written, s.container)
	path := filepath.Join(s.staging, name)
	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	w := bufio.NewWriter(fh)
	if err := encodeImage(w, m, s.container); err != nil {
		_ = fh.Close()
		return errors.Wrapf(err, "encode %s", name)
	}
	if err := w.Flush(); err != nil {
		_ = fh.Close()
		return errors.Wrapf(err, "write %s", name)
	}
	if err := fh.Close(); err != nil {
		return errors.Wrapf(err, "close %s", name)
	}

	if s.written == 0 {
		s.width, s.height = width, height
	}
	s.written++
	return nil
}

// Close writes the sequence manifest and moves the staged frames onto the
// destination. It returns the destination path.
func (s *Sink) Close(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staging == "" {
		return "", errors.New("sink not open")
	}

	manifest := Manifest{
		FrameRate:   s.opts.FrameRate,
		Frames:      s.written,
		Container:   s.container,
		Width:       s.width,
		Height:      s.height,
		Tier:        string(s.settings.Tier),
		BitrateKbps: s.settings.BitrateKbps,
	}
	if err := writeManifest(s.staging, manifest); err != nil {
		return "", err
	}

	if _, err := os.Stat(s.dest); err == nil {
		if !s.opts.Overwrite {
			return "", errors.Wrap(ErrDestinationExists, s.dest)
		}
		if err := os.RemoveAll(s.dest); err != nil {
			return "", errors.Wrap(err, "remove previous output")
		}
	}
	if err := os.Rename(s.staging, s.dest); err != nil {
		return "", errors.Wrap(err, "publish output")
	}
	s.staging = ""
	s.logger.Debug("sink closed", logging.String("destination", s.dest), logging.Int("frames", s.written))
	return s.dest, nil
}

// Abort removes the staging directory. It is safe to call more than once and
// before Open.
func (s *Sink) Abort(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staging == "" {
		return nil
	}
	err := os.RemoveAll(s.staging)
	s.staging = ""
	return errors.Wrap(err, "remove staged frames")
}

// Written returns the number of frames written since Open.
func (s *Sink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}
