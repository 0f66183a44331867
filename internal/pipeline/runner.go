package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"cubemix/internal/composite"
	"cubemix/internal/frame"
	"cubemix/internal/job"
	"cubemix/internal/logging"
)

// Recorder persists job state. queue.Store implements it.
type Recorder interface {
	SaveJob(ctx context.Context, status job.Status) error
	RecordProgress(ctx context.Context, jobID string, p job.Progress) error
}

// Options configures a Runner.
type Options struct {
	// Workers bounds frame-level concurrency; <= 0 uses GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
	// OnProgress is called from the writer goroutine after every sink write
	// and once with 1.0 on success.
	OnProgress func(job.Progress)
	Recorder   Recorder
	Registry   *Registry
}

// Summary describes a finished run, successful or not.
type Summary struct {
	JobID    string
	State    job.State
	Frames   int
	Output   string
	Settings job.EncodeSettings
	Elapsed  time.Duration
}

// Runner executes export jobs. It holds no per-job state and may run several
// jobs concurrently against different destinations.
type Runner struct {
	workers    int
	rowWorkers int
	logger     *slog.Logger
	onProgress func(job.Progress)
	recorder   Recorder
	registry   *Registry
}

// NewRunner builds a Runner from opts.
func NewRunner(opts Options) *Runner {
	procs := runtime.GOMAXPROCS(0)
	workers := opts.Workers
	if workers <= 0 {
		workers = procs
	}
	return &Runner{
		workers:    workers,
		rowWorkers: max(1, procs/workers),
		logger:     logging.NewComponentLogger(opts.Logger, "pipeline"),
		onProgress: opts.OnProgress,
		recorder:   opts.Recorder,
		registry:   opts.Registry,
	}
}

// Workers returns the frame-level concurrency.
func (r *Runner) Workers() int { return r.workers }

type sequenced struct {
	seq   int
	frame *frame.Frame
}

// Run pulls every frame from src, applies transform, and writes the results
// to sink in presentation order. The job ends completed, failed or
// cancelled; on anything but success the sink is aborted so no partial output
// survives.
func (r *Runner) Run(ctx context.Context, j *job.ExportJob, src frame.Source, transform composite.PixelTransform, sink frame.Sink) (Summary, error) {
	started := time.Now()
	summary := Summary{JobID: j.ID()}
	ctx = logging.WithStage(logging.WithJobID(ctx, j.ID()), "export")
	logger := logging.WithContext(ctx, r.logger)
	if transform == nil {
		transform = composite.Identity
	}

	if r.registry != nil {
		release, err := r.registry.Acquire(j.Request().Destination, j.ID())
		if err != nil {
			_ = j.Fail(err)
			r.save(ctx, logger, j)
			summary.State = j.State()
			return summary, err
		}
		defer release()
	}

	settings, err := j.Start()
	if err != nil {
		return summary, err
	}
	summary.Settings = settings
	r.save(ctx, logger, j)
	logger.Info("export started",
		logging.String("source", j.Request().Source),
		logging.String("destination", j.Request().Destination),
		logging.String("tier", string(settings.Tier)),
		logging.Int("bitrate_kbps", settings.BitrateKbps),
		logging.Int("frames", src.FrameCount()),
		logging.Int("workers", r.workers),
	)

	written, output, runErr := r.execute(ctx, logger, j, src, transform, sink, settings)
	summary.Frames = written
	summary.Elapsed = time.Since(started)

	if runErr != nil {
		if abortErr := sink.Abort(context.WithoutCancel(ctx)); abortErr != nil {
			logging.WarnWithContext(logger, "sink abort failed", "sink_abort_failed",
				logging.Error(abortErr),
				logging.String(logging.FieldImpact, "partial output may remain at the destination"),
				logging.String(logging.FieldErrorHint, "remove the destination manually"),
			)
		}
		if KindOf(runErr) == KindCancelled {
			_ = j.Cancel(runErr)
			logger.Info("export cancelled", logging.Int("frames_written", written))
		} else {
			_ = j.Fail(runErr)
			logging.ErrorWithContext(logger, "export failed", "export_failed",
				logging.Error(runErr),
				logging.String("reason", FailureReason(runErr)),
				logging.Int("frames_written", written),
			)
		}
		r.save(ctx, logger, j)
		summary.State = j.State()
		return summary, runErr
	}

	final, err := j.Complete(output)
	if err != nil {
		return summary, err
	}
	summary.Output = output
	summary.State = job.StateCompleted
	r.progress(ctx, logger, j.ID(), final, nil)
	r.save(ctx, logger, j)
	logger.Info("export completed",
		logging.String("output", output),
		logging.Int("frames", written),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// execute runs the read -> transform -> ordered write loop. It returns only
// after every goroutine it started has exited.
func (r *Runner) execute(ctx context.Context, logger *slog.Logger, j *job.ExportJob, src frame.Source, transform composite.PixelTransform, sink frame.Sink, settings job.EncodeSettings) (int, string, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", Wrap(ErrCancelled, "export", "cancelled before start", err)
	}
	if err := sink.Open(ctx, settings); err != nil {
		return 0, "", Wrap(ErrSinkWrite, "open sink", "", err)
	}
	it, err := src.Frames(ctx)
	if err != nil {
		return 0, "", Wrap(ErrSourceDecode, "open source", "", err)
	}
	defer it.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan sequenced, r.workers)
	results := make(chan sequenced, r.workers)
	// slots bounds decoded frames held in memory, from read until written.
	slots := make(chan struct{}, r.workers*2)
	readErr := make(chan error, 1)
	readerDone := make(chan struct{})
	total := src.FrameCount()

	go func() {
		defer close(readerDone)
		defer close(work)
		for seq := 0; ; seq++ {
			if total > 0 && seq == total {
				// Frames past the announced count never reach the sink.
				if _, err := it.Next(runCtx); !errors.Is(err, io.EOF) && runCtx.Err() == nil {
					readErr <- Wrap(ErrSourceDecode, "decode frame", fmt.Sprintf("source produced more frames than the %d announced", total), err)
					cancel()
				}
				return
			}
			select {
			case slots <- struct{}{}:
			case <-runCtx.Done():
				return
			}
			f, err := it.Next(runCtx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				readErr <- Wrap(ErrSourceDecode, "decode frame", fmt.Sprintf("frame %d", seq), err)
				cancel()
				return
			}
			if err := f.Validate(); err != nil {
				readErr <- Wrap(ErrUnsupported, "decode frame", fmt.Sprintf("frame %d", seq), err)
				cancel()
				return
			}
			select {
			case work <- sequenced{seq: seq, frame: f}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				out := frame.Apply(item.frame, transform, r.rowWorkers)
				select {
				case results <- sequenced{seq: item.seq, frame: out}:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		pending  = make(map[int]*frame.Frame)
		next     int
		writeErr error
		duration = src.Duration()
		sampler  = logging.NewProgressSampler(5)
	)
	for item := range results {
		if writeErr != nil {
			continue // drain
		}
		pending[item.seq] = item.frame
		for {
			f, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := runCtx.Err(); err != nil {
				writeErr = errStopped
				break
			}
			if err := sink.Write(runCtx, f); err != nil {
				writeErr = Wrap(ErrSinkWrite, "write frame", fmt.Sprintf("frame %d", f.Index), err)
				cancel()
				break
			}
			next++
			<-slots

			p := job.Progress{FramesDone: next, TotalFrames: total, Timestamp: f.Timestamp}
			switch {
			case total > 0:
				p.Fraction = float64(next) / float64(total)
			case duration > 0:
				p.Fraction = float64(f.Timestamp) / float64(duration)
			}
			if stored, ok := j.ReportProgress(p); ok {
				r.progress(ctx, logger, j.ID(), stored, sampler)
			}
		}
	}
	<-readerDone

	switch {
	case ctx.Err() != nil:
		return next, "", Wrap(ErrCancelled, "export", fmt.Sprintf("stopped after %d frames", next), ctx.Err())
	case writeErr != nil && writeErr != errStopped:
		return next, "", writeErr
	}
	select {
	case err := <-readErr:
		return next, "", err
	default:
	}
	if total > 0 && next != total {
		return next, "", Wrap(ErrSourceDecode, "decode frame", fmt.Sprintf("source ended after %d of %d frames", next, total), nil)
	}

	output, err := sink.Close(ctx)
	if err != nil {
		return next, "", Wrap(ErrSinkWrite, "close sink", "", err)
	}
	return next, output, nil
}

// errStopped marks a write loop that stopped because runCtx was cancelled
// by someone else; the real cause is reported from ctx or readErr.
var errStopped = errors.New("stopped")

func (r *Runner) progress(ctx context.Context, logger *slog.Logger, jobID string, p job.Progress, sampler *logging.ProgressSampler) {
	if r.onProgress != nil {
		r.onProgress(p)
	}
	if sampler != nil && !sampler.ShouldLog(p.Fraction) {
		return
	}
	logger.Debug("export progress",
		logging.Int("frames_done", p.FramesDone),
		logging.Int("frames_total", p.TotalFrames),
		logging.Float64("fraction", p.Fraction),
	)
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordProgress(context.WithoutCancel(ctx), jobID, p); err != nil {
		logging.WarnWithContext(logger, "progress not recorded", "progress_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "progress history for this job is incomplete"),
		)
	}
}

func (r *Runner) save(ctx context.Context, logger *slog.Logger, j *job.ExportJob) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.SaveJob(context.WithoutCancel(ctx), j.Snapshot()); err != nil {
		logging.WarnWithContext(logger, "job state not persisted", "job_save_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job list may show stale state"),
		)
	}
}
