package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cubemix/internal/composite"
	"cubemix/internal/frame"
	"cubemix/internal/logging"
)

// PreviewDelivery is handed to the Previewer callback for the request that
// was current when it finished.
type PreviewDelivery struct {
	Generation uint64
	Result     PreviewResult
	Err        error
}

// Previewer serialises preview requests with last-request-wins semantics.
// Each Request cancels the one before it; a result is delivered only if no
// newer request arrived meanwhile.
type Previewer struct {
	src     frame.Source
	opts    PreviewOptions
	deliver func(PreviewDelivery)
	logger  *slog.Logger

	// deliverMu orders callbacks so an older result can never land after a
	// newer one.
	deliverMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewPreviewer returns a Previewer reading from src. deliver is called on a
// background goroutine, one call at a time, and must not call Close.
func NewPreviewer(src frame.Source, opts PreviewOptions, logger *slog.Logger, deliver func(PreviewDelivery)) *Previewer {
	return &Previewer{
		src:     src,
		opts:    opts,
		deliver: deliver,
		logger:  logging.NewComponentLogger(logger, "preview"),
	}
}

// Request starts a preview of ts under transform and returns its generation.
func (p *Previewer) Request(ctx context.Context, ts time.Duration, transform composite.PixelTransform) uint64 {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.generation++
	gen := p.generation
	reqCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()
		result, err := Preview(reqCtx, p.src, ts, transform, p.opts)

		p.deliverMu.Lock()
		defer p.deliverMu.Unlock()
		if !p.isCurrent(gen) {
			p.logger.Debug("stale preview discarded", logging.Uint64("generation", gen))
			return
		}
		if p.deliver != nil {
			p.deliver(PreviewDelivery{Generation: gen, Result: result, Err: err})
		}
	}()
	return gen
}

func (p *Previewer) isCurrent(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen == p.generation
}

// Generation returns the most recent request generation.
func (p *Previewer) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Close cancels any in-flight preview and waits for it to finish.
func (p *Previewer) Close() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.generation++
	p.mu.Unlock()
	p.wg.Wait()
}
