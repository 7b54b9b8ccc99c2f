// Package coordinator manages the siege worker pool and run lifecycle.
package coordinator

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"siege/internal/config"
	"siege/internal/core"
	"siege/internal/ratelimit"
	"siege/internal/request"
)

// startStagger spaces out worker starts to avoid a request burst at t=0.
const startStagger = 100 * time.Millisecond

// Pool owns the siege workers and tracks their liveness.
type Pool struct {
	cfg      config.RunConfig
	recorder core.Recorder
	cancel   *core.Cancellation
	logger   *slog.Logger
	client   *http.Client
	clock    core.Clock
	sink     core.OutcomeSink
	limiter  *ratelimit.Limiter

	running atomic.Bool
	started atomic.Bool
	live    atomic.Int32
	wg      sync.WaitGroup
}

// NewPool creates a pool. The shared HTTP client carries the configured
// timeout and TLS-verification setting.
func NewPool(cfg config.RunConfig, recorder core.Recorder, cancel *core.Cancellation, logger *slog.Logger) *Pool {
	return &Pool{
		cfg:      cfg,
		recorder: recorder,
		cancel:   cancel,
		logger:   logger,
		client:   request.NewClient(cfg.Timeout, cfg.VerifyTLS),
		clock:    core.RealClock{},
	}
}

// SetSink installs the live-feedback sink. Must be called before Start.
func (p *Pool) SetSink(s core.OutcomeSink) { p.sink = s }

// SetLimiter installs an optional global rate cap. Must be called before Start.
func (p *Pool) SetLimiter(l *ratelimit.Limiter) { p.limiter = l }

// SetClock replaces the pool clock, for tests. Must be called before Start.
func (p *Pool) SetClock(c core.Clock) { p.clock = c }

// Start marks the run active and spawns the workers. Each worker registers
// itself in the live count before its staggered start delay.
func (p *Pool) Start(ctx context.Context, workers int) {
	p.running.Store(true)
	for i := 1; i <= workers; i++ {
		p.wg.Add(1)
		p.live.Add(1)
		go p.runWorker(ctx, i)
	}
	p.started.Store(true)
}

// Stop marks the run inactive. Workers observe it at their next loop check;
// an in-flight request is never preempted.
func (p *Pool) Stop() {
	p.running.Store(false)
}

// Live returns the number of workers that have not exited.
func (p *Pool) Live() int {
	return int(p.live.Load())
}

// Started reports whether Start has completed.
func (p *Pool) Started() bool {
	return p.started.Load()
}

// Drain waits for all workers to exit, up to timeout. It reports whether
// the pool drained cleanly; stragglers are abandoned, not killed.
func (p *Pool) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	defer p.live.Add(-1)

	w := &worker{
		id:   id,
		pool: p,
		rng:  rand.New(rand.NewSource(p.clock.Now().UnixNano() + int64(id))),
	}

	if !sleepCtx(ctx, time.Duration(id-1)*startStagger) {
		return
	}
	for p.running.Load() && !p.cancel.Cancelled() && ctx.Err() == nil {
		if !w.iterate(ctx) {
			return
		}
	}
}
