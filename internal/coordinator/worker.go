package coordinator

import (
	"context"
	"math/rand"
	"time"

	"siege/internal/core"
	"siege/internal/request"
)

const (
	// slowLatencyFactor: responses slower than this fraction of the
	// timeout back the worker off to the maximum delay.
	slowLatencyFactor = 0.8
	// fastLatency: responses faster than this drop to the minimum delay.
	fastLatency = 100 * time.Millisecond
	// minSleep is the floor on the inter-request delay after jitter.
	minSleep = 10 * time.Millisecond
	// internalErrorPause follows any unexpected worker-local error.
	internalErrorPause = time.Second
)

// Jitter added to every computed delay: uniform over [-0.02s, 0.05s).
const (
	jitterSpan   = 0.07
	jitterOffset = -0.02
)

type worker struct {
	id       int
	pool     *Pool
	rng      *rand.Rand
	requests int64
}

// iterate runs one request cycle and reports whether the worker should keep
// looping. Transport failures always end the whole siege; any other
// unexpected failure inside an iteration is logged, costs a one second
// pause, and never escalates.
func (w *worker) iterate(ctx context.Context) (keepGoing bool) {
	defer func() {
		if r := recover(); r != nil {
			w.pool.logger.Error("unexpected worker error",
				"worker", w.id, "panic", r)
			sleepCtx(ctx, internalErrorPause)
			keepGoing = true
		}
	}()

	if err := w.pool.limiter.Wait(ctx); err != nil {
		return false
	}

	w.requests++
	url := request.SiegeURL(w.pool.cfg.TargetURL, w.id, w.requests, w.pool.clock.Now())

	// The request is deliberately not bound to the run context: shutdown
	// is cooperative and an in-flight request runs to its own timeout.
	res, err := request.Do(w.pool.client, url, request.Headers(w.rng))
	if err != nil {
		w.pool.logger.Error("request build failed",
			"worker", w.id, "error", err)
		sleepCtx(ctx, internalErrorPause)
		return true
	}

	var o core.Outcome
	if res.TransportErr != nil {
		o = core.NewTransportFailure(w.id, w.pool.clock.Now())
	} else {
		o = core.NewOutcome(w.id, res.StatusCode, res.Latency, w.pool.clock.Now())
	}
	o.Sequence = w.pool.recorder.Record(o)

	if w.pool.sink != nil {
		w.pool.sink.Emit(o, w.requests)
	}

	if o.Fatal {
		if o.Transport() {
			w.pool.logger.Error("transport failure, ending siege",
				"worker", w.id, "error", res.TransportErr)
		} else {
			w.pool.logger.Error("fatal status, ending siege",
				"worker", w.id, "status", o.StatusCode, "sequence", o.Sequence)
		}
		w.pool.cancel.Cancel()
		return false
	}

	sleepCtx(ctx, w.delay(res.Latency))
	return true
}

// delay picks the inter-request pause from the three-tier rule and adds
// jitter.
func (w *worker) delay(latency time.Duration) time.Duration {
	cfg := w.pool.cfg
	var d time.Duration
	switch {
	case latency > time.Duration(slowLatencyFactor*float64(cfg.Timeout)):
		d = cfg.MaxDelay
	case latency < fastLatency:
		d = cfg.MinDelay
	default:
		d = cfg.BaseDelay
	}
	jitter := time.Duration((w.rng.Float64()*jitterSpan + jitterOffset) * float64(time.Second))
	d += jitter
	if d < minSleep {
		d = minSleep
	}
	return d
}

// sleepCtx sleeps for d, returning false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
