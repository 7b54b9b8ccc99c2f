package coordinator

import (
	"context"
	"io"
	"log/slog"
	"time"

	"siege/internal/collector"
	"siege/internal/config"
	"siege/internal/core"
	"siege/internal/ratelimit"
)

const (
	// pollInterval is how often the coordinator checks its stop conditions.
	pollInterval = 500 * time.Millisecond
	// drainTimeout bounds the wait for workers after a stop condition.
	drainTimeout = 2 * time.Second
)

// Ticker is a background task the coordinator starts and stops with the
// run, such as the dashboard reporter.
type Ticker interface {
	Start()
	Stop()
}

// Coordinator owns the run configuration and supervises the collector, the
// worker pool and the dashboard for one siege.
type Coordinator struct {
	cfg       config.RunConfig
	logger    *slog.Logger
	clock     core.Clock
	coll      *collector.Collector
	cancel    *core.Cancellation
	pool      *Pool
	dashboard Ticker
}

// New builds a fully wired coordinator for one run.
func New(cfg config.RunConfig, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := core.RealClock{}
	coll := collector.New(clock.Now())
	cancel := &core.Cancellation{}
	pool := NewPool(cfg, coll, cancel, logger)
	pool.SetLimiter(ratelimit.New(cfg.MaxRPS))

	return &Coordinator{
		cfg:    cfg,
		logger: logger,
		clock:  clock,
		coll:   coll,
		cancel: cancel,
		pool:   pool,
	}
}

// Collector exposes the run's aggregate for snapshot readers.
func (c *Coordinator) Collector() *collector.Collector { return c.coll }

// Cancellation exposes the run's broadcast stop flag.
func (c *Coordinator) Cancellation() *core.Cancellation { return c.cancel }

// Pool exposes the worker pool, mainly for liveness display.
func (c *Coordinator) Pool() *Pool { return c.pool }

// SetSink installs the live-feedback sink. Must be called before Run.
func (c *Coordinator) SetSink(s core.OutcomeSink) { c.pool.SetSink(s) }

// SetDashboard installs the periodic reporter started with the run.
func (c *Coordinator) SetDashboard(d Ticker) { c.dashboard = d }

// Run executes the siege until a stop condition and returns the final
// report. External cancellation arrives through ctx and is honored with the
// same bounded, cooperative shutdown as a fatal-detected stop.
func (c *Coordinator) Run(ctx context.Context) *collector.Summary {
	c.logger.Info("siege starting",
		"target", c.cfg.TargetURL,
		"workers", c.cfg.Workers,
		"timeout", c.cfg.Timeout)

	if c.dashboard != nil {
		c.dashboard.Start()
		defer c.dashboard.Stop()
	}

	c.pool.Start(ctx, c.cfg.Workers)
	reason := c.await(ctx)

	c.pool.Stop()
	if !c.pool.Drain(drainTimeout) {
		c.logger.Warn("abandoning workers still running after drain timeout",
			"live", c.pool.Live())
	}

	end := c.clock.Now()
	c.coll.Finish(end)
	summary := collector.ComputeSummary(c.coll.Snapshot(), end, reason)

	c.logger.Info("siege stopped",
		"reason", reason.String(),
		"total", summary.Total,
		"duration", summary.Duration)
	return summary
}

// await blocks until a stop condition: external cancellation, the fatal
// broadcast flag, or every worker gone while the run is still active.
func (c *Coordinator) await(ctx context.Context) collector.StopReason {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.cancel.Cancel()
			return collector.StopManual
		case <-ticker.C:
			if c.cancel.Cancelled() {
				return collector.StopFatal
			}
			if c.pool.Started() && c.pool.Live() == 0 {
				c.logger.Warn("all siege workers stopped unexpectedly")
				return collector.StopExhausted
			}
		}
	}
}
