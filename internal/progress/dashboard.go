package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"siege/internal/collector"
	"siege/internal/core"
)

// LiveCounter reports how many workers are still running.
type LiveCounter interface {
	Live() int
}

// Dashboard periodically renders rolling-window statistics from collector
// snapshots. Read-only: it never mutates aggregate state.
type Dashboard struct {
	coll     *collector.Collector
	pool     LiveCounter
	cancel   *core.Cancellation
	workers  int
	interval time.Duration
	clock    core.Clock

	mu      sync.Mutex
	out     io.Writer
	ticker  *time.Ticker
	stopCh  chan struct{}
	stopped atomic.Bool
}

func NewDashboard(coll *collector.Collector, pool LiveCounter, cancel *core.Cancellation, workers int, interval time.Duration) *Dashboard {
	return &Dashboard{
		coll:     coll,
		pool:     pool,
		cancel:   cancel,
		workers:  workers,
		interval: interval,
		clock:    core.RealClock{},
		out:      os.Stderr,
	}
}

// SetOutput redirects the dashboard, for tests.
func (d *Dashboard) SetOutput(w io.Writer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out = w
}

func (d *Dashboard) Start() {
	d.stopCh = make(chan struct{})
	d.ticker = time.NewTicker(d.interval)
	go d.run()
}

func (d *Dashboard) run() {
	for {
		select {
		case <-d.stopCh:
			return
		case <-d.ticker.C:
			if d.cancel.Cancelled() {
				return
			}
			d.render()
		}
	}
}

func (d *Dashboard) Stop() {
	if d.stopped.Swap(true) {
		return
	}
	if d.ticker != nil {
		d.ticker.Stop()
	}
	if d.stopCh != nil {
		close(d.stopCh)
	}
}

func (d *Dashboard) render() {
	snap := d.coll.Snapshot()
	stats := collector.ComputeWindow(snap, d.clock.Now(), collector.DashboardWindow)

	d.mu.Lock()
	defer d.mu.Unlock()
	Render(d.out, stats, d.pool.Live(), d.workers)
}

const dashboardRule = "================================================================================"

// Render writes one dashboard frame. Exported for tests.
func Render(w io.Writer, stats collector.WindowStats, live, workers int) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, dashboardRule)
	fmt.Fprintln(w, "REAL-TIME SIEGE DASHBOARD")
	fmt.Fprintln(w, dashboardRule)
	fmt.Fprintf(w, "Total Requests: %d\n", stats.Total)
	fmt.Fprintf(w, "Current RPS: %.1f\n", stats.RPS)
	fmt.Fprintf(w, "Recent Avg Response: %.3fs | Max: %.3fs\n",
		stats.AvgLatency.Seconds(), stats.MaxLatency.Seconds())
	fmt.Fprintf(w, "Recent Error Rate: %.1f%%\n", stats.ErrorRate)
	fmt.Fprintf(w, "Active Workers: %d/%d\n", live, workers)

	if len(stats.Bars) > 0 {
		fmt.Fprintln(w, "\nStatus Code Distribution:")
		for _, bar := range stats.Bars {
			collector.StatusColor(bar.Code).Fprintf(w, "  %3d: %6d [%-50s] %.1f%%\n",
				bar.Code, bar.Count, collector.Bar(bar.Percent, 50), bar.Percent)
		}
	}
	fmt.Fprintln(w, dashboardRule)
}
