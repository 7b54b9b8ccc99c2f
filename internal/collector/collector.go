// Package collector aggregates outcomes and computes siege statistics.
package collector

import (
	"strconv"
	"sync"
	"time"

	"siege/internal/core"
)

// TransportKey is the error-histogram key for transport failures.
const TransportKey = "transport"

// Collector is the single shared aggregate of a run. All mutation happens
// inside Record under one mutex; readers take copy-on-read snapshots so
// statistics computation never blocks the workers.
//
// The outcome log is append-only and unbounded for the run's lifetime.
// A multi-hour siege accumulates every outcome in memory; callers that need
// bounded memory would have to swap this type for a bounded variant.
type Collector struct {
	mu         sync.Mutex
	startTime  time.Time
	endTime    time.Time
	total      int64
	statusHist map[int]int64
	errorHist  map[string]int64
	outcomes   []core.Outcome
}

// New creates a collector; the run's start time is taken as now.
func New(now time.Time) *Collector {
	return &Collector{
		startTime:  now,
		statusHist: make(map[int]int64),
		errorHist:  make(map[string]int64),
	}
}

// Record ingests one outcome, assigns its sequence number and returns it.
// Sequence numbers are strictly increasing with no gaps; concurrent calls
// never lose an update or leave the histograms inconsistent with the log.
func (c *Collector) Record(o core.Outcome) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	o.Sequence = c.total
	c.outcomes = append(c.outcomes, o)
	c.statusHist[o.StatusCode]++
	if o.Error {
		c.errorHist[ErrorKey(o.StatusCode)]++
	}
	return o.Sequence
}

// ErrorKey maps a status code to its error-histogram key.
func ErrorKey(statusCode int) string {
	if statusCode == core.TransportFailureCode {
		return TransportKey
	}
	return strconv.Itoa(statusCode)
}

// Finish records the run's end time. Records arriving afterwards are still
// accepted; stragglers past the drain timeout are abandoned, not killed.
func (c *Collector) Finish(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = now
}

// Snapshot is a consistent point-in-time copy of the aggregate state.
type Snapshot struct {
	StartTime  time.Time
	EndTime    time.Time // zero until Finish
	Total      int64
	StatusHist map[int]int64
	ErrorHist  map[string]int64
	Outcomes   []core.Outcome
}

// Snapshot returns a copy safe to read while workers continue to record.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		StartTime:  c.startTime,
		EndTime:    c.endTime,
		Total:      c.total,
		StatusHist: make(map[int]int64, len(c.statusHist)),
		ErrorHist:  make(map[string]int64, len(c.errorHist)),
		Outcomes:   make([]core.Outcome, len(c.outcomes)),
	}
	for k, v := range c.statusHist {
		snap.StatusHist[k] = v
	}
	for k, v := range c.errorHist {
		snap.ErrorHist[k] = v
	}
	copy(snap.Outcomes, c.outcomes)
	return snap
}

// Total returns the all-time outcome count.
func (c *Collector) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}
