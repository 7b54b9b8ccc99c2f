package core

import "sync/atomic"

// Cancellation is a one-way broadcast flag observed cooperatively by every
// worker, the dashboard and the coordinator. It starts unset and transitions
// to set exactly once; further Cancel calls are no-ops. There is no
// preemptive interruption: consumers poll the flag at loop boundaries.
type Cancellation struct {
	set atomic.Bool
}

// Cancel sets the flag. Safe to call from any goroutine, any number of times.
func (c *Cancellation) Cancel() {
	c.set.Store(true)
}

// Cancelled reports whether the flag has been set. Never blocks.
func (c *Cancellation) Cancelled() bool {
	return c.set.Load()
}
