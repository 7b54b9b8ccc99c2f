// Package ratelimit provides an optional global cap on request rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by all workers. A nil Limiter means the
// siege runs uncapped.
type Limiter struct {
	limiter *rate.Limiter
}

// New returns a limiter allowing rps requests per second across the whole
// pool, or nil when rps is zero or negative.
func New(rps int) *Limiter {
	if rps <= 0 {
		return nil
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), rps)}
}

// Wait blocks until a request slot is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
