package core

import (
	"sync"
	"testing"
)

func TestCancellation_StartsUnset(t *testing.T) {
	var c Cancellation
	if c.Cancelled() {
		t.Error("new cancellation should be unset")
	}
}

func TestCancellation_SetOnce(t *testing.T) {
	var c Cancellation
	c.Cancel()
	if !c.Cancelled() {
		t.Error("expected cancellation to be set")
	}
	// A second set is a no-op, not an error.
	c.Cancel()
	if !c.Cancelled() {
		t.Error("cancellation must never revert to unset")
	}
}

func TestCancellation_ConcurrentSetIsIdempotent(t *testing.T) {
	var c Cancellation
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Cancel()
		}()
	}
	wg.Wait()

	if !c.Cancelled() {
		t.Error("expected cancellation to be set after concurrent sets")
	}
}
