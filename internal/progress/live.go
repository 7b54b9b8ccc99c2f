// Package progress renders live siege feedback to the console.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"siege/internal/core"
)

var (
	liveOK    = color.New(color.FgGreen)
	liveWarn  = color.New(color.FgYellow)
	liveFatal = color.New(color.FgRed)
	liveInfo  = color.New(color.FgCyan)
)

// Live prints one overwritten console line per outcome. Implements
// core.OutcomeSink.
type Live struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
}

func NewLive(quiet bool) *Live {
	return &Live{out: os.Stderr, quiet: quiet}
}

// SetOutput redirects the live line, for tests.
func (l *Live) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

func (l *Live) Emit(o core.Outcome, workerRequests int64) {
	if l.quiet {
		return
	}

	var (
		c    *color.Color
		desc string
	)
	switch {
	case o.Fatal:
		c, desc = liveFatal, "FATAL"
	case o.Error:
		c, desc = liveWarn, "ERROR"
	case o.StatusCode == 200:
		c, desc = liveOK, "OK"
	default:
		c, desc = liveInfo, "OTHER"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprint(l.out, "\r\033[K")
	c.Fprintf(l.out, "Worker %2d | Req #%6d | Total: %8d | Status: %3d (%-5s) | Time: %.3fs",
		o.WorkerID, workerRequests, o.Sequence, o.StatusCode, desc, o.Latency.Seconds())

	if o.Fatal {
		fmt.Fprintln(l.out, "")
		if o.Transport() {
			liveFatal.Fprintf(l.out, "FATAL: transport failure on worker %d, stopping siege\n", o.WorkerID)
		} else {
			liveFatal.Fprintf(l.out, "FATAL: status %d on worker %d, stopping siege\n", o.StatusCode, o.WorkerID)
		}
	}
}

// Println clears the live line and prints a message on its own line.
func (l *Live) Println(message string) {
	if l.quiet {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "\r\033[K%s\n", message)
}
