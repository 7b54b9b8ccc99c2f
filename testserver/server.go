// Package testserver provides a configurable HTTP target for siege runs.
package testserver

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Server is a target that can be driven to the failure modes a siege is
// meant to find.
type Server struct {
	mux      *http.ServeMux
	requests atomic.Int64
}

// NewServer creates a test target with all endpoints configured.
func NewServer() *Server {
	s := &Server{mux: http.NewServeMux()}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/status/", s.handleStatus)
	s.mux.HandleFunc("/delay/", s.handleDelay)
	s.mux.HandleFunc("/flaky", s.handleFlaky)
	s.mux.HandleFunc("/collapse", s.handleCollapse)
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Requests returns the number of requests handled so far.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// handleHealth always succeeds.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleStatus returns the status code named in the path.
// Example: GET /status/503 returns 503.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	path := strings.TrimPrefix(r.URL.Path, "/status/")
	code, err := strconv.Atoi(path)
	if err != nil || code < 100 || code > 599 {
		http.Error(w, "invalid status code", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
	fmt.Fprintf(w, "%d %s", code, http.StatusText(code))
}

// handleDelay waits the given number of milliseconds before a 200.
// Example: GET /delay/250 waits 250ms.
func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	path := strings.TrimPrefix(r.URL.Path, "/delay/")
	ms, err := strconv.Atoi(path)
	if err != nil || ms < 0 {
		http.Error(w, "invalid delay", http.StatusBadRequest)
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	fmt.Fprintf(w, "delayed %dms", ms)
}

// handleFlaky fails with the given status at the given probability.
// Example: GET /flaky?rate=0.3&code=502 returns 502 roughly 30% of the time.
func (s *Server) handleFlaky(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	rate := 0.5
	if v := r.URL.Query().Get("rate"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			http.Error(w, "invalid rate", http.StatusBadRequest)
			return
		}
		rate = parsed
	}
	code := http.StatusInternalServerError
	if v := r.URL.Query().Get("code"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 100 || parsed > 599 {
			http.Error(w, "invalid code", http.StatusBadRequest)
			return
		}
		code = parsed
	}
	if rand.Float64() < rate {
		w.WriteHeader(code)
		fmt.Fprintf(w, "%d %s", code, http.StatusText(code))
		return
	}
	fmt.Fprint(w, "ok")
}

// handleCollapse stays healthy until the server has seen the given number
// of requests, then answers 503 forever — a server buckling under load.
// Example: GET /collapse?after=100.
func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	seen := s.requests.Add(1)
	after := int64(100)
	if v := r.URL.Query().Get("after"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid threshold", http.StatusBadRequest)
			return
		}
		after = parsed
	}
	if seen > after {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "503 Service Unavailable")
		return
	}
	fmt.Fprint(w, "holding")
}
