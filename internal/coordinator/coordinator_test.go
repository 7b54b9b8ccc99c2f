package coordinator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"siege/internal/collector"
	"siege/internal/config"
	"siege/internal/core"
)

func testConfig(url string) config.RunConfig {
	cfg := config.Default()
	cfg.TargetURL = url
	cfg.Workers = 3
	cfg.BaseDelay = 10 * time.Millisecond
	cfg.MinDelay = 10 * time.Millisecond
	cfg.MaxDelay = 50 * time.Millisecond
	cfg.Timeout = 2 * time.Second
	cfg.DashboardInterval = time.Second
	return cfg
}

func TestRun_FatalStatusStopsSiege(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	coord := New(testConfig(server.URL), nil)
	summary := coord.Run(context.Background())

	if summary.Reason != collector.StopFatal {
		t.Fatalf("expected fatal stop, got %v", summary.Reason)
	}
	if summary.FatalOutcome == nil {
		t.Fatal("expected a fatal outcome in the report")
	}
	if summary.FatalOutcome.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", summary.FatalOutcome.StatusCode)
	}
	if !coord.Cancellation().Cancelled() {
		t.Error("expected the cancellation flag to be set")
	}
	if summary.StatusHist[503] == 0 {
		t.Error("expected 503 in the status histogram")
	}
}

func TestRun_TransportFailureStopsSiege(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := testConfig(url)
	cfg.Workers = 2
	coord := New(cfg, nil)
	summary := coord.Run(context.Background())

	if summary.Reason != collector.StopFatal {
		t.Fatalf("expected fatal stop, got %v", summary.Reason)
	}
	if summary.FatalOutcome == nil {
		t.Fatal("expected a fatal outcome")
	}
	if !summary.FatalOutcome.Transport() {
		t.Errorf("expected transport classification, got status %d", summary.FatalOutcome.StatusCode)
	}
	if summary.ErrorHist[collector.TransportKey] == 0 {
		t.Error("expected a transport entry in the error histogram")
	}
}

func TestRun_ExternalCancellationIsManualStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()

	coord := New(testConfig(server.URL), nil)
	summary := coord.Run(ctx)

	if summary.Reason != collector.StopManual {
		t.Fatalf("expected manual stop, got %v", summary.Reason)
	}
	if summary.FatalOutcome != nil {
		t.Error("healthy run must not report a fatal outcome")
	}
	for _, o := range summary.Outcomes {
		if o.Fatal {
			t.Fatalf("unexpected fatal outcome in log: %+v", o)
		}
	}
	if summary.Total == 0 {
		t.Error("expected some requests before the stop")
	}
}

func TestRun_NonFatalErrorsDoNotStopSiege(t *testing.T) {
	var count atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if count.Add(1)%5 == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 1200*time.Millisecond)
	defer cancel()

	coord := New(testConfig(server.URL), nil)
	summary := coord.Run(ctx)

	if summary.Reason != collector.StopManual {
		t.Fatalf("404s must not stop the siege, got %v", summary.Reason)
	}
	if summary.StatusHist[200] == 0 || summary.StatusHist[404] == 0 {
		t.Errorf("expected both 200s and 404s, got %v", summary.StatusHist)
	}
	if summary.ErrorHist["404"] == 0 {
		t.Errorf("expected 404s in the error histogram, got %v", summary.ErrorHist)
	}
	if summary.ErrorHist[collector.TransportKey] != 0 {
		t.Errorf("no transport failures expected, got %v", summary.ErrorHist)
	}
}

func TestRun_WorkerExhaustionDetected(t *testing.T) {
	cfg := testConfig("http://localhost:1")
	cfg.Workers = 0 // pool starts with nobody alive

	coord := New(cfg, nil)
	summary := coord.Run(context.Background())

	if summary.Reason != collector.StopExhausted {
		t.Fatalf("expected exhaustion stop, got %v", summary.Reason)
	}
}

// panickingSink blows up on every outcome; the workers must survive it.
type panickingSink struct {
	emits atomic.Int64
}

func (s *panickingSink) Emit(core.Outcome, int64) {
	s.emits.Add(1)
	panic("sink failure")
}

func TestRun_InternalErrorsNeverEscalate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Workers = 1

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	sink := &panickingSink{}
	coord := New(cfg, nil)
	coord.SetSink(sink)
	summary := coord.Run(ctx)

	if summary.Reason != collector.StopManual {
		t.Fatalf("internal errors must not stop the siege, got %v", summary.Reason)
	}
	if sink.emits.Load() == 0 {
		t.Fatal("sink was never invoked")
	}
	if summary.Total == 0 {
		t.Error("outcomes must be recorded despite sink failures")
	}
}

// recordingSink captures the per-worker request counters it sees.
type recordingSink struct {
	mu    chan struct{}
	seen  map[int][]int64
	total atomic.Int64
}

func newRecordingSink() *recordingSink {
	s := &recordingSink{mu: make(chan struct{}, 1), seen: make(map[int][]int64)}
	s.mu <- struct{}{}
	return s
}

func (s *recordingSink) Emit(o core.Outcome, workerRequests int64) {
	<-s.mu
	s.seen[o.WorkerID] = append(s.seen[o.WorkerID], workerRequests)
	s.mu <- struct{}{}
	s.total.Add(1)
}

func TestRun_LiveFeedbackInOrderPerWorker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()

	sink := newRecordingSink()
	coord := New(testConfig(server.URL), nil)
	coord.SetSink(sink)
	coord.Run(ctx)

	if sink.total.Load() == 0 {
		t.Fatal("no outcomes emitted")
	}
	for worker, counts := range sink.seen {
		for i := 1; i < len(counts); i++ {
			if counts[i] != counts[i-1]+1 {
				t.Fatalf("worker %d feedback out of order: %v", worker, counts)
			}
		}
	}
}

func TestWorkerDelay_Tiers(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.BaseDelay = 100 * time.Millisecond
	cfg.MinDelay = 10 * time.Millisecond
	cfg.MaxDelay = 2 * time.Second
	cfg.Timeout = 10 * time.Second

	pool := NewPool(cfg, collector.New(time.Now()), &core.Cancellation{}, discardLogger())
	w := &worker{id: 1, pool: pool, rng: newTestRNG()}

	tests := []struct {
		name    string
		latency time.Duration
		tier    time.Duration
	}{
		{"slow response backs off", 9 * time.Second, cfg.MaxDelay},
		{"fast response goes aggressive", 20 * time.Millisecond, cfg.MinDelay},
		{"normal response keeps base", 500 * time.Millisecond, cfg.BaseDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Jitter is uniform over [-20ms, 50ms) with a 10ms floor.
			lo := tt.tier - 20*time.Millisecond
			if lo < minSleep {
				lo = minSleep
			}
			hi := tt.tier + 50*time.Millisecond
			for i := 0; i < 200; i++ {
				d := w.delay(tt.latency)
				if d < lo || d > hi {
					t.Fatalf("delay %v outside [%v, %v]", d, lo, hi)
				}
			}
		})
	}
}

func TestWorkerDelay_Floor(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.MinDelay = 0

	pool := NewPool(cfg, collector.New(time.Now()), &core.Cancellation{}, discardLogger())
	w := &worker{id: 1, pool: pool, rng: newTestRNG()}

	for i := 0; i < 200; i++ {
		if d := w.delay(time.Millisecond); d < minSleep {
			t.Fatalf("delay %v under the %v floor", d, minSleep)
		}
	}
}

func TestPool_DrainTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Workers = 1
	cfg.Timeout = 5 * time.Second

	pool := NewPool(cfg, collector.New(time.Now()), &core.Cancellation{}, discardLogger())
	pool.Start(context.Background(), 1)

	// Give the worker time to get a request in flight, then stop: the
	// in-flight request is not preempted, so a short drain must time out.
	time.Sleep(300 * time.Millisecond)
	pool.Stop()
	if pool.Drain(100 * time.Millisecond) {
		t.Error("expected drain to time out with a request in flight")
	}

	if !pool.Drain(5 * time.Second) {
		t.Error("expected the straggler to finish eventually")
	}
	if pool.Live() != 0 {
		t.Errorf("expected no live workers, got %d", pool.Live())
	}
}
