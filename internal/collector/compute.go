package collector

import (
	"sort"
	"time"

	"siege/internal/core"
)

const (
	// DashboardWindow is the trailing slice of the outcome log used for
	// live-rate computation.
	DashboardWindow = 30 * time.Second

	// minPercentileSamples gates the percentile computation: below this
	// many positive latencies the percentiles are meaningless noise.
	minPercentileSamples = 10

	// maxHistogramRows caps the dashboard histogram. Fatal codes are shown
	// even past the cap.
	maxHistogramRows = 8
)

// HistogramBar is one row of the rendered status histogram.
type HistogramBar struct {
	Code    int
	Count   int64
	Percent float64 // of the all-time total
}

// WindowStats summarizes the trailing window of a snapshot.
type WindowStats struct {
	Window     time.Duration
	Count      int
	RPS        float64
	AvgLatency time.Duration
	MaxLatency time.Duration
	ErrorRate  float64 // percent of windowed outcomes
	Total      int64   // all-time total
	Bars       []HistogramBar
}

// ComputeWindow computes dashboard statistics over the trailing window of
// the snapshot, plus the all-time histogram bars. Pure function.
func ComputeWindow(snap Snapshot, now time.Time, window time.Duration) WindowStats {
	stats := WindowStats{
		Window: window,
		Total:  snap.Total,
		Bars:   histogramBars(snap),
	}

	cutoff := now.Add(-window)
	var (
		errored  int
		latTotal time.Duration
		latCount int
	)
	for _, o := range snap.Outcomes {
		if !o.Timestamp.After(cutoff) {
			continue
		}
		stats.Count++
		if o.Error {
			errored++
		}
		if o.Latency > 0 {
			latTotal += o.Latency
			latCount++
			if o.Latency > stats.MaxLatency {
				stats.MaxLatency = o.Latency
			}
		}
	}

	if stats.Count > 0 {
		stats.RPS = float64(stats.Count) / window.Seconds()
		stats.ErrorRate = float64(errored) / float64(stats.Count) * 100
	}
	if latCount > 0 {
		stats.AvgLatency = latTotal / time.Duration(latCount)
	}
	return stats
}

// histogramBars orders the all-time status histogram by frequency and trims
// it to the top rows, always keeping any fatal code present.
func histogramBars(snap Snapshot) []HistogramBar {
	codes := make([]int, 0, len(snap.StatusHist))
	for code := range snap.StatusHist {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		ci, cj := snap.StatusHist[codes[i]], snap.StatusHist[codes[j]]
		if ci != cj {
			return ci > cj
		}
		return codes[i] < codes[j]
	})

	bars := make([]HistogramBar, 0, len(codes))
	for _, code := range codes {
		if len(bars) >= maxHistogramRows && !core.IsFatalStatus(code) {
			continue
		}
		count := snap.StatusHist[code]
		var pct float64
		if snap.Total > 0 {
			pct = float64(count) / float64(snap.Total) * 100
		}
		bars = append(bars, HistogramBar{Code: code, Count: count, Percent: pct})
	}
	return bars
}

// StopReason classifies how a run ended.
type StopReason int

const (
	// StopManual means the run was stopped by an external request.
	StopManual StopReason = iota
	// StopFatal means a fatal outcome triggered global cancellation.
	StopFatal
	// StopExhausted means every worker exited while the run was still
	// marked active.
	StopExhausted
)

func (r StopReason) String() string {
	switch r {
	case StopFatal:
		return "fatal"
	case StopExhausted:
		return "worker exhaustion"
	default:
		return "manual"
	}
}

// LatencyStats holds full-run latency statistics over positive latencies.
type LatencyStats struct {
	Count          int
	Min            time.Duration
	Max            time.Duration
	Mean           time.Duration
	P50            time.Duration
	P95            time.Duration
	P99            time.Duration
	HasPercentiles bool
}

// Summary is the final report of a run.
type Summary struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Total        int64
	AvgRPS       float64
	Latency      LatencyStats
	StatusHist   map[int]int64
	ErrorHist    map[string]int64
	Reason       StopReason
	FatalOutcome *core.Outcome // last fatal outcome, set when Reason is StopFatal
	Outcomes     []core.Outcome
}

// ComputeSummary computes the final report from a snapshot. Pure function.
func ComputeSummary(snap Snapshot, endTime time.Time, reason StopReason) *Summary {
	s := &Summary{
		StartTime:  snap.StartTime,
		EndTime:    endTime,
		Duration:   endTime.Sub(snap.StartTime),
		Total:      snap.Total,
		StatusHist: snap.StatusHist,
		ErrorHist:  snap.ErrorHist,
		Reason:     reason,
		Outcomes:   snap.Outcomes,
	}

	if s.Duration > 0 {
		s.AvgRPS = float64(s.Total) / s.Duration.Seconds()
	}
	s.Latency = computeLatencyStats(snap.Outcomes)

	if reason == StopFatal {
		for i := len(snap.Outcomes) - 1; i >= 0; i-- {
			if snap.Outcomes[i].Fatal {
				o := snap.Outcomes[i]
				s.FatalOutcome = &o
				break
			}
		}
	}
	return s
}

func computeLatencyStats(outcomes []core.Outcome) LatencyStats {
	latencies := make([]time.Duration, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Latency > 0 {
			latencies = append(latencies, o.Latency)
		}
	}

	stats := LatencyStats{Count: len(latencies)}
	if len(latencies) == 0 {
		return stats
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	stats.Min = latencies[0]
	stats.Max = latencies[len(latencies)-1]
	stats.Mean = total / time.Duration(len(latencies))

	if len(latencies) >= minPercentileSamples {
		stats.HasPercentiles = true
		stats.P50 = Percentile(latencies, 0.50)
		stats.P95 = Percentile(latencies, 0.95)
		stats.P99 = Percentile(latencies, 0.99)
	}
	return stats
}

// Percentile returns the nearest-rank percentile of a sorted sample:
// index = floor(p * len). The slice must be sorted ascending.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
