// Package persist reads and writes siege result documents.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"siege/internal/collector"
	"siege/internal/core"
)

type document struct {
	Metadata   metadata   `json:"metadata"`
	Statistics statistics `json:"statistics"`
	Results    []result   `json:"results"`
}

type metadata struct {
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	DurationSeconds    float64 `json:"duration_seconds"`
	TotalRequests      int64   `json:"total_requests"`
	FatalErrorDetected bool    `json:"fatal_error_detected"`
}

type statistics struct {
	StatusDistribution map[string]int64  `json:"status_distribution"`
	ErrorCounts        map[string]int64  `json:"error_counts"`
	ResponseTimeStats  responseTimeStats `json:"response_time_stats"`
}

type responseTimeStats struct {
	Count   int     `json:"count"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

type result struct {
	Timestamp    string  `json:"timestamp"`
	RequestCount int64   `json:"request_count"`
	StatusCode   int     `json:"status_code"`
	ResponseTime float64 `json:"response_time"`
	WorkerID     int     `json:"worker_id"`
	Error        bool    `json:"error"`
	FatalError   bool    `json:"fatal_error"`
}

// Save writes the full result document to path.
func Save(path string, s *collector.Summary) error {
	doc := document{
		Metadata: metadata{
			StartTime:          s.StartTime.Format(time.RFC3339Nano),
			EndTime:            s.EndTime.Format(time.RFC3339Nano),
			DurationSeconds:    s.Duration.Seconds(),
			TotalRequests:      s.Total,
			FatalErrorDetected: s.Reason == collector.StopFatal,
		},
		Statistics: statistics{
			StatusDistribution: make(map[string]int64, len(s.StatusHist)),
			ErrorCounts:        s.ErrorHist,
			ResponseTimeStats: responseTimeStats{
				Count:   s.Latency.Count,
				Min:     s.Latency.Min.Seconds(),
				Max:     s.Latency.Max.Seconds(),
				Average: s.Latency.Mean.Seconds(),
			},
		},
		Results: make([]result, 0, len(s.Outcomes)),
	}
	for code, count := range s.StatusHist {
		doc.Statistics.StatusDistribution[strconv.Itoa(code)] = count
	}
	for _, o := range s.Outcomes {
		doc.Results = append(doc.Results, result{
			Timestamp:    o.Timestamp.Format(time.RFC3339Nano),
			RequestCount: o.Sequence,
			StatusCode:   o.StatusCode,
			ResponseTime: o.Latency.Seconds(),
			WorkerID:     o.WorkerID,
			Error:        o.Error,
			FatalError:   o.Fatal,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

// Load reads a saved document back into a Summary so a past run can be
// re-rendered. Tolerant of extra fields.
func Load(path string) (*collector.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing results: %s is not valid JSON", path)
	}
	root := gjson.ParseBytes(data)

	start, err := time.Parse(time.RFC3339Nano, root.Get("metadata.start_time").String())
	if err != nil {
		return nil, fmt.Errorf("parsing start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339Nano, root.Get("metadata.end_time").String())
	if err != nil {
		return nil, fmt.Errorf("parsing end time: %w", err)
	}

	snap := collector.Snapshot{
		StartTime:  start,
		EndTime:    end,
		Total:      root.Get("metadata.total_requests").Int(),
		StatusHist: make(map[int]int64),
		ErrorHist:  make(map[string]int64),
	}

	root.Get("statistics.status_distribution").ForEach(func(key, value gjson.Result) bool {
		code, convErr := strconv.Atoi(key.String())
		if convErr == nil {
			snap.StatusHist[code] = value.Int()
		}
		return true
	})
	root.Get("statistics.error_counts").ForEach(func(key, value gjson.Result) bool {
		snap.ErrorHist[key.String()] = value.Int()
		return true
	})
	root.Get("results").ForEach(func(_, r gjson.Result) bool {
		ts, tsErr := time.Parse(time.RFC3339Nano, r.Get("timestamp").String())
		if tsErr != nil {
			ts = start
		}
		snap.Outcomes = append(snap.Outcomes, core.Outcome{
			Sequence:   r.Get("request_count").Int(),
			Timestamp:  ts,
			StatusCode: int(r.Get("status_code").Int()),
			Latency:    time.Duration(r.Get("response_time").Float() * float64(time.Second)),
			WorkerID:   int(r.Get("worker_id").Int()),
			Error:      r.Get("error").Bool(),
			Fatal:      r.Get("fatal_error").Bool(),
		})
		return true
	})

	reason := collector.StopManual
	if root.Get("metadata.fatal_error_detected").Bool() {
		reason = collector.StopFatal
	}
	return collector.ComputeSummary(snap, end, reason), nil
}
