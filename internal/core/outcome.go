// Package core defines the fundamental types shared by the siege engine.
package core

import "time"

// TransportFailureCode is the reserved status code for requests that
// produced no HTTP response at all (timeout, refused connection, DNS or
// TLS failure).
const TransportFailureCode = 0

// fatalStatusCodes are the response codes that end the siege.
var fatalStatusCodes = map[int]struct{}{
	500: {},
	502: {},
	503: {},
	504: {},
}

// IsFatalStatus reports whether a response status code ends the siege.
func IsFatalStatus(code int) bool {
	_, ok := fatalStatusCodes[code]
	return ok
}

// FatalStatuses returns the fatal status codes in ascending order.
func FatalStatuses() []int {
	return []int{500, 502, 503, 504}
}

// Outcome records one completed or failed request attempt. Outcomes are
// immutable once recorded; the Sequence field is assigned by the collector,
// never by the worker that produced the outcome.
type Outcome struct {
	Sequence   int64
	Timestamp  time.Time
	StatusCode int // TransportFailureCode when no response was obtained
	Latency    time.Duration
	WorkerID   int
	Error      bool
	Fatal      bool
}

// Transport reports whether the outcome represents a transport failure.
func (o Outcome) Transport() bool {
	return o.StatusCode == TransportFailureCode
}

// NewOutcome builds the outcome for a completed HTTP response.
func NewOutcome(workerID, statusCode int, latency time.Duration, now time.Time) Outcome {
	return Outcome{
		Timestamp:  now,
		StatusCode: statusCode,
		Latency:    latency,
		WorkerID:   workerID,
		Error:      statusCode >= 400,
		Fatal:      IsFatalStatus(statusCode),
	}
}

// NewTransportFailure builds the outcome for a request that produced no
// response. Transport failures always end the siege.
func NewTransportFailure(workerID int, now time.Time) Outcome {
	return Outcome{
		Timestamp:  now,
		StatusCode: TransportFailureCode,
		Latency:    0,
		WorkerID:   workerID,
		Error:      true,
		Fatal:      true,
	}
}

// Recorder ingests outcomes. Implemented by the collector.
type Recorder interface {
	Record(Outcome) int64
}

// OutcomeSink receives every recorded outcome for live feedback.
// workerRequests is the producing worker's local request count.
type OutcomeSink interface {
	Emit(o Outcome, workerRequests int64)
}
