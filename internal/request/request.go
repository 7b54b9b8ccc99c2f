// Package request builds and sends the individual siege requests.
package request

import (
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// userAgents is the rotation pool for the User-Agent header.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
}

// NewClient returns the HTTP client shared by all workers. The timeout
// bounds every in-flight request; cancellation of the run never preempts one.
func NewClient(timeout time.Duration, verifyTLS bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !verifyTLS}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// SiegeURL appends the cache-busting query parameter to the target URL.
// The parameter value combines the current time, the worker id and the
// worker's local request counter so no two requests share a URL.
func SiegeURL(target string, workerID int, workerRequests int64, now time.Time) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%ssiege=%d_%d_%d", target, sep, now.UnixMilli(), workerID, workerRequests)
}

// Headers returns browser-like request headers with a rotated User-Agent.
// They exist purely to defeat caching and fingerprinting; nothing in the
// engine depends on them.
func Headers(rng *rand.Rand) map[string]string {
	return map[string]string{
		"User-Agent":                userAgents[rng.Intn(len(userAgents))],
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Accept-Encoding":           "gzip, deflate",
		"Connection":                "keep-alive",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"Upgrade-Insecure-Requests": "1",
	}
}

// Result is the classified outcome of one request attempt.
type Result struct {
	StatusCode   int
	Latency      time.Duration
	TransportErr error // non-nil when no HTTP response was obtained
}

// Do sends a single GET and classifies the result. The returned error is
// reserved for internal failures (a request that could not be built);
// transport-level failures are reported through Result.TransportErr.
func Do(client *http.Client, url string, headers map[string]string) (Result, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("building request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return Result{TransportErr: err}, nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) // drain errors are ignorable

	return Result{StatusCode: resp.StatusCode, Latency: latency}, nil
}
