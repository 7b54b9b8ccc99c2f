package collector

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"siege/internal/core"
)

var (
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	fatalColor = color.New(color.FgRed)
	infoColor  = color.New(color.FgCyan)
)

const reportRule = "================================================================================"

// StatusColor returns the render color for a status code.
func StatusColor(code int) *color.Color {
	switch {
	case core.IsFatalStatus(code) || code == core.TransportFailureCode:
		return fatalColor
	case code >= 200 && code < 300:
		return okColor
	case code >= 400 && code < 500:
		return warnColor
	default:
		return infoColor
	}
}

// FormatSummary writes the final report in human-readable form.
func FormatSummary(w io.Writer, s *Summary, targetURL string) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, reportRule)
	fmt.Fprintln(w, "SIEGE FINAL REPORT")
	fmt.Fprintln(w, reportRule)

	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  Target URL:     %s\n", targetURL)
	fmt.Fprintf(w, "  Duration:       %.2fs\n", s.Duration.Seconds())
	fmt.Fprintf(w, "  Total Requests: %s\n", formatNumber(s.Total))
	if s.Duration > 0 {
		fmt.Fprintf(w, "  Average RPS:    %.2f\n", s.AvgRPS)
	}

	if s.Latency.Count > 0 {
		fmt.Fprintln(w, "\nResponse Times:")
		fmt.Fprintf(w, "  Fastest: %.4fs\n", s.Latency.Min.Seconds())
		fmt.Fprintf(w, "  Slowest: %.4fs\n", s.Latency.Max.Seconds())
		fmt.Fprintf(w, "  Average: %.4fs\n", s.Latency.Mean.Seconds())
		if s.Latency.HasPercentiles {
			fmt.Fprintf(w, "  Median (p50):    %.4fs\n", s.Latency.P50.Seconds())
			fmt.Fprintf(w, "  95th Percentile: %.4fs\n", s.Latency.P95.Seconds())
			fmt.Fprintf(w, "  99th Percentile: %.4fs\n", s.Latency.P99.Seconds())
		}
	}

	if len(s.StatusHist) > 0 {
		fmt.Fprintln(w, "\nStatus Code Breakdown:")
		codes := make([]int, 0, len(s.StatusHist))
		for code := range s.StatusHist {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			count := s.StatusHist[code]
			var pct float64
			if s.Total > 0 {
				pct = float64(count) / float64(s.Total) * 100
			}
			StatusColor(code).Fprintf(w, "  %3d: %8s requests (%.2f%%)\n", code, formatNumber(count), pct)
		}
	}

	if len(s.ErrorHist) > 0 {
		fmt.Fprintln(w, "\nError Analysis:")
		keys := make([]string, 0, len(s.ErrorHist))
		for k := range s.ErrorHist {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			label := k
			if k != TransportKey {
				label = "status " + k
			}
			fmt.Fprintf(w, "  %s: %s times\n", label, formatNumber(s.ErrorHist[k]))
		}
	}

	fmt.Fprintln(w, "\nSiege Outcome:")
	switch s.Reason {
	case StopFatal:
		fatalColor.Fprintln(w, "  SIEGE STOPPED BY FATAL ERROR")
		if s.FatalOutcome != nil {
			if s.FatalOutcome.Transport() {
				fmt.Fprintln(w, "  Error Type: transport failure")
			} else {
				fmt.Fprintf(w, "  Error Type: status code %d\n", s.FatalOutcome.StatusCode)
			}
			fmt.Fprintf(w, "  Occurred at: request #%s\n", formatNumber(s.FatalOutcome.Sequence))
		}
		fmt.Fprintf(w, "  Server held for: %.2f seconds\n", s.Duration.Seconds())
		fmt.Fprintf(w, "  Total requests before failure: %s\n", formatNumber(s.Total))
	case StopExhausted:
		warnColor.Fprintln(w, "  ALL SIEGE WORKERS STOPPED UNEXPECTEDLY")
		fmt.Fprintf(w, "  Total requests handled: %s\n", formatNumber(s.Total))
	default:
		okColor.Fprintln(w, "  SIEGE MANUALLY STOPPED")
		fmt.Fprintf(w, "  Server withstood siege for: %.2f seconds\n", s.Duration.Seconds())
		fmt.Fprintf(w, "  Total requests handled: %s\n", formatNumber(s.Total))
		if s.Duration > 0 {
			fmt.Fprintf(w, "  Average load: %.2f RPS\n", s.AvgRPS)
		}
	}
	fmt.Fprintln(w, reportRule)
}

// Bar renders a proportional histogram bar, two percent per cell.
func Bar(percent float64, width int) string {
	cells := int(percent / 2)
	if cells > width {
		cells = width
	}
	if cells < 0 {
		cells = 0
	}
	return strings.Repeat("█", cells)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", formatNumber(n/1000), n%1000)
}
