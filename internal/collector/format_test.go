package collector

import (
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"siege/internal/core"
)

func init() {
	// Color codes would make substring assertions brittle.
	color.NoColor = true
}

func summaryFixture(reason StopReason) *Summary {
	start := time.Now()
	snap := Snapshot{
		StartTime:  start,
		Total:      100,
		StatusHist: map[int]int64{200: 90, 404: 9, 503: 1},
		ErrorHist:  map[string]int64{"404": 9, "503": 1},
	}
	for i := 0; i < 99; i++ {
		snap.Outcomes = append(snap.Outcomes, core.NewOutcome(1, 200, 100*time.Millisecond, start))
	}
	fatal := core.NewOutcome(2, 503, 50*time.Millisecond, start)
	fatal.Sequence = 100
	snap.Outcomes = append(snap.Outcomes, fatal)

	return ComputeSummary(snap, start.Add(20*time.Second), reason)
}

func TestFormatSummary_Fatal(t *testing.T) {
	var buf strings.Builder
	FormatSummary(&buf, summaryFixture(StopFatal), "https://example.com")
	out := buf.String()

	for _, want := range []string{
		"SIEGE FINAL REPORT",
		"https://example.com",
		"Total Requests: 100",
		"Average RPS:    5.00",
		"STOPPED BY FATAL ERROR",
		"status code 503",
		"request #100",
		"Median (p50)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestFormatSummary_Manual(t *testing.T) {
	var buf strings.Builder
	FormatSummary(&buf, summaryFixture(StopManual), "https://example.com")
	out := buf.String()

	if !strings.Contains(out, "SIEGE MANUALLY STOPPED") {
		t.Errorf("expected manual stop block:\n%s", out)
	}
	if strings.Contains(out, "FATAL ERROR") {
		t.Errorf("manual report must not mention a fatal error:\n%s", out)
	}
}

func TestFormatSummary_TransportFatal(t *testing.T) {
	start := time.Now()
	snap := Snapshot{StartTime: start, Total: 1}
	o := core.NewTransportFailure(1, start)
	o.Sequence = 1
	snap.Outcomes = []core.Outcome{o}
	snap.StatusHist = map[int]int64{0: 1}
	snap.ErrorHist = map[string]int64{TransportKey: 1}

	var buf strings.Builder
	FormatSummary(&buf, ComputeSummary(snap, start.Add(time.Second), StopFatal), "http://localhost")

	if !strings.Contains(buf.String(), "transport failure") {
		t.Errorf("expected transport failure in report:\n%s", buf.String())
	}
}

func TestFormatSummary_Exhausted(t *testing.T) {
	var buf strings.Builder
	FormatSummary(&buf, summaryFixture(StopExhausted), "https://example.com")

	if !strings.Contains(buf.String(), "WORKERS STOPPED UNEXPECTEDLY") {
		t.Errorf("expected exhaustion block:\n%s", buf.String())
	}
}

func TestBar(t *testing.T) {
	if got := Bar(100, 50); len([]rune(got)) != 50 {
		t.Errorf("expected full bar of 50 cells, got %d", len([]rune(got)))
	}
	if got := Bar(10, 50); len([]rune(got)) != 5 {
		t.Errorf("expected 5 cells for 10%%, got %d", len([]rune(got)))
	}
	if got := Bar(0, 50); got != "" {
		t.Errorf("expected empty bar, got %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.n); got != tt.want {
			t.Errorf("formatNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
