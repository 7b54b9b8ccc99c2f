// Command siege generates sustained, concurrent HTTP load against a target
// until a fatal server condition (500/502/503/504 or any transport failure)
// is observed, then reports statistics.
//
// Use only against systems you own or have explicit permission to test.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"siege/internal/collector"
	"siege/internal/config"
	"siege/internal/coordinator"
	"siege/internal/core"
	"siege/internal/persist"
	"siege/internal/progress"
)

const (
	ExitSuccess       = 0
	ExitFatalDetected = 1
	ExitError         = 2
)

func main() {
	urlFlag := flag.String("url", "", "target URL (scheme-qualified)")
	workers := flag.Int("workers", 0, "number of siege workers")
	baseDelay := flag.Float64("base-delay", -1, "base delay between requests in seconds")
	minDelay := flag.Float64("min-delay", -1, "minimum delay in seconds")
	maxDelay := flag.Float64("max-delay", -1, "maximum delay in seconds")
	timeout := flag.Int("timeout", 0, "request timeout in seconds")
	insecure := flag.Bool("insecure", false, "skip TLS certificate verification")
	interval := flag.Float64("interval", -1, "dashboard update interval in seconds")
	maxRPS := flag.Int("max-rps", 0, "global request rate cap (0 = uncapped)")
	configPath := flag.String("config", "", "path to YAML config file")
	outPath := flag.String("out", "", "write the full result document to this file")
	summaryPath := flag.String("summary", "", "re-render a saved result document and exit")
	quiet := flag.Bool("quiet", false, "suppress live output during the siege")
	interactive := flag.Bool("interactive", false, "collect configuration interactively")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *summaryPath != "" {
		summary, err := persist.Load(*summaryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(ExitError)
		}
		collector.FormatSummary(os.Stdout, summary, *summaryPath)
		os.Exit(ExitSuccess)
	}

	var cfg config.RunConfig
	var err error
	switch {
	case *interactive || (*urlFlag == "" && *configPath == ""):
		cfg, err = config.Prompt(os.Stdin, os.Stderr)
	case *configPath != "":
		cfg, err = config.Load(*configPath)
	default:
		cfg = config.Default()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}

	// Flags given on the command line override the file and defaults.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.TargetURL = *urlFlag
		case "workers":
			cfg.Workers = *workers
		case "base-delay":
			cfg.BaseDelay = time.Duration(*baseDelay * float64(time.Second))
		case "min-delay":
			cfg.MinDelay = time.Duration(*minDelay * float64(time.Second))
		case "max-delay":
			cfg.MaxDelay = time.Duration(*maxDelay * float64(time.Second))
		case "timeout":
			cfg.Timeout = time.Duration(*timeout) * time.Second
		case "insecure":
			cfg.VerifyTLS = !*insecure
		case "interval":
			cfg.DashboardInterval = time.Duration(*interval * float64(time.Second))
		case "max-rps":
			cfg.MaxRPS = *maxRPS
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		if !*quiet {
			fmt.Fprintln(os.Stderr, "\nInterrupt received, stopping siege...")
		}
		cancel()
	}()

	coord := coordinator.New(cfg, logger)
	live := progress.NewLive(*quiet)
	coord.SetSink(live)
	if !*quiet {
		dash := progress.NewDashboard(coord.Collector(), coord.Pool(), coord.Cancellation(), cfg.Workers, cfg.DashboardInterval)
		coord.SetDashboard(dash)
	}

	if !*quiet {
		var codes []string
		for _, code := range core.FatalStatuses() {
			codes = append(codes, fmt.Sprintf("%d", code))
		}
		fmt.Fprintln(os.Stderr, "Siege starting")
		fmt.Fprintf(os.Stderr, "  Target:  %s\n", cfg.TargetURL)
		fmt.Fprintf(os.Stderr, "  Workers: %d\n", cfg.Workers)
		fmt.Fprintf(os.Stderr, "  Timeout: %v\n", cfg.Timeout)
		fmt.Fprintf(os.Stderr, "Runs until status %s or any transport failure; Ctrl+C to stop.\n",
			strings.Join(codes, "/"))
	}

	summary := coord.Run(ctx)
	live.Println("")

	collector.FormatSummary(os.Stdout, summary, cfg.TargetURL)

	if *outPath != "" {
		if err := persist.Save(*outPath, summary); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(ExitError)
		}
		fmt.Fprintf(os.Stderr, "Results saved to %s\n", *outPath)
	}

	if summary.Reason == collector.StopFatal {
		os.Exit(ExitFatalDetected)
	}
	os.Exit(ExitSuccess)
}
