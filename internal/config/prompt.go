package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Prompt collects a RunConfig interactively, reading answers from r and
// writing questions to w. Empty answers take the shown default.
func Prompt(r io.Reader, w io.Writer) (RunConfig, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)

	url, err := ask(scanner, w, "Enter target URL (e.g. https://example.com): ", "")
	if err != nil {
		return cfg, err
	}
	if url == "" {
		return cfg, fmt.Errorf("target URL is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		answer, err := ask(scanner, w, "URL has no scheme. Use HTTPS? (y/n) [y]: ", "y")
		if err != nil {
			return cfg, err
		}
		if strings.ToLower(answer) == "n" {
			url = "http://" + url
		} else {
			url = "https://" + url
		}
	}
	cfg.TargetURL = url

	if cfg.Workers, err = askInt(scanner, w, "Number of siege workers", cfg.Workers); err != nil {
		return cfg, err
	}
	if cfg.BaseDelay, err = askSeconds(scanner, w, "Base delay between requests (seconds)", cfg.BaseDelay); err != nil {
		return cfg, err
	}
	timeoutSecs := int(cfg.Timeout / time.Second)
	if timeoutSecs, err = askInt(scanner, w, "Request timeout (seconds)", timeoutSecs); err != nil {
		return cfg, err
	}
	cfg.Timeout = time.Duration(timeoutSecs) * time.Second
	if cfg.MinDelay, err = askSeconds(scanner, w, "Minimum delay (seconds)", cfg.MinDelay); err != nil {
		return cfg, err
	}
	if cfg.MaxDelay, err = askSeconds(scanner, w, "Maximum delay (seconds)", cfg.MaxDelay); err != nil {
		return cfg, err
	}
	if cfg.DashboardInterval, err = askSeconds(scanner, w, "Dashboard update interval (seconds)", cfg.DashboardInterval); err != nil {
		return cfg, err
	}

	answer, err := ask(scanner, w, "Verify TLS certificates? (y/n) [y]: ", "y")
	if err != nil {
		return cfg, err
	}
	cfg.VerifyTLS = strings.ToLower(answer) != "n"

	return cfg, nil
}

func ask(scanner *bufio.Scanner, w io.Writer, question, def string) (string, error) {
	fmt.Fprint(w, question)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading answer: %w", err)
		}
		return "", fmt.Errorf("input closed")
	}
	answer := strings.TrimSpace(scanner.Text())
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func askInt(scanner *bufio.Scanner, w io.Writer, question string, def int) (int, error) {
	answer, err := ask(scanner, w, fmt.Sprintf("%s [%d]: ", question, def), "")
	if err != nil {
		return 0, err
	}
	if answer == "" {
		return def, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", answer, err)
	}
	return n, nil
}

func askSeconds(scanner *bufio.Scanner, w io.Writer, question string, def time.Duration) (time.Duration, error) {
	answer, err := ask(scanner, w, fmt.Sprintf("%s [%g]: ", question, def.Seconds()), "")
	if err != nil {
		return 0, err
	}
	if answer == "" {
		return def, nil
	}
	s, err := strconv.ParseFloat(answer, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", answer, err)
	}
	return seconds(s), nil
}
