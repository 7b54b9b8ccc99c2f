// Package config handles siege run configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RunConfig holds everything a siege run needs. It is built once before the
// coordinator starts and never mutated during the run.
type RunConfig struct {
	TargetURL         string
	Workers           int
	BaseDelay         time.Duration
	MinDelay          time.Duration
	MaxDelay          time.Duration
	Timeout           time.Duration
	VerifyTLS         bool
	DashboardInterval time.Duration
	MaxRPS            int // 0 means uncapped
}

// Default returns the stock configuration.
func Default() RunConfig {
	return RunConfig{
		Workers:           10,
		BaseDelay:         50 * time.Millisecond,
		MinDelay:          10 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		Timeout:           30 * time.Second,
		VerifyTLS:         true,
		DashboardInterval: 10 * time.Second,
	}
}

// fileConfig is the YAML form of RunConfig. Delays and the dashboard
// interval are float seconds, the timeout is whole seconds.
type fileConfig struct {
	URL               string   `yaml:"url"`
	Workers           *int     `yaml:"workers"`
	BaseDelay         *float64 `yaml:"base_delay"`
	MinDelay          *float64 `yaml:"min_delay"`
	MaxDelay          *float64 `yaml:"max_delay"`
	Timeout           *int     `yaml:"timeout"`
	VerifyTLS         *bool    `yaml:"verify_tls"`
	DashboardInterval *float64 `yaml:"dashboard_interval"`
	MaxRPS            *int     `yaml:"max_rps"`
}

// Load reads a YAML configuration file over the defaults. Fields absent
// from the file keep their default values.
func Load(path string) (RunConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if fc.URL != "" {
		cfg.TargetURL = fc.URL
	}
	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}
	if fc.BaseDelay != nil {
		cfg.BaseDelay = seconds(*fc.BaseDelay)
	}
	if fc.MinDelay != nil {
		cfg.MinDelay = seconds(*fc.MinDelay)
	}
	if fc.MaxDelay != nil {
		cfg.MaxDelay = seconds(*fc.MaxDelay)
	}
	if fc.Timeout != nil {
		cfg.Timeout = time.Duration(*fc.Timeout) * time.Second
	}
	if fc.VerifyTLS != nil {
		cfg.VerifyTLS = *fc.VerifyTLS
	}
	if fc.DashboardInterval != nil {
		cfg.DashboardInterval = seconds(*fc.DashboardInterval)
	}
	if fc.MaxRPS != nil {
		cfg.MaxRPS = *fc.MaxRPS
	}

	return cfg, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Validate checks the configuration against the run invocation contract.
func (c RunConfig) Validate() error {
	if c.TargetURL == "" {
		return fmt.Errorf("target URL is required")
	}
	if !strings.HasPrefix(c.TargetURL, "http://") && !strings.HasPrefix(c.TargetURL, "https://") {
		return fmt.Errorf("target URL must include an http:// or https:// scheme, got %q", c.TargetURL)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.BaseDelay < 0 || c.MinDelay < 0 || c.MaxDelay < 0 {
		return fmt.Errorf("delays must be non-negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.DashboardInterval <= 0 {
		return fmt.Errorf("dashboard interval must be positive, got %v", c.DashboardInterval)
	}
	if c.MaxRPS < 0 {
		return fmt.Errorf("max RPS must be >= 0, got %d", c.MaxRPS)
	}
	return nil
}
