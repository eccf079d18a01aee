package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Loadtest describes a single load-test run against the token bucket.
type Loadtest struct {
	// Workers is the number of goroutines consuming tokens concurrently.
	Workers int `yaml:"workers"` // default: GOMAXPROCS
	// Duration is how long each run hammers the bucket.
	Duration time.Duration `yaml:"duration"` // e.g. "10s"
	// Rate is the configured token production rate per second.
	Rate int64 `yaml:"rate"` // e.g. 100000000
	// Headroom multiplies the rate into capacity and initial tokens so the
	// bucket never runs dry during the measurement.
	Headroom int64 `yaml:"headroom"` // default: 2
	// ClockGranularity is the cached clock sample interval.
	ClockGranularity time.Duration `yaml:"clock_granularity"` // e.g. "8ms"
	// Baseline also measures a golang.org/x/time/rate limiter with the same
	// configuration for comparison.
	Baseline bool `yaml:"baseline"`
	// MetricsPort exposes Prometheus metrics while the run is active.
	// Empty disables the endpoint.
	MetricsPort string `yaml:"metrics_port"` // e.g. "8080"
}

type Config struct {
	Loadtest Loadtest `yaml:"loadtest"`
}

// Load reads the run configuration from a yaml file. A missing path is not
// an error: the defaults describe a sensible ten second run.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
			}
		} else if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	lt := &c.Loadtest
	if lt.Workers <= 0 {
		lt.Workers = runtime.GOMAXPROCS(0)
	}
	if lt.Duration <= 0 {
		lt.Duration = 10 * time.Second
	}
	if lt.Rate <= 0 {
		lt.Rate = 100_000_000
	}
	if lt.Headroom <= 0 {
		lt.Headroom = 2
	}
	if lt.ClockGranularity <= 0 {
		lt.ClockGranularity = 8 * time.Millisecond
	}
}
