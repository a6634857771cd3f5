package sched

import (
	"errors"
	"fmt"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config mirrors the cluster YAML (JSON is accepted too).
type Config struct {
	Policy            string    `yaml:"policy"`              // round_robin (by default)
	TimeScale         float64   `yaml:"time_scale"`          // 0.2 real seconds per simulated unit
	Seed              int64     `yaml:"seed"`                // 0 = seed from the wall clock
	MaxArrivalJitter  float64   `yaml:"max_arrival_jitter"`  // 3 simulated units, 0 disables
	PollIntervalMS    int       `yaml:"poll_interval_ms"`    // 50
	ReceiveTimeoutMS  int       `yaml:"receive_timeout_ms"`  // 50
	ShutdownTimeoutMS int       `yaml:"shutdown_timeout_ms"` // 30000
	Silent            bool      `yaml:"silent"`
	Servers           []Server  `yaml:"servers"`
	Tasks             []TaskDef `yaml:"tasks"`
}

// DefaultConfig returns the tuning defaults with no servers or tasks.
func DefaultConfig() Config {
	return Config{
		Policy:            string(RoundRobin),
		TimeScale:         0.2,
		MaxArrivalJitter:  3,
		PollIntervalMS:    50,
		ReceiveTimeoutMS:  50,
		ShutdownTimeoutMS: 30000,
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only.
// Tuning knobs are clamped; definitions are left for Validate.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.clamp()
	return cfg, nil
}

// sanity clamps
func (c *Config) clamp() {
	def := DefaultConfig()
	if c.Policy == "" {
		c.Policy = def.Policy
	}
	if c.MaxArrivalJitter < 0 {
		c.MaxArrivalJitter = 0
	}
	if c.PollIntervalMS <= 0 {
		c.PollIntervalMS = def.PollIntervalMS
	}
	if c.ReceiveTimeoutMS <= 0 {
		c.ReceiveTimeoutMS = def.ReceiveTimeoutMS
	}
	if c.ShutdownTimeoutMS <= 0 {
		c.ShutdownTimeoutMS = def.ShutdownTimeoutMS
	}
}

// Validate checks everything the scheduler refuses to start without.
func (c Config) Validate() error {
	if _, err := ParsePolicy(c.Policy); err != nil {
		return err
	}
	if !(c.TimeScale > 0) {
		return fmt.Errorf("%w: time_scale must be > 0, got %v", ErrInvalidConfig, c.TimeScale)
	}
	if c.PollIntervalMS <= 0 || c.ReceiveTimeoutMS <= 0 || c.ShutdownTimeoutMS <= 0 {
		return fmt.Errorf("%w: intervals and timeouts must be > 0", ErrInvalidConfig)
	}
	return validateDefinitions(c.Servers, c.Tasks)
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c Config) ReceiveTimeout() time.Duration {
	return time.Duration(c.ReceiveTimeoutMS) * time.Millisecond
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}
