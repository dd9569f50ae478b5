// Package config provides configuration management for the profiler.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrNoCores is returned when an explicit core list contains no usable ids.
var ErrNoCores = errors.New("no monitored cores")

// Config holds all profiler configuration options.
type Config struct {
	// Monitored cores; empty means detect from process affinity
	Cores []int `yaml:"cores"`

	// Counter settings
	HardwareCounters bool `yaml:"hardware_counters"`
	InheritCounters  bool `yaml:"inherit_counters"`

	// I/O-wait estimator settings
	IOWait IOWaitConfig `yaml:"io_wait"`

	// Optional GPU source
	EnableNvidia bool `yaml:"nvidia"`

	Logging LoggingConfig `yaml:"logging"`
	Serve   ServeConfig   `yaml:"serve"`
	Probe   ProbeConfig   `yaml:"probe"`

	// System identification
	SessionUUID string `yaml:"session_uuid"`
	Hostname    string `yaml:"hostname"`
}

// IOWaitConfig tunes the throughput-based I/O wait heuristic.
type IOWaitConfig struct {
	Disabled        bool          `yaml:"disabled"`
	ThroughputMiBps float64       `yaml:"throughput_mib_per_sec"`
	WallCapFraction float64       `yaml:"wall_cap_fraction"`
	MigrationCost   time.Duration `yaml:"migration_cost"`
}

// LoggingConfig selects level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServeConfig holds HTTP server settings.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// ProbeConfig drives the synthetic workload used by run and serve.
type ProbeConfig struct {
	Schedule   string        `yaml:"schedule"`
	Iterations int           `yaml:"iterations"`
	SpinFor    time.Duration `yaml:"spin_for"`
	IOBytes    int64         `yaml:"io_bytes"`
	SleepFor   time.Duration `yaml:"sleep_for"`
}

// Default configuration values.
const (
	DefaultThroughputMiBps = 100.0
	DefaultWallCapFraction = 0.9
	DefaultMigrationCost   = 10 * time.Millisecond
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultServeAddr       = ":8080"
	DefaultProbeSchedule   = "@every 30s"
	DefaultIterations      = 3
	DefaultSpinFor         = 50 * time.Millisecond
	DefaultIOBytes         = 4 * BytesPerMegaByte
	DefaultSleepFor        = 10 * time.Millisecond
)

// New creates a Config with default values.
func New() *Config {
	hostname, _ := os.Hostname()

	return &Config{
		IOWait: IOWaitConfig{
			ThroughputMiBps: DefaultThroughputMiBps,
			WallCapFraction: DefaultWallCapFraction,
			MigrationCost:   DefaultMigrationCost,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Serve: ServeConfig{Addr: DefaultServeAddr},
		Probe: ProbeConfig{
			Schedule:   DefaultProbeSchedule,
			Iterations: DefaultIterations,
			SpinFor:    DefaultSpinFor,
			IOBytes:    DefaultIOBytes,
			SleepFor:   DefaultSleepFor,
		},
		SessionUUID: uuid.NewString(),
		Hostname:    hostname,
	}
}

// Load reads a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := New()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvVars expands ${VAR} and ${VAR:-default} patterns.
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if v, ok := os.LookupEnv(parts[1]); ok && v != "" {
			return v
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	for _, core := range c.Cores {
		if core < 0 {
			return fmt.Errorf("invalid core id %d: %w", core, ErrNoCores)
		}
	}

	if !c.IOWait.Disabled {
		if c.IOWait.ThroughputMiBps <= 0 {
			return fmt.Errorf("io_wait throughput must be positive, got %v", c.IOWait.ThroughputMiBps)
		}
		if c.IOWait.WallCapFraction <= 0 || c.IOWait.WallCapFraction > 1 {
			return fmt.Errorf("io_wait wall cap must be in (0, 1], got %v", c.IOWait.WallCapFraction)
		}
		if c.IOWait.MigrationCost < 0 {
			return fmt.Errorf("io_wait migration cost cannot be negative, got %v", c.IOWait.MigrationCost)
		}
	}

	if !isValidLogFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s (valid: console, json, logfmt)", c.Logging.Format)
	}

	if c.Probe.Iterations < 1 {
		return fmt.Errorf("probe iterations must be at least 1, got %d", c.Probe.Iterations)
	}
	if c.Probe.IOBytes < 0 {
		return fmt.Errorf("probe io bytes cannot be negative, got %d", c.Probe.IOBytes)
	}

	return nil
}

// ValidLogFormats returns the list of supported log formats.
func ValidLogFormats() []string {
	return []string{"console", "json", "logfmt"}
}

func isValidLogFormat(format string) bool {
	for _, f := range ValidLogFormats() {
		if f == format {
			return true
		}
	}
	return false
}

// ApplyDefaults fills in any missing values with defaults.
func (c *Config) ApplyDefaults() {
	if c.IOWait.ThroughputMiBps == 0 {
		c.IOWait.ThroughputMiBps = DefaultThroughputMiBps
	}
	if c.IOWait.WallCapFraction == 0 {
		c.IOWait.WallCapFraction = DefaultWallCapFraction
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultServeAddr
	}
	if c.Probe.Schedule == "" {
		c.Probe.Schedule = DefaultProbeSchedule
	}
	if c.Probe.Iterations == 0 {
		c.Probe.Iterations = DefaultIterations
	}
	if c.Hostname == "" {
		c.Hostname, _ = os.Hostname()
	}
	if c.SessionUUID == "" {
		c.SessionUUID = uuid.NewString()
	}
}
