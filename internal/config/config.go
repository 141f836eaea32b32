// Package config loads and validates the manager's yaml configuration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for the unit manager daemon
type Config struct {
	// ListenAddr is the introspection API bind address
	ListenAddr string `yaml:"listen_addr"`

	// HistoryPath is the finished-job journal database path
	HistoryPath string `yaml:"history_path"`

	// DefaultJobTimeout applies to units that declare no job timeout;
	// zero disables it. Parsed as a Go duration string.
	DefaultJobTimeout string `yaml:"default_job_timeout"`

	// LogLevel is the zap logging level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// EventLog mirrors every job event to stderr when true
	EventLog bool `yaml:"event_log"`

	// PIDFile is where the daemon records its pid
	PIDFile string `yaml:"pid_file"`
}

// Load loads configuration from the given path, layering the file over
// the defaults. An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// JobTimeout returns the parsed default job timeout
func (c *Config) JobTimeout() time.Duration {
	if c.DefaultJobTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.DefaultJobTimeout)
	if err != nil {
		return 0
	}
	return d
}
