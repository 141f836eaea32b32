package config

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	if cfg.ListenAddr == "" {
		errs = append(errs, &ValidationError{
			Field:   "listen_addr",
			Value:   cfg.ListenAddr,
			Message: "must not be empty",
		})
	}

	if cfg.DefaultJobTimeout != "" {
		if d, err := time.ParseDuration(cfg.DefaultJobTimeout); err != nil {
			errs = append(errs, &ValidationError{
				Field:   "default_job_timeout",
				Value:   cfg.DefaultJobTimeout,
				Message: "must be a valid duration",
			})
		} else if d < 0 {
			errs = append(errs, &ValidationError{
				Field:   "default_job_timeout",
				Value:   cfg.DefaultJobTimeout,
				Message: "must not be negative",
			})
		}
	}

	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, &ValidationError{
			Field:   "log_level",
			Value:   cfg.LogLevel,
			Message: "must be one of debug, info, warn, error",
		})
	}

	return errors.Join(errs...)
}
