package config

import (
	"fmt"
	"os"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogLevel validates an application log level
func (v *Validator) ValidateLogLevel(level string) error {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log level %q (expected trace, debug, info, warn, or error)", level)
}

// ValidateRequestLogDir validates the audit trail base directory. An empty
// directory is valid and means audit logging is disabled.
func (v *Validator) ValidateRequestLogDir(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		// Created lazily per conversation
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access request log dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("request log dir %s is not a directory", dir)
	}
	return nil
}

// Validate checks the whole configuration
func (v *Validator) Validate(cfg *Config) error {
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		return err
	}
	return v.ValidateRequestLogDir(cfg.RequestLog.Dir)
}
