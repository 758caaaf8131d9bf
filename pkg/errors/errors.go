package errors

import (
	"errors"
	"fmt"
)

var (
	ErrProbeNotFound        = errors.New("probe not found")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrNoDomains            = errors.New("no domains discovered")
	ErrScanNotFound         = errors.New("scan not found")
	ErrRegistryUnavailable  = errors.New("company registry unavailable")
	ErrDiscordNotConfigured = errors.New("discord client not configured")
)

// ProbeError wraps a failure of a single probe invocation. It is recorded
// on the probe outcome and never terminates the scan.
type ProbeError struct {
	ProbeName string
	Err       error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s failed: %v", e.ProbeName, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

func NewProbeError(probeName string, err error) *ProbeError {
	return &ProbeError{
		ProbeName: probeName,
		Err:       err,
	}
}

// DiscoveryError means the discovery phase could not produce any target
// domains for the seed. It is terminal: the scan moves to failed.
type DiscoveryError struct {
	Seed string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for seed %q: %v", e.Seed, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

func NewDiscoveryError(seed string, err error) *DiscoveryError {
	return &DiscoveryError{
		Seed: seed,
		Err:  err,
	}
}

type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value: %v): %s", e.Field, e.Value, e.Message)
}

func NewConfigError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
