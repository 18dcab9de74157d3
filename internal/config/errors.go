package config

import "fmt"

// ConfigError reports a terminal configuration problem: an invalid series
// URL, a malformed startTime, a numeric invariant violated, or an empty
// series list. It is never retried — the caller (CLI) surfaces it and exits.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config: " + e.Reason }

func newConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}
