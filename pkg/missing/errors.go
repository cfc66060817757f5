package missing

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the registry and by sequence operations.
var (
	// ErrConfigNotFound is returned when no configuration source resolves.
	ErrConfigNotFound = errors.New("missing-value pattern configuration not found")

	// ErrConfigParse is returned when the configuration is malformed.
	ErrConfigParse = errors.New("malformed missing-value pattern configuration")

	// ErrUnknownPattern is returned when a pattern name is not configured.
	ErrUnknownPattern = errors.New("unknown missing-value pattern")

	// ErrIncompatibleLengths is returned alongside degraded results when input
	// sequences cannot be aligned.
	ErrIncompatibleLengths = errors.New("incompatible input lengths")
)

// UnknownPatternError names the requested pattern and the configured ones.
type UnknownPatternError struct {
	Name      string
	Available []string
}

func (e *UnknownPatternError) Error() string {
	return fmt.Sprintf("unknown missing-value pattern %q (available: %s)",
		e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownPatternError) Unwrap() error { return ErrUnknownPattern }
