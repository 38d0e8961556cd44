package config

import (
	"errors"
	"fmt"
	"strings"
)

// LoadError is a structured failure to load or validate a configuration file.
type LoadError struct {
	FilePath    string   // Path to the file that caused the error
	ErrorType   string   // parse, validation or io
	Message     string   // Human-readable error message
	LineNumber  int      // Line where the error occurred, when known
	Suggestions []string // Actionable hints for fixing the file
	Err         error
}

func (e *LoadError) Error() string {
	if e.FilePath == "" {
		return fmt.Sprintf("configuration %s error: %s", e.ErrorType, e.Message)
	}
	return fmt.Sprintf("configuration %s error in %s: %s", e.ErrorType, e.FilePath, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// DetailedError returns a multi-line message with every piece of context
func (e *LoadError) DetailedError() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Configuration Error: %s", e.ErrorType))
	if e.FilePath != "" {
		parts = append(parts, fmt.Sprintf("  File: %s", e.FilePath))
	}
	if e.LineNumber > 0 {
		parts = append(parts, fmt.Sprintf("  Line: %d", e.LineNumber))
	}
	parts = append(parts, fmt.Sprintf("  Error: %s", e.Message))

	if len(e.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range e.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}
	return strings.Join(parts, "\n")
}

// IsLoadError reports whether err is or wraps a LoadError.
func IsLoadError(err error) bool {
	var target *LoadError
	return errors.As(err, &target)
}
