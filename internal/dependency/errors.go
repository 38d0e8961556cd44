package dependency

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ConfigurationError reports Required dependencies that name no registered
// service and have no usable fallback. It lists every offender at once so a
// single edit can fix all of them.
type ConfigurationError struct {
	// Missing maps a service to the dependency names it could not resolve.
	Missing map[string][]string
	// Available lists every registered service.
	Available []string
}

func (e *ConfigurationError) Error() string {
	services := make([]string, 0, len(e.Missing))
	for name := range e.Missing {
		services = append(services, name)
	}
	slices.Sort(services)

	parts := make([]string, 0, len(services))
	for _, name := range services {
		parts = append(parts, fmt.Sprintf("%s requires [%s]", name, strings.Join(e.Missing[name], ", ")))
	}
	return fmt.Sprintf("missing required dependencies: %s (available: %s)",
		strings.Join(parts, "; "), strings.Join(e.Available, ", "))
}

// MissingNames returns every unresolved dependency name, deduplicated and sorted.
func (e *ConfigurationError) MissingNames() []string {
	var out []string
	for _, deps := range e.Missing {
		for _, d := range deps {
			if !slices.Contains(out, d) {
				out = append(out, d)
			}
		}
	}
	slices.Sort(out)
	return out
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// CycleError reports every circular chain of Required dependencies. Each
// cycle is a closed path: its first and last elements are the same service.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Cycles))
	for _, c := range e.Cycles {
		parts = append(parts, FormatCycle(c))
	}
	noun := "cycle"
	if len(e.Cycles) != 1 {
		noun = "cycles"
	}
	return fmt.Sprintf("circular dependencies detected (%d %s): %s", len(e.Cycles), noun, strings.Join(parts, "; "))
}

// IsCycleError reports whether err is or wraps a CycleError.
func IsCycleError(err error) bool {
	var target *CycleError
	return errors.As(err, &target)
}

// FormatCycle renders a closed path as "a → b → a".
func FormatCycle(cycle []string) string {
	return strings.Join(cycle, " → ")
}
