// Package formatting renders kernel state for people and scripts: the
// resolved dependency plan, health snapshots, startup timings, impact
// analysis and emergency stop reports.
//
// Every formatter works from the same view models (see views.go), so the
// table, console, JSON and YAML outputs always carry the same fields.
package formatting

import (
	"rvkernel/internal/dependency"
	"rvkernel/internal/safety"
	"rvkernel/internal/services"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Simple console output
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Color  bool // Enable colored output
}

// Formatter renders kernel state in one output format.
type Formatter interface {
	FormatPlan(plan *dependency.Plan) string
	FormatImpact(service string, impacted []string) string
	FormatRuntimeAudit(missing map[string][]string) string

	FormatHealth(snapshot []services.Health) string
	FormatStartupReport(report services.StartupReport) string
	FormatEmergencyReport(report safety.Report) string

	// Configuration
	SetOptions(options Options)
	GetOptions() Options
}

// Factory creates formatters for different output formats
type Factory interface {
	CreateFormatter(options Options) Formatter
}

// NewFactory creates a new formatter factory
func NewFactory() Factory {
	return &factory{}
}

// factory implements the Factory interface
type factory struct{}

// CreateFormatter creates the appropriate formatter based on options
func (f *factory) CreateFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		return NewTableFormatter(options)
	case FormatConsole:
		fallthrough
	default:
		return NewConsoleFormatter(options)
	}
}
