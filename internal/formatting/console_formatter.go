package formatting

import (
	"fmt"
	"slices"
	"strings"

	"rvkernel/internal/dependency"
	"rvkernel/internal/safety"
	"rvkernel/internal/services"
)

// ConsoleFormatter provides simple console output formatting
type ConsoleFormatter struct {
	options Options
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(options Options) Formatter {
	return &ConsoleFormatter{
		options: options,
	}
}

// FormatPlan prints one line per stage.
func (f *ConsoleFormatter) FormatPlan(plan *dependency.Plan) string {
	view := NewPlanView(plan)
	if len(view.Stages) == 0 {
		return "No services declared."
	}

	var output []string
	output = append(output, fmt.Sprintf("Startup plan (%d stages):", len(view.Stages)))
	for i, stage := range view.Stages {
		output = append(output, fmt.Sprintf("  %d. %s", i, strings.Join(stage, ", ")))
	}
	for _, sub := range view.Substitutions {
		output = append(output, fmt.Sprintf("Fallback: %s uses %s instead of %s", sub.Service, sub.Fallback, sub.Missing))
	}
	return strings.Join(output, "\n")
}

// FormatImpact lists the services a failure would take down.
func (f *ConsoleFormatter) FormatImpact(service string, impacted []string) string {
	if len(impacted) == 0 {
		return fmt.Sprintf("No services depend on %s.", service)
	}
	return fmt.Sprintf("If %s fails, %d services are impacted: %s", service, len(impacted), strings.Join(impacted, ", "))
}

// FormatRuntimeAudit prints unmet runtime dependencies.
func (f *ConsoleFormatter) FormatRuntimeAudit(missing map[string][]string) string {
	gaps := NewRuntimeGapViews(missing)
	if len(gaps) == 0 {
		return "All runtime dependencies satisfied."
	}
	var output []string
	for _, g := range gaps {
		output = append(output, fmt.Sprintf("%s is missing runtime dependencies: %s", g.Service, strings.Join(g.Missing, ", ")))
	}
	return strings.Join(output, "\n")
}

// FormatHealth prints a health snapshot.
func (f *ConsoleFormatter) FormatHealth(snapshot []services.Health) string {
	rows := NewHealthViews(snapshot)
	if len(rows) == 0 {
		return "No services registered."
	}
	var output []string
	for _, h := range rows {
		line := fmt.Sprintf("%-30s %s", h.Name, h.Status)
		if h.Error != "" {
			line += " - " + h.Error
		}
		output = append(output, line)
	}
	return strings.Join(output, "\n")
}

// FormatStartupReport prints the totals and the slowest stage.
func (f *ConsoleFormatter) FormatStartupReport(report services.StartupReport) string {
	view := NewStartupView(report)
	outcome := "succeeded"
	if !view.Succeeded {
		outcome = "failed"
	}
	output := []string{
		fmt.Sprintf("Startup %s in %s (init %s, dependency checks %s)", outcome, view.Total, view.InitTotal, view.DependencyCheckTotal),
	}
	for _, st := range view.Stages {
		output = append(output, fmt.Sprintf("  stage %d: %s [%s]", st.Stage, st.Duration, strings.Join(st.Services, ", ")))
	}
	if view.Shutdown != "" {
		output = append(output, fmt.Sprintf("Shutdown took %s", view.Shutdown))
	}
	return strings.Join(output, "\n")
}

// FormatEmergencyReport prints the outcome of an emergency stop.
func (f *ConsoleFormatter) FormatEmergencyReport(report safety.Report) string {
	view := NewEmergencyView(report)
	names := make([]string, 0, len(view.Outcome))
	for name := range view.Outcome {
		names = append(names, name)
	}
	slices.Sort(names)

	output := []string{fmt.Sprintf("Emergency stop by %s: %s (%s)", view.TriggeredBy, view.Reason, view.Duration)}
	for _, name := range names {
		if view.Outcome[name] {
			output = append(output, fmt.Sprintf("  %s: safe", name))
		} else {
			output = append(output, fmt.Sprintf("  %s: FAILED - %s", name, view.Failures[name]))
		}
	}
	return strings.Join(output, "\n")
}

// SetOptions updates the formatter options
func (f *ConsoleFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *ConsoleFormatter) GetOptions() Options {
	return f.options
}
