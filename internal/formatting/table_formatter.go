package formatting

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"rvkernel/internal/dependency"
	"rvkernel/internal/safety"
	"rvkernel/internal/services"
	kstrings "rvkernel/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// FormatPlan renders one row per service, grouped by stage.
func (f *TableFormatter) FormatPlan(plan *dependency.Plan) string {
	view := NewPlanView(plan)
	if len(view.Services) == 0 {
		return f.formatEmptyMessage("📋", "No services declared")
	}

	t := f.createTable()
	t.AppendHeader(f.header("STAGE", "SERVICE", "REQUIRES", "OPTIONAL", "RUNTIME", "DEPENDENTS", "DEPTH"))
	for _, s := range view.Services {
		t.AppendRow(table.Row{
			s.Stage,
			f.color(text.FgHiWhite, s.Name),
			joinOrDash(s.Requires),
			joinOrDash(s.Optional),
			joinOrDash(s.Runtime),
			joinOrDash(s.Dependents),
			s.Depth,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})

	out := t.Render()
	if len(view.Substitutions) > 0 {
		var lines []string
		for _, sub := range view.Substitutions {
			lines = append(lines, fmt.Sprintf("  %s: %s → %s", sub.Service, sub.Missing, sub.Fallback))
		}
		out += "\n" + f.color(text.FgYellow, "Fallbacks applied:") + "\n" + strings.Join(lines, "\n")
	}
	return out + "\n" + f.summary(len(view.Services), "services", len(view.Stages), "stages")
}

// FormatImpact lists the services a failure would take down.
func (f *TableFormatter) FormatImpact(service string, impacted []string) string {
	if len(impacted) == 0 {
		return f.formatEmptyMessage("✅", fmt.Sprintf("No services depend on %s", service))
	}
	t := f.createTable()
	t.SetTitle("Impact of %s failing", service)
	t.AppendHeader(f.header("#", "IMPACTED SERVICE"))
	for i, name := range impacted {
		t.AppendRow(table.Row{i + 1, f.color(text.FgRed, name)})
	}
	return t.Render()
}

// FormatRuntimeAudit renders unmet runtime dependencies.
func (f *TableFormatter) FormatRuntimeAudit(missing map[string][]string) string {
	gaps := NewRuntimeGapViews(missing)
	if len(gaps) == 0 {
		return f.formatEmptyMessage("✅", "All runtime dependencies satisfied")
	}
	t := f.createTable()
	t.AppendHeader(f.header("SERVICE", "MISSING RUNTIME DEPENDENCIES"))
	for _, g := range gaps {
		t.AppendRow(table.Row{g.Service, f.color(text.FgYellow, strings.Join(g.Missing, ", "))})
	}
	return t.Render()
}

// FormatHealth renders a health snapshot.
func (f *TableFormatter) FormatHealth(snapshot []services.Health) string {
	rows := NewHealthViews(snapshot)
	if len(rows) == 0 {
		return f.formatEmptyMessage("📋", "No services registered")
	}
	t := f.createTable()
	t.AppendHeader(f.header("SERVICE", "STATUS", "CHECKED", "ERROR"))
	for _, h := range rows {
		checked := "-"
		if h.Checked {
			checked = "yes"
		}
		t.AppendRow(table.Row{h.Name, f.statusColor(h.Status), checked, kstrings.Cell(h.Error)})
	}
	return t.Render()
}

// FormatStartupReport renders per-service timings and the stage totals.
func (f *TableFormatter) FormatStartupReport(report services.StartupReport) string {
	view := NewStartupView(report)

	t := f.createTable()
	t.AppendHeader(f.header("STAGE", "SERVICE", "DEP CHECK", "INIT", "TOTAL", "STOP"))
	for _, s := range view.Services {
		t.AppendRow(table.Row{s.Stage, s.Service, s.DependencyCheck, s.Init, s.Total, dash(s.Stop)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
	t.AppendFooter(table.Row{"", "total", view.DependencyCheckTotal, view.InitTotal, view.Total, dash(view.Shutdown)})

	outcome := f.color(text.FgGreen, "succeeded")
	if !view.Succeeded {
		outcome = f.color(text.FgRed, "failed")
	}

	var stages []string
	for _, st := range view.Stages {
		stages = append(stages, fmt.Sprintf("stage %d: %s", st.Stage, st.Duration))
	}
	return t.Render() + "\n" + fmt.Sprintf("Startup %s in %s (%s)", outcome, view.Total, strings.Join(stages, ", "))
}

// FormatEmergencyReport renders the outcome of an emergency stop.
func (f *TableFormatter) FormatEmergencyReport(report safety.Report) string {
	view := NewEmergencyView(report)

	names := make([]string, 0, len(view.Outcome))
	for name := range view.Outcome {
		names = append(names, name)
	}
	slices.Sort(names)

	t := f.createTable()
	t.SetTitle("Emergency stop by %s: %s", view.TriggeredBy, view.Reason)
	t.AppendHeader(f.header("SERVICE", "SAFE", "ERROR"))
	for _, name := range names {
		safe := f.color(text.FgGreen, "yes")
		if !view.Outcome[name] {
			safe = f.color(text.FgRed, "NO")
		}
		t.AppendRow(table.Row{name, safe, kstrings.Cell(view.Failures[name])})
	}
	return t.Render() + "\n" + fmt.Sprintf("Completed in %s", view.Duration)
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// Helper methods

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	if f.options.Color {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
	}
	return t
}

func (f *TableFormatter) header(titles ...string) table.Row {
	row := make(table.Row, len(titles))
	for i, title := range titles {
		row[i] = f.color(text.FgHiCyan, title)
	}
	return row
}

func (f *TableFormatter) color(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func (f *TableFormatter) statusColor(status string) string {
	switch status {
	case services.StatusHealthy.String():
		return f.color(text.FgGreen, status)
	case services.StatusDegraded.String():
		return f.color(text.FgYellow, status)
	case services.StatusFailed.String():
		return f.color(text.FgRed, status)
	default:
		return status
	}
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(icon, message string) string {
	if !f.options.Color {
		return fmt.Sprintf("%s %s", icon, message)
	}
	return fmt.Sprintf("%s %s", text.FgYellow.Sprint(icon), text.FgYellow.Sprint(message))
}

func (f *TableFormatter) summary(n int, what string, m int, other string) string {
	return fmt.Sprintf("%s %s %s, %s %s",
		f.color(text.FgHiBlue, "Total:"),
		f.color(text.FgHiWhite, fmt.Sprint(n)), what,
		f.color(text.FgHiWhite, fmt.Sprint(m)), other)
}

func joinOrDash(list []string) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ", ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
