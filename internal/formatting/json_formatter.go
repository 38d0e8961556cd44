package formatting

import (
	"rvkernel/internal/dependency"
	"rvkernel/internal/safety"
	"rvkernel/internal/services"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

func (f *JSONFormatter) FormatPlan(plan *dependency.Plan) string {
	return PrettyJSON(NewPlanView(plan))
}

func (f *JSONFormatter) FormatImpact(service string, impacted []string) string {
	if impacted == nil {
		impacted = []string{}
	}
	return PrettyJSON(ImpactView{Service: service, Impacted: impacted})
}

func (f *JSONFormatter) FormatRuntimeAudit(missing map[string][]string) string {
	return PrettyJSON(NewRuntimeGapViews(missing))
}

func (f *JSONFormatter) FormatHealth(snapshot []services.Health) string {
	return PrettyJSON(NewHealthViews(snapshot))
}

func (f *JSONFormatter) FormatStartupReport(report services.StartupReport) string {
	return PrettyJSON(NewStartupView(report))
}

func (f *JSONFormatter) FormatEmergencyReport(report safety.Report) string {
	return PrettyJSON(NewEmergencyView(report))
}

// SetOptions updates the formatter options
func (f *JSONFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *JSONFormatter) GetOptions() Options {
	return f.options
}
