package formatting

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"rvkernel/internal/dependency"
	"rvkernel/internal/safety"
	"rvkernel/internal/services"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

func (f *YAMLFormatter) FormatPlan(plan *dependency.Plan) string {
	return f.marshal(NewPlanView(plan))
}

func (f *YAMLFormatter) FormatImpact(service string, impacted []string) string {
	if impacted == nil {
		impacted = []string{}
	}
	return f.marshal(ImpactView{Service: service, Impacted: impacted})
}

func (f *YAMLFormatter) FormatRuntimeAudit(missing map[string][]string) string {
	return f.marshal(NewRuntimeGapViews(missing))
}

func (f *YAMLFormatter) FormatHealth(snapshot []services.Health) string {
	return f.marshal(NewHealthViews(snapshot))
}

func (f *YAMLFormatter) FormatStartupReport(report services.StartupReport) string {
	return f.marshal(NewStartupView(report))
}

func (f *YAMLFormatter) FormatEmergencyReport(report safety.Report) string {
	return f.marshal(NewEmergencyView(report))
}

// marshal converts data to YAML, falling back to %v on error
func (f *YAMLFormatter) marshal(data interface{}) string {
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(out)
}

// SetOptions updates the formatter options
func (f *YAMLFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}
