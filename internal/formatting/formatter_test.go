package formatting

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"rvkernel/internal/dependency"
	"rvkernel/internal/safety"
	"rvkernel/internal/services"
)

func samplePlan(t *testing.T) *dependency.Plan {
	t.Helper()
	r := dependency.NewResolver()
	r.Add("config", nil)
	r.Add("sqlite", []dependency.Dependency{dependency.Required("config")})
	r.Add("cache", []dependency.Dependency{dependency.Required("config")})
	r.Add("api", []dependency.Dependency{
		dependency.Required("postgres").WithFallback("sqlite"),
		dependency.Required("cache"),
		dependency.Runtime("telemetry"),
	})
	plan, err := r.Plan()
	require.NoError(t, err)
	return plan
}

func TestNewPlanView(t *testing.T) {
	view := NewPlanView(samplePlan(t))

	assert.Equal(t, [][]string{{"config"}, {"cache", "sqlite"}, {"api"}}, view.Stages)
	require.Len(t, view.Services, 4)
	assert.Equal(t, "config", view.Services[0].Name)
	assert.ElementsMatch(t, []string{"cache", "sqlite"}, view.Services[0].Dependents)

	api := view.Services[3]
	assert.Equal(t, "api", api.Name)
	assert.Equal(t, 2, api.Stage)
	assert.ElementsMatch(t, []string{"sqlite", "cache"}, api.Requires)
	assert.Equal(t, []string{"telemetry"}, api.Runtime)

	require.Len(t, view.Substitutions, 1)
	assert.Equal(t, SubstitutionView{Service: "api", Missing: "postgres", Fallback: "sqlite"}, view.Substitutions[0])
}

func TestFactory(t *testing.T) {
	factory := NewFactory()
	assert.IsType(t, &TableFormatter{}, factory.CreateFormatter(Options{Format: FormatTable}))
	assert.IsType(t, &JSONFormatter{}, factory.CreateFormatter(Options{Format: FormatJSON}))
	assert.IsType(t, &YAMLFormatter{}, factory.CreateFormatter(Options{Format: FormatYAML}))
	assert.IsType(t, &ConsoleFormatter{}, factory.CreateFormatter(Options{}))

	f := factory.CreateFormatter(Options{Format: FormatTable})
	f.SetOptions(Options{Format: FormatTable, Color: true})
	assert.True(t, f.GetOptions().Color)
}

func TestTableFormatter_Plan(t *testing.T) {
	out := NewTableFormatter(Options{}).FormatPlan(samplePlan(t))

	for _, want := range []string{"STAGE", "SERVICE", "REQUIRES", "api", "sqlite", "telemetry", "postgres → sqlite", "4 services, 3 stages"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "no color codes without Color")
}

func TestTableFormatter_Empty(t *testing.T) {
	f := NewTableFormatter(Options{})
	plan, err := dependency.NewResolver().Plan()
	require.NoError(t, err)

	assert.Contains(t, f.FormatPlan(plan), "No services declared")
	assert.Contains(t, f.FormatImpact("db", nil), "No services depend on db")
	assert.Contains(t, f.FormatRuntimeAudit(nil), "All runtime dependencies satisfied")
	assert.Contains(t, f.FormatHealth(nil), "No services registered")
}

func TestTableFormatter_HealthAndReport(t *testing.T) {
	f := NewTableFormatter(Options{})

	health := f.FormatHealth([]services.Health{
		{Name: "db", Status: services.StatusHealthy, Checked: true},
		{Name: "gps", Status: services.StatusDegraded, Checked: true, Err: errors.New("no fix")},
	})
	assert.Contains(t, health, "Degraded")
	assert.Contains(t, health, "no fix")

	report := f.FormatStartupReport(services.StartupReport{
		Succeeded: true,
		Total:     40 * time.Millisecond,
		InitTotal: 55 * time.Millisecond,
		Stages:    []services.StageTiming{{Stage: 0, Services: []string{"db"}, Duration: 40 * time.Millisecond}},
		Services:  []services.Timing{{Service: "db", Init: 30 * time.Millisecond, Total: 31 * time.Millisecond}},
	})
	assert.Contains(t, report, "Startup succeeded in 40ms")
	assert.Contains(t, report, "stage 0: 40ms")
	assert.Contains(t, report, "31ms")
}

func TestFormatters_EmergencyReport(t *testing.T) {
	report := safety.Report{
		Reason:      "operator pressed e-stop",
		TriggeredBy: "dashboard",
		Duration:    3 * time.Millisecond,
		Outcome:     map[string]bool{"brakes": true, "slides": false},
		Failures: []*safety.EmergencyStopError{
			{Service: "slides", Tier: safety.Critical, Err: errors.New("motor not responding")},
		},
	}

	table := NewTableFormatter(Options{}).FormatEmergencyReport(report)
	assert.Contains(t, table, "Emergency stop by dashboard")
	assert.Contains(t, table, "motor not responding")

	console := NewConsoleFormatter(Options{}).FormatEmergencyReport(report)
	assert.Contains(t, console, "brakes: safe")
	assert.Contains(t, console, "slides: FAILED - motor not responding")

	var decoded EmergencyView
	require.NoError(t, json.Unmarshal([]byte(NewJSONFormatter(Options{}).FormatEmergencyReport(report)), &decoded))
	assert.Equal(t, map[string]bool{"brakes": true, "slides": false}, decoded.Outcome)
	assert.Equal(t, "motor not responding", decoded.Failures["slides"])
}

func TestStructuredFormatters_Impact(t *testing.T) {
	var fromJSON ImpactView
	require.NoError(t, json.Unmarshal([]byte(NewJSONFormatter(Options{}).FormatImpact("db", nil)), &fromJSON))
	assert.Equal(t, ImpactView{Service: "db", Impacted: []string{}}, fromJSON)

	var fromYAML ImpactView
	require.NoError(t, yaml.Unmarshal([]byte(NewYAMLFormatter(Options{}).FormatImpact("db", []string{"api"})), &fromYAML))
	assert.Equal(t, ImpactView{Service: "db", Impacted: []string{"api"}}, fromYAML)
}

func TestConsoleFormatter_Plan(t *testing.T) {
	out := NewConsoleFormatter(Options{}).FormatPlan(samplePlan(t))
	lines := strings.Split(out, "\n")
	assert.Equal(t, []string{
		"Startup plan (3 stages):",
		"  0. config",
		"  1. cache, sqlite",
		"  2. api",
		"Fallback: api uses sqlite instead of postgres",
	}, lines)
}

func TestConsoleFormatter_RuntimeAudit(t *testing.T) {
	out := NewConsoleFormatter(Options{}).FormatRuntimeAudit(map[string][]string{
		"ui":  {"telemetry"},
		"api": {"metrics", "tracing"},
	})
	assert.Equal(t, "api is missing runtime dependencies: metrics, tracing\nui is missing runtime dependencies: telemetry", out)
}
