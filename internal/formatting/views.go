package formatting

import (
	"slices"
	"time"

	"rvkernel/internal/dependency"
	"rvkernel/internal/safety"
	"rvkernel/internal/services"
)

// PlanView is the serialisable form of a dependency plan.
type PlanView struct {
	Stages        [][]string         `json:"stages" yaml:"stages"`
	Services      []PlanServiceView  `json:"services" yaml:"services"`
	Substitutions []SubstitutionView `json:"substitutions,omitempty" yaml:"substitutions,omitempty"`
}

// PlanServiceView is one node of a plan.
type PlanServiceView struct {
	Name       string   `json:"name" yaml:"name"`
	Stage      int      `json:"stage" yaml:"stage"`
	Depth      int      `json:"depth" yaml:"depth"`
	Requires   []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Optional   []string `json:"optional,omitempty" yaml:"optional,omitempty"`
	Runtime    []string `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	Dependents []string `json:"dependents,omitempty" yaml:"dependents,omitempty"`
}

// SubstitutionView is one fallback the resolver applied.
type SubstitutionView struct {
	Service  string `json:"service" yaml:"service"`
	Missing  string `json:"missing" yaml:"missing"`
	Fallback string `json:"fallback" yaml:"fallback"`
}

// NewPlanView flattens plan, services ordered by stage then name.
func NewPlanView(plan *dependency.Plan) PlanView {
	view := PlanView{Stages: plan.StageNames()}
	for _, stage := range plan.Stages {
		for _, name := range stage {
			node := plan.Nodes[name]
			sv := PlanServiceView{
				Name:       name,
				Stage:      node.Stage,
				Depth:      node.Depth,
				Dependents: slices.Clone(node.Dependents),
			}
			for _, dep := range node.Dependencies {
				switch dep.Kind {
				case dependency.KindRequired:
					sv.Requires = appendUnique(sv.Requires, dep.Name)
				case dependency.KindOptional:
					sv.Optional = appendUnique(sv.Optional, dep.Name)
				case dependency.KindRuntime:
					sv.Runtime = appendUnique(sv.Runtime, dep.Name)
				}
			}
			view.Services = append(view.Services, sv)
		}
	}
	for _, sub := range plan.Substitutions {
		view.Substitutions = append(view.Substitutions, SubstitutionView{
			Service:  sub.Service,
			Missing:  sub.Missing,
			Fallback: sub.Fallback,
		})
	}
	return view
}

func appendUnique(list []string, name string) []string {
	if slices.Contains(list, name) {
		return list
	}
	return append(list, name)
}

// ImpactView lists what a failure of Service takes down with it.
type ImpactView struct {
	Service  string   `json:"service" yaml:"service"`
	Impacted []string `json:"impacted" yaml:"impacted"`
}

// RuntimeGapView is one service with unmet runtime dependencies.
type RuntimeGapView struct {
	Service string   `json:"service" yaml:"service"`
	Missing []string `json:"missing" yaml:"missing"`
}

// NewRuntimeGapViews sorts a runtime audit by service.
func NewRuntimeGapViews(missing map[string][]string) []RuntimeGapView {
	views := make([]RuntimeGapView, 0, len(missing))
	for service, deps := range missing {
		views = append(views, RuntimeGapView{Service: service, Missing: slices.Clone(deps)})
	}
	slices.SortFunc(views, func(a, b RuntimeGapView) int {
		if a.Service < b.Service {
			return -1
		}
		if a.Service > b.Service {
			return 1
		}
		return 0
	})
	return views
}

// HealthView is one row of a health snapshot.
type HealthView struct {
	Name    string `json:"name" yaml:"name"`
	Status  string `json:"status" yaml:"status"`
	Checked bool   `json:"checked" yaml:"checked"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewHealthViews converts a snapshot.
func NewHealthViews(snapshot []services.Health) []HealthView {
	views := make([]HealthView, len(snapshot))
	for i, h := range snapshot {
		views[i] = HealthView{Name: h.Name, Status: h.Status.String(), Checked: h.Checked}
		if h.Err != nil {
			views[i].Error = h.Err.Error()
		}
	}
	return views
}

// TimingView is one service's start timing.
type TimingView struct {
	Service         string `json:"service" yaml:"service"`
	Stage           int    `json:"stage" yaml:"stage"`
	DependencyCheck string `json:"dependencyCheck" yaml:"dependencyCheck"`
	Init            string `json:"init" yaml:"init"`
	Total           string `json:"total" yaml:"total"`
	Stop            string `json:"stop,omitempty" yaml:"stop,omitempty"`
}

// StageTimingView is one stage's wall time.
type StageTimingView struct {
	Stage    int      `json:"stage" yaml:"stage"`
	Services []string `json:"services" yaml:"services"`
	Duration string   `json:"duration" yaml:"duration"`
}

// StartupView summarises a startup report.
type StartupView struct {
	Succeeded            bool              `json:"succeeded" yaml:"succeeded"`
	Total                string            `json:"total" yaml:"total"`
	InitTotal            string            `json:"initTotal" yaml:"initTotal"`
	DependencyCheckTotal string            `json:"dependencyCheckTotal" yaml:"dependencyCheckTotal"`
	Shutdown             string            `json:"shutdown,omitempty" yaml:"shutdown,omitempty"`
	Stages               []StageTimingView `json:"stages" yaml:"stages"`
	Services             []TimingView      `json:"services" yaml:"services"`
}

// NewStartupView converts a report.
func NewStartupView(report services.StartupReport) StartupView {
	view := StartupView{
		Succeeded:            report.Succeeded,
		Total:                FormatDuration(report.Total),
		InitTotal:            FormatDuration(report.InitTotal),
		DependencyCheckTotal: FormatDuration(report.DependencyCheckTotal),
	}
	if report.Shutdown > 0 {
		view.Shutdown = FormatDuration(report.Shutdown)
	}
	for _, st := range report.Stages {
		view.Stages = append(view.Stages, StageTimingView{
			Stage:    st.Stage,
			Services: slices.Clone(st.Services),
			Duration: FormatDuration(st.Duration),
		})
	}
	for _, t := range report.Services {
		tv := TimingView{
			Service:         t.Service,
			Stage:           t.Stage,
			DependencyCheck: FormatDuration(t.DependencyCheck),
			Init:            FormatDuration(t.Init),
			Total:           FormatDuration(t.Total),
		}
		if t.Stop > 0 {
			tv.Stop = FormatDuration(t.Stop)
		}
		view.Services = append(view.Services, tv)
	}
	return view
}

// EmergencyView summarises an emergency stop.
type EmergencyView struct {
	Reason      string            `json:"reason" yaml:"reason"`
	TriggeredBy string            `json:"triggeredBy" yaml:"triggeredBy"`
	StartedAt   time.Time         `json:"startedAt" yaml:"startedAt"`
	Duration    string            `json:"duration" yaml:"duration"`
	Outcome     map[string]bool   `json:"outcome" yaml:"outcome"`
	Failures    map[string]string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// NewEmergencyView converts a report.
func NewEmergencyView(report safety.Report) EmergencyView {
	view := EmergencyView{
		Reason:      report.Reason,
		TriggeredBy: report.TriggeredBy,
		StartedAt:   report.StartedAt,
		Duration:    FormatDuration(report.Duration),
		Outcome:     report.Outcome,
	}
	if len(report.Failures) > 0 {
		view.Failures = make(map[string]string, len(report.Failures))
		for _, f := range report.Failures {
			view.Failures[f.Service] = f.Err.Error()
		}
	}
	return view
}
