package services

import (
	"cmp"
	"slices"
	"time"
)

// Timing records how long one service took to come up and to stop.
type Timing struct {
	Service string
	Stage   int
	// DependencyCheck covers the re-check of Required dependencies.
	DependencyCheck time.Duration
	Init            time.Duration
	// Total runs from entering Starting until Healthy or Failed.
	Total     time.Duration
	StartedAt time.Time
	Stop      time.Duration
}

// StageTiming is the wall time one stage took to settle.
type StageTiming struct {
	Stage    int
	Services []string
	Duration time.Duration
}

// StartupReport summarises the last startup attempt and shutdown.
type StartupReport struct {
	Succeeded bool
	// Total is the wall time of the whole startup walk.
	Total                time.Duration
	InitTotal            time.Duration
	DependencyCheckTotal time.Duration
	Stages               []StageTiming
	Services             []Timing
	Shutdown             time.Duration
}

// Timings returns the timing of every service that attempted to start,
// ordered by stage then name.
func (r *Registry) Timings() []Timing {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.timingsLocked()
}

func (r *Registry) timingsLocked() []Timing {
	var out []Timing
	for _, e := range r.entries {
		if e.timing.StartedAt.IsZero() {
			continue
		}
		out = append(out, e.timing)
	}
	slices.SortFunc(out, func(a, b Timing) int {
		if c := cmp.Compare(a.Stage, b.Stage); c != 0 {
			return c
		}
		return cmp.Compare(a.Service, b.Service)
	})
	return out
}

// SlowestServices returns up to n timings with the longest total start
// time first.
func (r *Registry) SlowestServices(n int) []Timing {
	timings := r.Timings()
	slices.SortStableFunc(timings, func(a, b Timing) int {
		return cmp.Compare(b.Total, a.Total)
	})
	if n >= 0 && n < len(timings) {
		timings = timings[:n]
	}
	return timings
}

// StartupReport returns the aggregate timings of the last startup.
func (r *Registry) StartupReport() StartupReport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report := r.report
	report.Stages = slices.Clone(r.report.Stages)
	report.Services = r.timingsLocked()
	report.InitTotal, report.DependencyCheckTotal = 0, 0
	for _, t := range report.Services {
		report.InitTotal += t.Init
		report.DependencyCheckTotal += t.DependencyCheck
	}
	return report
}

func (r *Registry) recordStage(stage int, names []string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Stages = append(r.report.Stages, StageTiming{Stage: stage, Services: slices.Clone(names), Duration: d})
}

func (r *Registry) finishReport(begin time.Time, succeeded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Total = time.Since(begin)
	r.report.Succeeded = succeeded
}
