package dependency

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"rvkernel/pkg/logging"
)

// Resolver turns dependency declarations into startup stages.
//
// Add is pure bookkeeping. All validation happens in Resolve, which rebuilds
// its graph from the declarations each time and has no side effects, so it
// can be called repeatedly.
type Resolver struct {
	mu       sync.RWMutex
	declared map[string][]Dependency
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{declared: make(map[string][]Dependency)}
}

// Add declares name with the given dependencies, replacing any earlier
// declaration of the same name.
func (r *Resolver) Add(name string, deps []Dependency) {
	copied := make([]Dependency, len(deps))
	copy(copied, deps)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.declared[name] = copied
}

// Has reports whether name has been declared.
func (r *Resolver) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.declared[name]
	return ok
}

// Names returns every declared service, sorted.
func (r *Resolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.declared))
	for name := range r.declared {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dependencies returns the declared (not substituted) dependencies of name.
func (r *Resolver) Dependencies(name string) []Dependency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	deps, ok := r.declared[name]
	if !ok {
		return nil
	}
	out := make([]Dependency, len(deps))
	copy(out, deps)
	return out
}

// Dependents returns the services with a direct Required or Optional edge
// to name.
func (r *Resolver) Dependents(name string) []string {
	g := buildGraph(r.snapshot())
	if n, ok := g.nodes[name]; ok {
		return slices.Clone(n.Dependents)
	}
	return nil
}

func (r *Resolver) snapshot() map[string][]Dependency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]Dependency, len(r.declared))
	for name, deps := range r.declared {
		out[name] = slices.Clone(deps)
	}
	return out
}

// Resolve validates the declarations and returns the startup stages. Every
// service in stage i depends only on services in stages < i.
func (r *Resolver) Resolve() ([][]string, error) {
	plan, err := r.Plan()
	if err != nil {
		return nil, err
	}
	return plan.StageNames(), nil
}

// Plan is Resolve with the full node detail attached.
func (r *Resolver) Plan() (*Plan, error) {
	g := buildGraph(r.snapshot())

	if len(g.missing) > 0 {
		missing := make(map[string][]string, len(g.missing))
		for name, deps := range g.missing {
			missing[name] = slices.Clone(deps)
		}
		return nil, &ConfigurationError{Missing: missing, Available: slices.Clone(g.names)}
	}

	if cycles := g.findCycles(); len(cycles) > 0 {
		return nil, &CycleError{Cycles: cycles}
	}

	baseline, err := g.baselineStages()
	if err != nil {
		return nil, err
	}
	g.computeDepths()
	stages := g.optimizeStages(baseline)

	logging.Debug("Resolver", "Resolved %d services into %d stages", len(g.names), len(stages))
	return &Plan{
		Stages:        stages,
		Nodes:         g.nodes,
		Substitutions: g.substitutions,
	}, nil
}

// ValidateRuntimeDependencies reports, per service, every runtime
// dependency that is not in available. A runtime dependency counts as
// satisfied when its fallback is available.
func (r *Resolver) ValidateRuntimeDependencies(available []string) map[string][]string {
	present := make(map[string]struct{}, len(available))
	for _, name := range available {
		present[name] = struct{}{}
	}

	result := make(map[string][]string)
	for name, deps := range r.snapshot() {
		for _, dep := range deps {
			if dep.Kind != KindRuntime {
				continue
			}
			if _, ok := present[dep.Name]; ok {
				continue
			}
			if _, ok := present[dep.Fallback]; ok && dep.Fallback != "" {
				continue
			}
			result[name] = append(result[name], dep.Name)
		}
	}
	for name := range result {
		slices.Sort(result[name])
	}
	return result
}

// ImpactedServices returns every service that depends on failed, directly
// or transitively. The failed service itself is not included.
func (r *Resolver) ImpactedServices(failed string) []string {
	return buildGraph(r.snapshot()).impacted(failed)
}

// findCycles walks Required edges depth-first with an explicit recursion
// stack. Each back edge yields one cycle, reported once regardless of the
// node it was entered from.
func (g *graph) findCycles() [][]string {
	const (
		unvisited = iota
		inProgress
		done
	)

	state := make(map[string]int, len(g.names))
	position := make(map[string]int)
	var stack []string
	seen := make(map[string]struct{})
	var cycles [][]string

	var visit func(name string)
	visit = func(name string) {
		state[name] = inProgress
		position[name] = len(stack)
		stack = append(stack, name)

		for _, dep := range g.requiredDeps(name) {
			switch state[dep] {
			case unvisited:
				visit(dep)
			case inProgress:
				cycle := slices.Clone(stack[position[dep]:])
				cycle = append(cycle, dep)
				key := canonicalCycle(cycle)
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					cycles = append(cycles, cycle)
				}
			}
		}

		stack = stack[:len(stack)-1]
		delete(position, name)
		state[name] = done
	}

	for _, name := range g.names {
		if state[name] == unvisited {
			visit(name)
		}
	}
	return cycles
}

// canonicalCycle rotates a closed path so that equal cycles found from
// different entry points compare equal.
func canonicalCycle(cycle []string) string {
	open := cycle[:len(cycle)-1]
	start := 0
	for i, name := range open {
		if name < open[start] {
			start = i
		}
	}
	rotated := append(slices.Clone(open[start:]), open[:start]...)
	return strings.Join(rotated, "\x00")
}

// baselineStages consumes ready frontiers: each stage holds every remaining
// node whose Required dependencies were all placed in earlier stages.
func (g *graph) baselineStages() ([][]string, error) {
	placed := make(map[string]int, len(g.names))
	remaining := slices.Clone(g.names)
	var stages [][]string

	for len(remaining) > 0 {
		var ready, blocked []string
		for _, name := range remaining {
			ok := true
			for _, dep := range g.requiredDeps(name) {
				if _, done := placed[dep]; !done {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, name)
			} else {
				blocked = append(blocked, name)
			}
		}

		if len(ready) == 0 {
			// Unreachable once findCycles has passed.
			return nil, fmt.Errorf("no schedulable services among %s", strings.Join(blocked, ", "))
		}

		for _, name := range ready {
			placed[name] = len(stages)
		}
		stages = append(stages, ready)
		remaining = blocked
	}
	return stages, nil
}

// computeDepths assigns each node its BFS distance from the nearest root
// (a node without Required dependencies), walking dependent edges.
func (g *graph) computeDepths() {
	depth := make(map[string]int, len(g.names))
	var queue []string
	for _, name := range g.names {
		if len(g.requiredDeps(name)) == 0 {
			depth[name] = 0
			queue = append(queue, name)
		}
	}

	reverse := make(map[string][]string)
	for _, name := range g.names {
		for _, dep := range g.requiredDeps(name) {
			reverse[dep] = append(reverse[dep], name)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependent := range reverse[current] {
			if _, seen := depth[dependent]; seen {
				continue
			}
			depth[dependent] = depth[current] + 1
			queue = append(queue, dependent)
		}
	}

	for name, d := range depth {
		g.nodes[name].Depth = d
	}
}

// optimizeStages places every node at max(stage of its Required deps)+1,
// processing nodes in baseline order so dependencies are always placed
// first. The result never exceeds the baseline stage of any node.
func (g *graph) optimizeStages(baseline [][]string) [][]string {
	stageOf := make(map[string]int, len(g.names))
	highest := -1
	for _, stage := range baseline {
		for _, name := range stage {
			s := 0
			for _, dep := range g.requiredDeps(name) {
				s = max(s, stageOf[dep]+1)
			}
			stageOf[name] = s
			highest = max(highest, s)
		}
	}

	// Remap to contiguous numbers starting at 0.
	used := make([]bool, highest+1)
	for _, s := range stageOf {
		used[s] = true
	}
	remap := make([]int, highest+1)
	next := 0
	for s, ok := range used {
		if ok {
			remap[s] = next
			next++
		}
	}

	stages := make([][]string, next)
	for _, name := range g.names {
		s := remap[stageOf[name]]
		g.nodes[name].Stage = s
		stages[s] = append(stages[s], name)
	}
	return stages
}
