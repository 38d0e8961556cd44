package dependency

import (
	"slices"

	"rvkernel/pkg/logging"
)

// Kind categorises a dependency edge.
type Kind int

const (
	// KindRequired blocks startup until the dependency is healthy.
	KindRequired Kind = iota
	// KindOptional is used when present and ignored when absent.
	KindOptional
	// KindRuntime is audited after startup and never orders or blocks it.
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindRequired:
		return "required"
	case KindOptional:
		return "optional"
	case KindRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Dependency is a typed edge from a service to one it relies on.
type Dependency struct {
	Name string
	Kind Kind
	// Fallback is substituted for Name when Name is not registered.
	Fallback string
}

// Required declares a dependency that must be healthy before start.
func Required(name string) Dependency {
	return Dependency{Name: name, Kind: KindRequired}
}

// Optional declares a best-effort dependency.
func Optional(name string) Dependency {
	return Dependency{Name: name, Kind: KindOptional}
}

// Runtime declares a dependency only checked once everything is running.
func Runtime(name string) Dependency {
	return Dependency{Name: name, Kind: KindRuntime}
}

// WithFallback returns a copy of d that resolves to fallback when d.Name is
// unknown.
func (d Dependency) WithFallback(fallback string) Dependency {
	d.Fallback = fallback
	return d
}

// Node is the resolver's view of one service. Stage is -1 until the node
// has been placed by a successful resolution.
type Node struct {
	Name string
	// Dependencies are the effective edges, after fallback substitution.
	Dependencies []Dependency
	// Dependents lists services with a Required or Optional edge to this node.
	Dependents []string
	Stage      int
	// Depth is the BFS distance from the nearest root along Required edges.
	Depth int
}

// Required returns the names of the node's effective Required dependencies.
func (n *Node) Required() []string {
	var out []string
	for _, d := range n.Dependencies {
		if d.Kind == KindRequired && !slices.Contains(out, d.Name) {
			out = append(out, d.Name)
		}
	}
	return out
}

// Substitution records a fallback that replaced an unresolved dependency.
type Substitution struct {
	Service  string
	Missing  string
	Fallback string
}

// graph is rebuilt from the declarations on every call and never shared.
type graph struct {
	nodes         map[string]*Node
	names         []string
	dependents    map[string]map[string]struct{}
	missing       map[string][]string
	substitutions []Substitution
}

func buildGraph(decls map[string][]Dependency) *graph {
	g := &graph{
		nodes:      make(map[string]*Node, len(decls)),
		dependents: make(map[string]map[string]struct{}, len(decls)),
		missing:    make(map[string][]string),
	}

	for name := range decls {
		g.names = append(g.names, name)
	}
	slices.Sort(g.names)

	for _, name := range g.names {
		node := &Node{Name: name, Stage: -1}
		for _, dep := range decls[name] {
			if dep.Kind == KindRuntime {
				node.Dependencies = append(node.Dependencies, dep)
				continue
			}

			if _, ok := decls[dep.Name]; ok {
				node.Dependencies = append(node.Dependencies, Dependency{Name: dep.Name, Kind: dep.Kind})
				continue
			}

			if dep.Fallback != "" {
				if _, ok := decls[dep.Fallback]; ok {
					logging.Warn("Resolver", "Service %s: dependency %s not registered, using fallback %s", name, dep.Name, dep.Fallback)
					node.Dependencies = append(node.Dependencies, Dependency{Name: dep.Fallback, Kind: dep.Kind})
					g.substitutions = append(g.substitutions, Substitution{Service: name, Missing: dep.Name, Fallback: dep.Fallback})
					continue
				}
			}

			if dep.Kind == KindRequired {
				g.missing[name] = append(g.missing[name], dep.Name)
				continue
			}
			logging.Debug("Resolver", "Service %s: optional dependency %s not registered, ignoring", name, dep.Name)
		}
		g.nodes[name] = node
	}

	for _, name := range g.names {
		for _, dep := range g.nodes[name].Dependencies {
			if dep.Kind == KindRuntime {
				continue
			}
			if _, ok := g.nodes[dep.Name]; !ok {
				continue
			}
			set, ok := g.dependents[dep.Name]
			if !ok {
				set = make(map[string]struct{})
				g.dependents[dep.Name] = set
			}
			set[name] = struct{}{}
		}
	}

	for name, set := range g.dependents {
		deps := make([]string, 0, len(set))
		for d := range set {
			deps = append(deps, d)
		}
		slices.Sort(deps)
		g.nodes[name].Dependents = deps
	}

	return g
}

// requiredDeps returns the sorted Required edges of name that point at
// known nodes.
func (g *graph) requiredDeps(name string) []string {
	deps := g.nodes[name].Required()
	out := deps[:0]
	for _, d := range deps {
		if _, ok := g.nodes[d]; ok {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}

// impacted returns every node reachable over reverse Required/Optional edges.
func (g *graph) impacted(name string) []string {
	if _, ok := g.nodes[name]; !ok {
		return nil
	}

	visited := map[string]struct{}{name: {}}
	queue := []string{name}
	var out []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for dependent := range g.dependents[current] {
			if _, seen := visited[dependent]; seen {
				continue
			}
			visited[dependent] = struct{}{}
			out = append(out, dependent)
			queue = append(queue, dependent)
		}
	}
	slices.Sort(out)
	return out
}
