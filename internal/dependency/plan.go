package dependency

import (
	"fmt"
	"slices"
	"strings"
)

// Plan is a successful resolution: the stages plus the node detail behind
// them.
type Plan struct {
	Stages        [][]string
	Nodes         map[string]*Node
	Substitutions []Substitution
}

// StageNames returns a copy of the stages.
func (p *Plan) StageNames() [][]string {
	out := make([][]string, len(p.Stages))
	for i, stage := range p.Stages {
		out[i] = slices.Clone(stage)
	}
	return out
}

// StageOf returns the stage a service was placed in.
func (p *Plan) StageOf(name string) (int, bool) {
	n, ok := p.Nodes[name]
	if !ok {
		return -1, false
	}
	return n.Stage, true
}

// Mermaid renders the plan as a mermaid flowchart. Arrows point from a
// dependency to its dependent: solid for Required, dashed for Optional and
// labelled dotted for Runtime. Each stage is a subgraph.
func (p *Plan) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	// Distinct names that sanitize to the same id get a numeric suffix.
	ids := make(map[string]string, len(p.Nodes))
	taken := make(map[string]bool, len(p.Nodes))
	id := func(name string) string {
		if v, ok := ids[name]; ok {
			return v
		}
		base := mermaidID(name)
		v := base
		for n := 2; taken[v]; n++ {
			v = fmt.Sprintf("%s_%d", base, n)
		}
		ids[name] = v
		taken[v] = true
		return v
	}

	for i, stage := range p.Stages {
		fmt.Fprintf(&b, "  subgraph stage%d[\"Stage %d\"]\n", i, i)
		for _, name := range stage {
			fmt.Fprintf(&b, "    %s[\"%s\"]\n", id(name), name)
		}
		b.WriteString("  end\n")
	}

	for _, stage := range p.Stages {
		for _, name := range stage {
			for _, dep := range p.Nodes[name].Dependencies {
				switch dep.Kind {
				case KindRequired:
					fmt.Fprintf(&b, "  %s --> %s\n", id(dep.Name), id(name))
				case KindOptional:
					fmt.Fprintf(&b, "  %s -.-> %s\n", id(dep.Name), id(name))
				case KindRuntime:
					fmt.Fprintf(&b, "  %s -. runtime .-> %s\n", id(dep.Name), id(name))
				}
			}
		}
	}
	return b.String()
}

func mermaidID(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return "svc_" + b.String()
}
