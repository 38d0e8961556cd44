package config

import (
	"slices"

	"rvkernel/internal/dependency"
	"rvkernel/internal/safety"
)

// ServiceSpec declares one service of the topology: its dependencies by
// kind, optional fallbacks and safety classification.
type ServiceSpec struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Tags        []string          `yaml:"tags,omitempty"`
	Safety      string            `yaml:"safety,omitempty"` // critical, operational or maintenance
	Requires    []string          `yaml:"requires,omitempty"`
	Optional    []string          `yaml:"optional,omitempty"`
	Runtime     []string          `yaml:"runtime,omitempty"`
	Fallbacks   map[string]string `yaml:"fallbacks,omitempty"` // dependency -> substitute
}

// Dependencies returns the typed dependency list, Required first.
func (s ServiceSpec) Dependencies() []dependency.Dependency {
	deps := make([]dependency.Dependency, 0, len(s.Requires)+len(s.Optional)+len(s.Runtime))
	add := func(names []string, ctor func(string) dependency.Dependency) {
		for _, name := range names {
			d := ctor(name)
			if fb, ok := s.Fallbacks[name]; ok {
				d = d.WithFallback(fb)
			}
			deps = append(deps, d)
		}
	}
	add(s.Requires, dependency.Required)
	add(s.Optional, dependency.Optional)
	add(s.Runtime, dependency.Runtime)
	return deps
}

// Classification returns the parsed safety class. Unset maps to Maintenance.
func (s ServiceSpec) Classification() safety.Classification {
	if s.Safety == "" {
		return safety.Maintenance
	}
	class, err := safety.ParseClassification(s.Safety)
	if err != nil {
		return safety.Maintenance
	}
	return class
}

// Service returns the declared service with the given name.
func (c KernelConfig) Service(name string) (ServiceSpec, bool) {
	idx := slices.IndexFunc(c.Services, func(s ServiceSpec) bool { return s.Name == name })
	if idx < 0 {
		return ServiceSpec{}, false
	}
	return c.Services[idx], true
}

// Resolver builds a dependency resolver over the declared topology.
func (c KernelConfig) Resolver() *dependency.Resolver {
	r := dependency.NewResolver()
	for _, svc := range c.Services {
		r.Add(svc.Name, svc.Dependencies())
	}
	return r
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
