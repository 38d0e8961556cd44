package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindRequired, "required"},
		{KindOptional, "optional"},
		{KindRuntime, "runtime"},
		{Kind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("Kind(%d).String() = %s, expected %s", tt.kind, got, tt.expected)
		}
	}
}

func TestDependencyConstructors(t *testing.T) {
	d := Required("db").WithFallback("db-sqlite")
	assert.Equal(t, Dependency{Name: "db", Kind: KindRequired, Fallback: "db-sqlite"}, d)

	assert.Equal(t, KindOptional, Optional("cache").Kind)
	assert.Equal(t, KindRuntime, Runtime("telemetry").Kind)

	// WithFallback returns a copy
	base := Required("db")
	_ = base.WithFallback("other")
	assert.Empty(t, base.Fallback)
}

func TestBuildGraph(t *testing.T) {
	g := buildGraph(map[string][]Dependency{
		"can":       nil,
		"decoder":   {Required("can")},
		"store":     {Required("sqlite-hi").WithFallback("memstore")},
		"memstore":  nil,
		"dashboard": {Optional("decoder"), Optional("ghost"), Runtime("cloud")},
	})

	t.Run("substitutes fallback", func(t *testing.T) {
		deps := g.nodes["store"].Dependencies
		require.Len(t, deps, 1)
		assert.Equal(t, "memstore", deps[0].Name)
		assert.Equal(t, KindRequired, deps[0].Kind)
		assert.Empty(t, deps[0].Fallback)
		assert.Equal(t, []Substitution{{Service: "store", Missing: "sqlite-hi", Fallback: "memstore"}}, g.substitutions)
	})

	t.Run("drops missing optional and keeps runtime", func(t *testing.T) {
		deps := g.nodes["dashboard"].Dependencies
		require.Len(t, deps, 2)
		assert.Equal(t, Optional("decoder"), deps[0])
		assert.Equal(t, Runtime("cloud"), deps[1])
	})

	t.Run("dependents exclude runtime edges", func(t *testing.T) {
		assert.Equal(t, []string{"dashboard"}, g.nodes["decoder"].Dependents)
		assert.Equal(t, []string{"decoder"}, g.nodes["can"].Dependents)
		assert.Equal(t, []string{"store"}, g.nodes["memstore"].Dependents)
		assert.Empty(t, g.nodes["dashboard"].Dependents)
	})

	t.Run("no missing required", func(t *testing.T) {
		assert.Empty(t, g.missing)
	})

	t.Run("stage undefined before resolution", func(t *testing.T) {
		for _, n := range g.nodes {
			assert.Equal(t, -1, n.Stage, n.Name)
		}
	})
}

func TestBuildGraphMissingRequired(t *testing.T) {
	g := buildGraph(map[string][]Dependency{
		"api":   {Required("db"), Required("cache").WithFallback("also-missing")},
		"other": {Required("db")},
	})

	assert.Equal(t, map[string][]string{
		"api":   {"db", "cache"},
		"other": {"db"},
	}, g.missing)
}

func TestNodeRequiredDeduplicates(t *testing.T) {
	n := &Node{Dependencies: []Dependency{Required("a"), Optional("b"), Required("a"), Required("c")}}
	assert.Equal(t, []string{"a", "c"}, n.Required())
}

func TestGraphImpacted(t *testing.T) {
	g := buildGraph(map[string][]Dependency{
		"config": nil,
		"db":     {Required("config")},
		"cache":  {Required("config")},
		"api":    {Required("db"), Required("cache")},
		"ui":     {Optional("api")},
		"audit":  {Runtime("db")},
	})

	assert.Equal(t, []string{"api", "ui"}, g.impacted("db"))
	assert.Equal(t, []string{"api", "cache", "db", "ui"}, g.impacted("config"))
	assert.Empty(t, g.impacted("ui"))
	assert.Nil(t, g.impacted("unknown"))
}
