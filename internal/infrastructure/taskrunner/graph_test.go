package taskrunner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(plan []*Target) []string {
	out := make([]string, len(plan))
	for i, t := range plan {
		out[i] = t.Name
	}
	return out
}

func buildGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	g.MustRegister(
		&Target{Name: "all", Deps: []string{"depends", "fixtures", "database"}},
		&Target{Name: "check_for_venv"},
		&Target{Name: "depends", Deps: []string{"check_for_venv"}},
		&Target{Name: "fixtures", Deps: []string{"depends"}},
		&Target{Name: "database", Deps: []string{"depends", "fixtures"}},
		&Target{Name: "clean"},
		&Target{Name: "lint"},
	)
	return g
}

func TestGraph_Plan(t *testing.T) {
	g := buildGraph(t)

	tests := []struct {
		name   string
		target []string
		want   []string
	}{
		{"all installs first", []string{"all"}, []string{"check_for_venv", "depends", "fixtures", "database", "all"}},
		{"database pulls fixtures", []string{"database"}, []string{"check_for_venv", "depends", "fixtures", "database"}},
		{"clean is independent", []string{"clean"}, []string{"clean"}},
		{"each target once", []string{"fixtures", "database", "fixtures"}, []string{"check_for_venv", "depends", "fixtures", "database"}},
		{"multiple roots in order", []string{"lint", "clean"}, []string{"lint", "clean"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := g.Plan(tt.target...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(plan))
		})
	}
}

func TestGraph_Plan_Errors(t *testing.T) {
	t.Run("unknown target", func(t *testing.T) {
		g := buildGraph(t)
		_, err := g.Plan("deploy")
		require.ErrorIs(t, err, ErrUnknownTarget)
		assert.Contains(t, err.Error(), "deploy")
	})

	t.Run("unknown dependency names its dependent", func(t *testing.T) {
		g := NewGraph()
		g.MustRegister(&Target{Name: "a", Deps: []string{"missing"}})
		_, err := g.Plan("a")
		require.ErrorIs(t, err, ErrUnknownTarget)
		assert.Contains(t, err.Error(), "required by a")
	})

	t.Run("cycle", func(t *testing.T) {
		g := NewGraph()
		g.MustRegister(
			&Target{Name: "a", Deps: []string{"b"}},
			&Target{Name: "b", Deps: []string{"c"}},
			&Target{Name: "c", Deps: []string{"a"}},
		)
		_, err := g.Plan("a")
		require.ErrorIs(t, err, ErrDependencyCycle)
		assert.Contains(t, err.Error(), "a -> b -> c -> a")
	})

	t.Run("self dependency", func(t *testing.T) {
		g := NewGraph()
		g.MustRegister(&Target{Name: "a", Deps: []string{"a"}})
		_, err := g.Plan("a")
		require.ErrorIs(t, err, ErrDependencyCycle)
	})
}

func TestGraph_Register(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Register(&Target{Name: "b"}))
	require.NoError(t, g.Register(&Target{Name: "a"}))

	err := g.Register(&Target{Name: "a"})
	require.ErrorIs(t, err, ErrDuplicateTarget)
	require.Error(t, g.Register(&Target{Name: " "}))

	assert.Equal(t, []string{"a", "b"}, g.Names())
	assert.Equal(t, []string{"b", "a"}, names(g.Targets()))

	got, ok := g.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)

	assert.Panics(t, func() { g.MustRegister(&Target{Name: "a"}) })
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "pip install -r requirements.txt", NewCommand("pip", "install", "-r", "requirements.txt").String())
	assert.Equal(t, "echo 'hello world' ''", NewCommand("echo", "hello world", "").String())
	assert.Equal(t, Command{}, NewCommand())
}
