package taskrunner

import (
	"fmt"
	"sort"
	"strings"
)

// Graph holds registered targets by name
type Graph struct {
	targets map[string]*Target
	order   []string
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{targets: make(map[string]*Target)}
}

// Register adds a target. Dependencies may be registered later.
func (g *Graph) Register(t *Target) error {
	if t == nil || strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: target name is required", ErrUnknownTarget)
	}
	if _, ok := g.targets[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTarget, t.Name)
	}
	g.targets[t.Name] = t
	g.order = append(g.order, t.Name)
	return nil
}

// MustRegister is like Register but panics on error
func (g *Graph) MustRegister(targets ...*Target) {
	for _, t := range targets {
		if err := g.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns the named target
func (g *Graph) Get(name string) (*Target, bool) {
	t, ok := g.targets[name]
	return t, ok
}

// Targets returns every target in registration order
func (g *Graph) Targets() []*Target {
	out := make([]*Target, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.targets[name])
	}
	return out
}

// Names returns the registered names sorted alphabetically
func (g *Graph) Names() []string {
	names := append([]string(nil), g.order...)
	sort.Strings(names)
	return names
}

// Plan returns the targets needed for names in execution order. Each target
// appears once, after all of its dependencies; dependencies run in the order
// they were declared.
func (g *Graph) Plan(names ...string) ([]*Target, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.targets))
	var plan []*Target
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		t, ok := g.targets[name]
		if !ok {
			if len(stack) > 0 {
				return fmt.Errorf("%w: %s (required by %s)", ErrUnknownTarget, name, stack[len(stack)-1])
			}
			return fmt.Errorf("%w: %s", ErrUnknownTarget, name)
		}

		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrDependencyCycle, cyclePath(stack, name))
		}

		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range t.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		plan = append(plan, t)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// cyclePath renders the part of the stack that loops back to name
func cyclePath(stack []string, name string) string {
	for i, s := range stack {
		if s == name {
			return strings.Join(append(append([]string(nil), stack[i:]...), name), " -> ")
		}
	}
	return name
}
