// Package domain contains the core domain models of the target dependency graph.
package domain

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph is the build definition: every registered target with its hard and
// advisory edges.
type Graph struct {
	root       string
	parameters map[string]string
	targets    map[InternedString]*Target
	order      []InternedString

	// Populated by Validate.
	validated  bool
	after      map[InternedString][]InternedString
	dependents map[InternedString][]InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		targets: make(map[InternedString]*Target),
	}
}

// SetRoot sets the directory the build definition was loaded from.
func (g *Graph) SetRoot(path string) {
	g.root = path
}

// Root returns the directory the build definition was loaded from.
func (g *Graph) Root() string {
	return g.root
}

// SetParameter records a build parameter visible to every target body.
func (g *Graph) SetParameter(key, value string) {
	if g.parameters == nil {
		g.parameters = make(map[string]string)
	}
	g.parameters[key] = value
}

// Parameters returns a copy of the build parameters.
func (g *Graph) Parameters() map[string]string {
	return maps.Clone(g.parameters)
}

// AddTarget registers t. The declaration index is assigned here.
// It returns ErrDuplicateTarget if the name is already registered.
func (g *Graph) AddTarget(t *Target) error {
	if err := validateTargetName(t.Name.String()); err != nil {
		return err
	}
	if _, exists := g.targets[t.Name]; exists {
		msg := fmt.Sprintf("target %q is registered twice", t.Name.String())
		return zerr.With(zerr.Wrap(ErrDuplicateTarget, msg), "target", t.Name.String())
	}
	t.index = len(g.order)
	g.targets[t.Name] = t
	g.order = append(g.order, t.Name)
	g.validated = false
	return nil
}

// Target returns the target registered under name.
func (g *Graph) Target(name InternedString) (*Target, bool) {
	t, ok := g.targets[name]
	return t, ok
}

// TargetCount returns the number of registered targets.
func (g *Graph) TargetCount() int {
	return len(g.order)
}

// Targets yields every target in declaration order.
func (g *Graph) Targets() iter.Seq[*Target] {
	return func(yield func(*Target) bool) {
		for _, name := range g.order {
			if !yield(g.targets[name]) {
				return
			}
		}
	}
}

// Validated reports whether Validate succeeded since the last registration.
func (g *Graph) Validated() bool {
	return g.validated
}

// AdvisoryPredecessors returns the targets that should run before name when
// both are planned. Only valid after Validate.
func (g *Graph) AdvisoryPredecessors(name InternedString) []InternedString {
	return g.after[name]
}

// Dependents returns the targets that hard-depend on name, in declaration order.
// Only valid after Validate.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}

// Ancestors returns every transitive hard dependency of name.
func (g *Graph) Ancestors(name InternedString) map[InternedString]struct{} {
	seen := make(map[InternedString]struct{})
	stack := []InternedString{name}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t, ok := g.targets[cur]
		if !ok {
			continue
		}
		for _, dep := range t.DependsOn {
			if _, done := seen[dep.Name]; done {
				continue
			}
			seen[dep.Name] = struct{}{}
			stack = append(stack, dep.Name)
		}
	}
	return seen
}

// Validate checks that every hard dependency is registered and that the hard
// edges are acyclic. Advisory edges are resolved by name; edges naming an
// unregistered target are dropped.
func (g *Graph) Validate() error {
	g.validated = false

	for _, name := range g.order {
		t := g.targets[name]
		for _, dep := range t.DependsOn {
			if _, ok := g.targets[dep.Name]; !ok {
				msg := fmt.Sprintf("target %q depends on unknown target %q", name.String(), dep.Name.String())
				err := zerr.With(zerr.Wrap(ErrUnresolvableTarget, msg), "target", dep.Name.String())
				return zerr.With(err, "required_by", name.String())
			}
		}
	}

	if err := g.detectCycles(); err != nil {
		return err
	}

	g.resolveEdges()
	g.validated = true
	return nil
}

// detectCycles walks the hard edges depth-first in declaration order so the
// reported cycle is stable between runs.
func (g *Graph) detectCycles() error {
	visited := make(map[InternedString]int, len(g.order)) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		for _, dep := range g.targets[u].DependsOn {
			switch visited[dep.Name] {
			case 1:
				return buildCycleError(path, dep.Name)
			case 0:
				if err := visit(dep.Name); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		return nil
	}

	for _, name := range g.order {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildCycleError constructs an error with the cycle path and its members.
func buildCycleError(path []InternedString, dep InternedString) error {
	start := slices.Index(path, dep)
	members := Strings(path[start:])
	cycle := strings.Join(append(slices.Clone(members), dep.String()), " -> ")

	err := zerr.With(zerr.Wrap(ErrCyclicDependency, "targets form a cycle: "+cycle), "cycle", cycle)
	return zerr.With(err, "members", members)
}

func (g *Graph) resolveEdges() {
	g.after = make(map[InternedString][]InternedString, len(g.order))
	g.dependents = make(map[InternedString][]InternedString, len(g.order))

	add := func(target, pred InternedString) {
		if target == pred {
			return
		}
		if _, ok := g.targets[target]; !ok {
			return
		}
		if _, ok := g.targets[pred]; !ok {
			return
		}
		if !slices.Contains(g.after[target], pred) {
			g.after[target] = append(g.after[target], pred)
		}
	}

	for _, name := range g.order {
		t := g.targets[name]
		for _, dep := range t.DependsOn {
			if !slices.Contains(g.dependents[dep.Name], name) {
				g.dependents[dep.Name] = append(g.dependents[dep.Name], name)
			}
		}
		for _, other := range t.Before {
			add(other, name)
		}
		for _, other := range t.TryAfter {
			add(name, other)
		}
		for _, other := range t.TryTriggeredBy {
			add(name, other)
		}
	}

	for name, preds := range g.after {
		slices.SortFunc(preds, func(a, b InternedString) int {
			return g.targets[a].index - g.targets[b].index
		})
		g.after[name] = preds
	}
}
