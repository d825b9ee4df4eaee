// Package planner turns requested targets into an ordered execution plan.
package planner

import (
	"fmt"
	"slices"

	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/zerr"
)

// Plan computes the execution plan for requested over a validated graph.
//
// The plan holds every transitive hard dependency of the requested targets,
// except targets in satisfied, which are treated as already succeeded and
// neither planned nor traversed. Hard edges are always respected; advisory
// edges only reorder planned targets and are dropped when they conflict with
// the hard order. Remaining ties are broken by declaration order, so the same
// graph and request always give the same plan.
func Plan(g *domain.Graph, requested, satisfied []string) (*domain.Plan, error) {
	if !g.Validated() {
		return nil, domain.ErrGraphNotValidated
	}
	if len(requested) == 0 {
		return nil, domain.ErrNoTargetsSpecified
	}

	roots, err := resolve(g, requested)
	if err != nil {
		return nil, err
	}
	done, err := resolve(g, satisfied)
	if err != nil {
		return nil, err
	}

	skip := make(map[domain.InternedString]bool, len(done))
	for _, name := range done {
		skip[name] = true
	}

	included := collect(g, roots, skip)

	return &domain.Plan{
		Requested: roots,
		Satisfied: done,
		Steps:     order(g, included),
	}, nil
}

// resolve interns names, rejecting unknown targets and dropping duplicates.
func resolve(g *domain.Graph, names []string) ([]domain.InternedString, error) {
	out := make([]domain.InternedString, 0, len(names))
	seen := make(map[domain.InternedString]bool, len(names))
	for _, n := range names {
		name := domain.NewInternedString(n)
		if _, ok := g.Target(name); !ok {
			msg := fmt.Sprintf("target %q is not defined", n)
			return nil, zerr.With(zerr.Wrap(domain.ErrUnresolvableTarget, msg), "target", n)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// collect returns the reverse-reachability closure over hard edges.
func collect(g *domain.Graph, roots []domain.InternedString, skip map[domain.InternedString]bool) map[domain.InternedString]*domain.Target {
	included := make(map[domain.InternedString]*domain.Target)
	queue := make([]domain.InternedString, 0, len(roots))
	for _, r := range roots {
		if !skip[r] {
			queue = append(queue, r)
		}
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := included[name]; ok {
			continue
		}

		t, _ := g.Target(name)
		included[name] = t

		for _, dep := range t.DependsOn {
			if skip[dep.Name] {
				continue
			}
			if _, ok := included[dep.Name]; !ok {
				queue = append(queue, dep.Name)
			}
		}
	}
	return included
}

// order is a Kahn topological sort of included. Among targets whose hard
// dependencies are placed, those whose advisory predecessors are placed too
// win; declaration index breaks ties.
func order(g *domain.Graph, included map[domain.InternedString]*domain.Target) []domain.Step {
	remaining := make(map[domain.InternedString]int, len(included))
	for name, t := range included {
		remaining[name] = len(inPlanDeps(t, included))
	}

	placed := make(map[domain.InternedString]bool, len(included))
	steps := make([]domain.Step, 0, len(included))

	for len(steps) < len(included) {
		var best, fallback *domain.Target
		for name, t := range included {
			if placed[name] || remaining[name] > 0 {
				continue
			}
			if fallback == nil || t.Index() < fallback.Index() {
				fallback = t
			}
			if advisoryReady(g, name, included, placed) && (best == nil || t.Index() < best.Index()) {
				best = t
			}
		}
		if best == nil {
			best = fallback
		}

		steps = append(steps, newStep(g, best, included, placed))
		placed[best.Name] = true
		for _, dependent := range g.Dependents(best.Name) {
			if _, ok := included[dependent]; ok {
				remaining[dependent]--
			}
		}
	}
	return steps
}

func advisoryReady(
	g *domain.Graph,
	name domain.InternedString,
	included map[domain.InternedString]*domain.Target,
	placed map[domain.InternedString]bool,
) bool {
	for _, pred := range g.AdvisoryPredecessors(name) {
		if _, ok := included[pred]; ok && !placed[pred] {
			return false
		}
	}
	return true
}

func newStep(
	g *domain.Graph,
	t *domain.Target,
	included map[domain.InternedString]*domain.Target,
	placed map[domain.InternedString]bool,
) domain.Step {
	step := domain.Step{Target: t, Deps: inPlanDeps(t, included)}
	for _, pred := range g.AdvisoryPredecessors(t.Name) {
		if placed[pred] && !slices.Contains(step.Deps, pred) {
			step.After = append(step.After, pred)
		}
	}
	return step
}

// inPlanDeps returns the distinct hard dependencies of t that are planned.
func inPlanDeps(t *domain.Target, included map[domain.InternedString]*domain.Target) []domain.InternedString {
	var deps []domain.InternedString
	for _, dep := range t.DependsOn {
		if _, ok := included[dep.Name]; ok && !slices.Contains(deps, dep.Name) {
			deps = append(deps, dep.Name)
		}
	}
	return deps
}
