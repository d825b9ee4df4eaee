package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/engine/planner"
	"go.trai.ch/zerr"
)

type spec struct {
	name      string
	deps      []string
	before    []string
	tryAfter  []string
	triggered []string
}

func buildGraph(t *testing.T, specs ...spec) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	for _, s := range specs {
		require.NoError(t, g.AddTarget(&domain.Target{
			Name:           domain.NewInternedString(s.name),
			DependsOn:      domain.DependsOn(s.deps...),
			Before:         domain.NewInternedStrings(s.before),
			TryAfter:       domain.NewInternedStrings(s.tryAfter),
			TryTriggeredBy: domain.NewInternedStrings(s.triggered),
		}))
	}
	require.NoError(t, g.Validate())
	return g
}

func dotnetGraph(t *testing.T) *domain.Graph {
	t.Helper()
	return buildGraph(t,
		spec{name: "restore"},
		spec{name: "clean", before: []string{"restore"}},
		spec{name: "compile", deps: []string{"clean", "restore"}},
		spec{name: "test", deps: []string{"compile"}},
		spec{name: "report-coverage", deps: []string{"test"}, triggered: []string{"test"}},
		spec{name: "pack", deps: []string{"compile"}, tryAfter: []string{"test"}},
		spec{name: "push", deps: []string{"pack"}},
	)
}

func TestPlan_HardClosure(t *testing.T) {
	g := dotnetGraph(t)

	plan, err := planner.Plan(g, []string{"pack"}, nil)
	require.NoError(t, err)

	// clean is declared after restore but must run before it.
	assert.Equal(t, []string{"clean", "restore", "compile", "pack"}, plan.Names())
	assert.NotContains(t, plan.Names(), "test", "advisory edges never expand the plan")
}

func TestPlan_AdvisoryOrdering(t *testing.T) {
	g := buildGraph(t,
		spec{name: "restore"},
		spec{name: "compile", deps: []string{"restore"}},
		spec{name: "pack", deps: []string{"compile"}, tryAfter: []string{"test"}},
		spec{name: "test", deps: []string{"compile"}},
	)

	plan, err := planner.Plan(g, []string{"pack", "test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"restore", "compile", "test", "pack"}, plan.Names())

	pack := plan.Steps[3]
	assert.Equal(t, []domain.InternedString{domain.NewInternedString("compile")}, pack.Deps)
	assert.Equal(t, []domain.InternedString{domain.NewInternedString("test")}, pack.After)
}

func TestPlan_Scenario(t *testing.T) {
	g := buildGraph(t,
		spec{name: "Restore"},
		spec{name: "Compile", deps: []string{"Restore"}},
		spec{name: "Test", deps: []string{"Compile"}},
		spec{name: "Pack", deps: []string{"Compile"}, tryAfter: []string{"Test"}},
	)

	plan, err := planner.Plan(g, []string{"Pack", "Test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Restore", "Compile", "Test", "Pack"}, plan.Names())
}

func TestPlan_MissingAdvisoryEndpoint(t *testing.T) {
	g := buildGraph(t,
		spec{name: "compile"},
		spec{name: "pack", deps: []string{"compile"}, tryAfter: []string{"report-coverage"}},
	)

	plan, err := planner.Plan(g, []string{"pack"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"compile", "pack"}, plan.Names())
	assert.Empty(t, plan.Steps[1].After)
}

func TestPlan_ConflictingAdvisoryEdgeIsDropped(t *testing.T) {
	// b hard-depends on a, but a asks to run after b.
	g := buildGraph(t,
		spec{name: "a", tryAfter: []string{"b"}},
		spec{name: "b", deps: []string{"a"}},
	)

	plan, err := planner.Plan(g, []string{"b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, plan.Names())
	assert.Empty(t, plan.Steps[0].After)
}

func TestPlan_DeclarationOrderTieBreak(t *testing.T) {
	g := buildGraph(t,
		spec{name: "zeta"},
		spec{name: "alpha"},
		spec{name: "mid"},
		spec{name: "all", deps: []string{"mid", "alpha", "zeta"}},
	)

	plan, err := planner.Plan(g, []string{"all"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid", "all"}, plan.Names())
}

func TestPlan_Satisfied(t *testing.T) {
	g := dotnetGraph(t)

	plan, err := planner.Plan(g, []string{"push"}, []string{"compile"})
	require.NoError(t, err)

	// Everything behind compile is cut off.
	assert.Equal(t, []string{"pack", "push"}, plan.Names())
	assert.Empty(t, plan.Steps[0].Deps)
	assert.Equal(t, []domain.InternedString{domain.NewInternedString("compile")}, plan.Satisfied)
}

func TestPlan_SatisfiedRequestedTarget(t *testing.T) {
	g := dotnetGraph(t)

	plan, err := planner.Plan(g, []string{"compile"}, []string{"compile"})
	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
}

func TestPlan_Errors(t *testing.T) {
	g := dotnetGraph(t)

	_, err := planner.Plan(g, nil, nil)
	require.ErrorIs(t, err, domain.ErrNoTargetsSpecified)

	_, err = planner.Plan(g, []string{"deploy"}, nil)
	require.ErrorIs(t, err, domain.ErrUnresolvableTarget)
	zErr, ok := err.(*zerr.Error)
	require.True(t, ok)
	assert.Equal(t, "deploy", zErr.Metadata()["target"])

	_, err = planner.Plan(g, []string{"pack"}, []string{"nope"})
	require.ErrorIs(t, err, domain.ErrUnresolvableTarget)

	unvalidated := domain.NewGraph()
	_, err = planner.Plan(unvalidated, []string{"a"}, nil)
	require.ErrorIs(t, err, domain.ErrGraphNotValidated)
}

func TestPlan_EveryAncestorExactlyOnceBeforeDescendant(t *testing.T) {
	g := dotnetGraph(t)

	for target := range g.Targets() {
		plan, err := planner.Plan(g, []string{target.Name.String()}, nil)
		require.NoError(t, err)

		position := make(map[string]int, len(plan.Steps))
		for i, name := range plan.Names() {
			_, dup := position[name]
			require.False(t, dup, "%s planned twice", name)
			position[name] = i
		}

		for ancestor := range g.Ancestors(target.Name) {
			_, ok := position[ancestor.String()]
			assert.True(t, ok, "%s missing from plan for %s", ancestor, target.Name)
		}
		for _, step := range plan.Steps {
			for _, dep := range step.Deps {
				assert.Less(t, position[dep.String()], position[step.Target.Name.String()])
			}
		}
	}
}

func TestPlan_Deterministic(t *testing.T) {
	g := dotnetGraph(t)

	first, err := planner.Plan(g, []string{"push", "report-coverage"}, nil)
	require.NoError(t, err)

	for range 20 {
		again, err := planner.Plan(g, []string{"push", "report-coverage"}, nil)
		require.NoError(t, err)
		assert.Equal(t, first.Names(), again.Names())
		assert.Equal(t, first.Fingerprint(), again.Fingerprint())
	}
}
