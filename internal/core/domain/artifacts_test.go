package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rig/internal/core/domain"
)

func artifactGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()

	compile := newTarget("compile")
	compile.Produces = []string{"artifacts/bin/*.dll"}

	test := newTarget("test", "compile")
	test.Produces = []string{"artifacts/test-results/*.trx", "artifacts/test-results/*.xml"}

	coverage := newTarget("report-coverage", "test")
	coverage.Consumes = []string{"target:test", "artifacts/test-results/coverage.xml"}
	coverage.Produces = []string{"artifacts/coverage-report.zip"}

	pack := newTarget("pack", "compile")
	pack.Consumes = []string{"artifacts/bin/*.dll", "artifacts/coverage-report.zip"}
	pack.Produces = []string{"artifacts/packages/*.nupkg"}

	for _, target := range []*domain.Target{compile, test, coverage, pack} {
		require.NoError(t, g.AddTarget(target))
	}
	require.NoError(t, g.Validate())
	return g
}

func TestArtifactTracker_Check(t *testing.T) {
	tracker := domain.NewArtifactTracker(artifactGraph(t))

	warnings := tracker.Check()
	require.Len(t, warnings, 1)
	assert.Equal(t, "pack", warnings[0].Target)
	assert.Equal(t, "artifacts/coverage-report.zip", warnings[0].Pattern)
	assert.Contains(t, warnings[0].String(), "no dependency produces it")
}

func TestArtifactTracker_TargetReferences(t *testing.T) {
	g := domain.NewGraph()
	lint := newTarget("lint")
	docs := newTarget("docs")
	docs.Produces = []string{"site/*.html"}
	publish := newTarget("publish", "lint")
	publish.Consumes = []string{"target:docs", "target:lint", "target:ghost"}

	for _, target := range []*domain.Target{lint, docs, publish} {
		require.NoError(t, g.AddTarget(target))
	}
	require.NoError(t, g.Validate())

	warnings := domain.NewArtifactTracker(g).Check()
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0].Message, "not a dependency")
	assert.Contains(t, warnings[1].Message, "declares none")
	assert.Contains(t, warnings[2].Message, "unknown target")
}

func TestArtifactTracker_Expected(t *testing.T) {
	g := artifactGraph(t)
	tracker := domain.NewArtifactTracker(g)

	compile, _ := g.Target(domain.NewInternedString("compile"))
	pack, _ := g.Target(domain.NewInternedString("pack"))
	plan := &domain.Plan{Steps: []domain.Step{{Target: compile}, {Target: pack}}}

	assert.Equal(t, []domain.ExpectedArtifact{
		{Target: "compile", Pattern: "artifacts/bin/*.dll"},
		{Target: "pack", Pattern: "artifacts/packages/*.nupkg"},
	}, tracker.Expected(plan))

	warnings := tracker.CheckPlan(plan)
	require.Len(t, warnings, 1)
	assert.Equal(t, "pack", warnings[0].Target)

	assert.Equal(t, []string{"artifacts/bin/*.dll"}, tracker.Produced("compile"))
	assert.Nil(t, tracker.Consumed("missing"))
}

func TestPatternsOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"packages/*.nupkg", "packages/*.nupkg", true},
		{"packages/*.nupkg", "packages/App.1.0.0.nupkg", true},
		{"packages/App.1.0.0.nupkg", "packages/*.nupkg", true},
		{"./packages/*.nupkg", "packages/*.nupkg", true},
		{"packages/*.nupkg", "packages/*.snupkg", false},
		{"test-results/*.trx", "coverage.zip", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"~"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.PatternsOverlap(tt.a, tt.b))
		})
	}
}
