package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rig/internal/core/domain"
)

func TestTransition(t *testing.T) {
	allowed := []struct{ from, to domain.Status }{
		{domain.StatusNotRun, domain.StatusRunning},
		{domain.StatusNotRun, domain.StatusSkipped},
		{domain.StatusRunning, domain.StatusSucceeded},
		{domain.StatusRunning, domain.StatusFailed},
	}
	for _, tt := range allowed {
		got, err := domain.Transition(tt.from, tt.to)
		require.NoError(t, err, "%s -> %s", tt.from, tt.to)
		assert.Equal(t, tt.to, got)
	}

	rejected := []struct{ from, to domain.Status }{
		{domain.StatusNotRun, domain.StatusSucceeded},
		{domain.StatusRunning, domain.StatusSkipped},
		{domain.StatusSucceeded, domain.StatusFailed},
		{domain.StatusFailed, domain.StatusRunning},
		{domain.StatusSkipped, domain.StatusRunning},
	}
	for _, tt := range rejected {
		got, err := domain.Transition(tt.from, tt.to)
		require.ErrorIs(t, err, domain.ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
		assert.Equal(t, tt.from, got)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, domain.StatusNotRun.IsTerminal())
	assert.False(t, domain.StatusRunning.IsTerminal())
	assert.True(t, domain.StatusSucceeded.IsTerminal())
	assert.True(t, domain.StatusFailed.IsTerminal())
	assert.True(t, domain.StatusSkipped.IsTerminal())
}

func TestReport(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &domain.Report{
		Started:  start,
		Finished: start.Add(3 * time.Second),
		Targets: []domain.Outcome{
			{Name: "restore", Status: domain.StatusSucceeded},
			{Name: "compile", Status: domain.StatusSucceeded},
			{Name: "test", Status: domain.StatusFailed},
			{Name: "pack", Status: domain.StatusSkipped, Reason: domain.SkipUpstream},
		},
	}

	assert.False(t, r.Success())
	assert.Equal(t, 1, r.ExitCode())
	assert.Equal(t, []string{"test"}, r.Failed())
	assert.Equal(t, []string{"pack"}, r.Skipped())
	assert.Equal(t, []string{"restore", "compile"}, r.Succeeded())
	assert.Equal(t, 3*time.Second, r.Duration())

	o, ok := r.Outcome("pack")
	require.True(t, ok)
	assert.Equal(t, domain.SkipUpstream, o.Reason)

	ok2 := &domain.Report{Targets: []domain.Outcome{{Name: "a", Status: domain.StatusSkipped}}}
	assert.True(t, ok2.Success())
	assert.Equal(t, 0, ok2.ExitCode())
}

func TestReport_HaltedRunIsNotSuccessful(t *testing.T) {
	r := &domain.Report{Targets: []domain.Outcome{
		{Name: "compile", Status: domain.StatusSucceeded},
		{Name: "pack", Status: domain.StatusSkipped, Reason: domain.SkipHalted},
	}}

	assert.Empty(t, r.Failed())
	assert.False(t, r.Success())
	assert.Equal(t, 1, r.ExitCode())

	conditional := &domain.Report{Targets: []domain.Outcome{
		{Name: "publish", Status: domain.StatusSkipped, Reason: domain.SkipCondition},
		{Name: "notify", Status: domain.StatusSkipped, Reason: domain.SkipUpstream, Cause: "publish"},
	}}
	assert.True(t, conditional.Success())
}
