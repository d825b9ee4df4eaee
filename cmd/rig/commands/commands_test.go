package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rig/cmd/rig/commands"
	"go.trai.ch/rig/internal/app"
	"go.trai.ch/rig/internal/build"
	"go.trai.ch/rig/internal/core/domain"
)

type mockApp struct {
	runFunc     func(ctx context.Context, targetNames []string, opts app.RunOptions) (*domain.Report, error)
	planFunc    func(ctx context.Context, targetNames []string, opts app.PlanOptions) (*app.PlanResult, error)
	listFunc    func(ctx context.Context, dir string) ([]*domain.Target, error)
	historyFunc func(ctx context.Context, opts app.HistoryOptions) ([]*domain.Report, error)
}

func (m *mockApp) Run(ctx context.Context, targetNames []string, opts app.RunOptions) (*domain.Report, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, targetNames, opts)
	}
	return &domain.Report{}, nil
}

func (m *mockApp) Plan(ctx context.Context, targetNames []string, opts app.PlanOptions) (*app.PlanResult, error) {
	if m.planFunc != nil {
		return m.planFunc(ctx, targetNames, opts)
	}
	return &app.PlanResult{Plan: &domain.Plan{}}, nil
}

func (m *mockApp) List(ctx context.Context, dir string) ([]*domain.Target, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, dir)
	}
	return nil, nil
}

func (m *mockApp) History(ctx context.Context, opts app.HistoryOptions) ([]*domain.Report, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, opts)
	}
	return nil, nil
}

func execute(t *testing.T, a commands.Application, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(a)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return buf.String(), err
}

func TestCommands_Run(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var capturedOpts app.RunOptions
		var capturedTargets []string

		mock := &mockApp{
			runFunc: func(_ context.Context, targetNames []string, opts app.RunOptions) (*domain.Report, error) {
				capturedOpts = opts
				capturedTargets = targetNames
				return &domain.Report{}, nil
			},
		}

		_, err := execute(t, mock,
			"-C", "src", "run", "pack", "push",
			"-p", "4", "--continue", "--skip", "restore,compile",
			"--ci", "--metrics-file", "rig.prom", "--no-history")
		require.NoError(t, err)

		assert.Equal(t, []string{"pack", "push"}, capturedTargets)
		assert.Equal(t, app.RunOptions{
			Dir:               "src",
			Parallelism:       4,
			ContinueOnFailure: true,
			Satisfied:         []string{"restore", "compile"},
			OutputMode:        "linear",
			MetricsFile:       "rig.prom",
			NoHistory:         true,
		}, capturedOpts)
	})

	t.Run("defaults to sequential runs", func(t *testing.T) {
		var capturedOpts app.RunOptions
		mock := &mockApp{
			runFunc: func(_ context.Context, _ []string, opts app.RunOptions) (*domain.Report, error) {
				capturedOpts = opts
				return &domain.Report{}, nil
			},
		}

		_, err := execute(t, mock, "run", "compile")
		require.NoError(t, err)
		assert.Equal(t, 1, capturedOpts.Parallelism)
		assert.False(t, capturedOpts.ContinueOnFailure)
		assert.Equal(t, "auto", capturedOpts.OutputMode)
	})

	t.Run("returns error on run failure", func(t *testing.T) {
		mock := &mockApp{
			runFunc: func(_ context.Context, _ []string, _ app.RunOptions) (*domain.Report, error) {
				return nil, errors.New("simulated error")
			},
		}

		_, err := execute(t, mock, "run", "target")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})

	t.Run("shows usage when no targets provided", func(t *testing.T) {
		mock := &mockApp{
			runFunc: func(_ context.Context, _ []string, _ app.RunOptions) (*domain.Report, error) {
				panic("should not be called")
			},
		}

		out, err := execute(t, mock, "run")
		require.NoError(t, err)
		assert.Contains(t, out, "Usage:")
	})
}

func TestCommands_Plan(t *testing.T) {
	compile := &domain.Target{Name: domain.NewInternedString("compile")}
	pack := &domain.Target{Name: domain.NewInternedString("pack")}

	var capturedOpts app.PlanOptions
	mock := &mockApp{
		planFunc: func(_ context.Context, targetNames []string, opts app.PlanOptions) (*app.PlanResult, error) {
			capturedOpts = opts
			assert.Equal(t, []string{"pack"}, targetNames)
			return &app.PlanResult{
				Plan: &domain.Plan{
					Satisfied: domain.NewInternedStrings([]string{"restore"}),
					Steps: []domain.Step{
						{Target: compile},
						{Target: pack, Deps: domain.NewInternedStrings([]string{"compile"})},
					},
				},
				Artifacts: []domain.ExpectedArtifact{{Target: "pack", Pattern: "artifacts/packages/*.nupkg"}},
				Warnings:  []domain.ContractWarning{{Target: "pack", Message: "consumes nothing produced"}},
			}, nil
		},
	}

	out, err := execute(t, mock, "plan", "pack", "--skip", "restore")
	require.NoError(t, err)

	assert.Equal(t, []string{"restore"}, capturedOpts.Satisfied)
	assert.Contains(t, out, "1. compile")
	assert.Contains(t, out, "2. pack")
	assert.Contains(t, out, "Satisfied restore")
	assert.Contains(t, out, "artifacts/packages/*.nupkg")
	assert.Contains(t, out, "pack: consumes nothing produced")
}

func TestCommands_Plan_RequiresTargets(t *testing.T) {
	_, err := execute(t, &mockApp{}, "plan")
	require.Error(t, err)
}

func TestCommands_List(t *testing.T) {
	mock := &mockApp{
		listFunc: func(_ context.Context, dir string) ([]*domain.Target, error) {
			assert.Equal(t, "build", dir)
			return []*domain.Target{
				{Name: domain.NewInternedString("restore"), Description: "Restore packages"},
				{
					Name:        domain.NewInternedString("push"),
					DependsOn:   domain.DependsOn("pack"),
					Consumes:    []string{"target:pack"},
					WhenSkipped: domain.PolicyExecute,
				},
			}, nil
		},
	}

	out, err := execute(t, mock, "list", "-C", "build")
	require.NoError(t, err)
	assert.Contains(t, out, "Restore packages")
	assert.Contains(t, out, "depends on: pack")
	assert.Contains(t, out, "consumes: target:pack")
	assert.Contains(t, out, "when skipped: execute")
}

func TestCommands_History(t *testing.T) {
	started := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	report := &domain.Report{
		RunID:       "0192",
		Fingerprint: "abc",
		Requested:   []string{"pack"},
		Started:     started,
		Finished:    started.Add(2 * time.Second),
		Targets: []domain.Outcome{
			{Name: "compile", Status: domain.StatusFailed, Error: "exit status 1"},
			{Name: "pack", Status: domain.StatusSkipped, Reason: domain.SkipUpstream, Cause: "compile"},
		},
	}

	tests := []struct {
		name     string
		args     []string
		wantOpts app.HistoryOptions
		want     []string
	}{
		{
			name:     "latest by default",
			args:     []string{"history"},
			wantOpts: app.HistoryOptions{RunID: "latest"},
			want:     []string{"Run 0192", "exit status 1", "compile"},
		},
		{
			name:     "by id",
			args:     []string{"history", "0192"},
			wantOpts: app.HistoryOptions{RunID: "0192"},
			want:     []string{"fingerprint: abc"},
		},
		{
			name:     "list",
			args:     []string{"history", "-n", "3"},
			wantOpts: app.HistoryOptions{Limit: 3},
			want:     []string{"0192", "failed", "[pack]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockApp{
				historyFunc: func(_ context.Context, opts app.HistoryOptions) ([]*domain.Report, error) {
					assert.Equal(t, tt.wantOpts, opts)
					return []*domain.Report{report}, nil
				},
			}

			out, err := execute(t, mock, tt.args...)
			require.NoError(t, err)
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestCommands_History_Error(t *testing.T) {
	mock := &mockApp{
		historyFunc: func(context.Context, app.HistoryOptions) ([]*domain.Report, error) {
			return nil, domain.ErrNoHistory
		},
	}

	_, err := execute(t, mock, "history")
	require.ErrorIs(t, err, domain.ErrNoHistory)
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, &mockApp{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, build.Version)
}
