package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"testing/synctest"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rig/internal/app"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	loader   *mocks.MockConfigLoader
	executor *mocks.MockExecutor
	logger   *mocks.MockLogger
	history  *mocks.MockRunHistory
	metrics  *mocks.MockMetricsRecorder
	inspect  *mocks.MockArtifactInspector
	stderr   *bytes.Buffer
	app      *app.App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		loader:   mocks.NewMockConfigLoader(ctrl),
		executor: mocks.NewMockExecutor(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
		history:  mocks.NewMockRunHistory(ctrl),
		metrics:  mocks.NewMockMetricsRecorder(ctrl),
		inspect:  mocks.NewMockArtifactInspector(ctrl),
		stderr:   new(bytes.Buffer),
	}
	f.app = app.New(f.loader, f.executor, f.logger, f.history, f.metrics, f.inspect).
		WithOutput(io.Discard, f.stderr).
		WithTeaOptions(
			tea.WithInput(strings.NewReader("")),
			tea.WithOutput(io.Discard),
			tea.WithoutSignalHandler(),
			tea.WithoutRenderer(),
		)

	f.metrics.EXPECT().ObserveTarget(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	f.metrics.EXPECT().ObserveRun(gomock.Any(), gomock.Any()).AnyTimes()
	return f
}

// buildGraph declares restore <- compile <- test <- pack, all running commands.
func buildGraph(t *testing.T, root string) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	g.SetRoot(root)

	targets := []*domain.Target{
		{Name: domain.NewInternedString("restore"), Command: []string{"dotnet", "restore"}, WorkingDir: root},
		{
			Name: domain.NewInternedString("compile"), Command: []string{"dotnet", "build"}, WorkingDir: root,
			DependsOn: domain.DependsOn("restore"),
		},
		{
			Name: domain.NewInternedString("test"), Command: []string{"dotnet", "test"}, WorkingDir: root,
			DependsOn: domain.DependsOn("compile"),
		},
		{
			Name: domain.NewInternedString("pack"), Command: []string{"dotnet", "pack"}, WorkingDir: root,
			DependsOn: domain.DependsOn("test"),
			Produces:  []string{"artifacts/*.nupkg"},
		},
	}
	for _, tgt := range targets {
		require.NoError(t, g.AddTarget(tgt))
	}
	require.NoError(t, g.Validate())
	return g
}

func argsAre(args ...string) gomock.Matcher {
	return gomock.Cond(func(cmd domain.Command) bool {
		return strings.Join(cmd.Args, " ") == strings.Join(args, " ")
	})
}

func TestApp_Run_Success(t *testing.T) {
	for _, mode := range []string{"linear", "tui"} {
		t.Run(mode, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				f := newFixture(t)
				root := t.TempDir()
				g := buildGraph(t, root)

				f.loader.EXPECT().Load(".").Return(g, nil)
				gomock.InOrder(
					f.executor.EXPECT().Execute(gomock.Any(), argsAre("dotnet", "restore"), gomock.Any(), gomock.Any()).Return(nil),
					f.executor.EXPECT().Execute(gomock.Any(), argsAre("dotnet", "build"), gomock.Any(), gomock.Any()).Return(nil),
				)
				f.history.EXPECT().Put(root, gomock.Any()).Return(nil)

				report, err := f.app.Run(context.Background(), []string{"compile"}, app.RunOptions{OutputMode: mode})
				require.NoError(t, err)
				require.NotNil(t, report)

				assert.Equal(t, 0, report.ExitCode())
				assert.NotEmpty(t, report.RunID)
				assert.Equal(t, []string{"restore", "compile"}, report.Succeeded())
				if mode == "linear" {
					assert.Contains(t, f.stderr.String(), "Build succeeded")
				}
			})
		})
	}
}

func TestApp_Run_NoTargets(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(".").Return(buildGraph(t, t.TempDir()), nil)

	report, err := f.app.Run(context.Background(), nil, app.RunOptions{OutputMode: "linear"})
	require.ErrorIs(t, err, domain.ErrNoTargetsSpecified)
	assert.Nil(t, report)
}

func TestApp_Run_ConfigLoaderError(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load("build").Return(nil, domain.ErrConfigNotFound)

	_, err := f.app.Run(context.Background(), []string{"compile"}, app.RunOptions{Dir: "build"})
	require.ErrorIs(t, err, domain.ErrConfigNotFound)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestApp_Run_UnknownTarget(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(".").Return(buildGraph(t, t.TempDir()), nil)

	_, err := f.app.Run(context.Background(), []string{"deploy"}, app.RunOptions{OutputMode: "linear"})
	require.ErrorIs(t, err, domain.ErrUnresolvableTarget)
}

func TestApp_Run_BuildFailed(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		root := t.TempDir()
		metricsFile := filepath.Join(root, "rig.prom")

		f.loader.EXPECT().Load(".").Return(buildGraph(t, root), nil)
		f.executor.EXPECT().Execute(gomock.Any(), argsAre("dotnet", "restore"), gomock.Any(), gomock.Any()).Return(nil)
		f.executor.EXPECT().Execute(gomock.Any(), argsAre("dotnet", "build"), gomock.Any(), gomock.Any()).Return(nil)
		f.executor.EXPECT().Execute(gomock.Any(), argsAre("dotnet", "test"), gomock.Any(), gomock.Any()).
			Return(errors.New("exit status 1"))
		f.history.EXPECT().Put(root, gomock.Any()).Return(nil)
		f.metrics.EXPECT().Export(metricsFile).Return(nil)

		report, err := f.app.Run(context.Background(), []string{"pack"}, app.RunOptions{
			OutputMode:  "linear",
			MetricsFile: metricsFile,
		})
		require.ErrorIs(t, err, domain.ErrBuildFailed)
		require.NotNil(t, report)

		assert.Equal(t, 1, report.ExitCode())
		assert.Equal(t, []string{"test"}, report.Failed())
		assert.Equal(t, []string{"pack"}, report.Skipped())
		assert.Contains(t, f.stderr.String(), "Build failed")
	})
}

func TestApp_Run_Satisfied(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		root := t.TempDir()

		f.loader.EXPECT().Load(".").Return(buildGraph(t, root), nil)
		f.executor.EXPECT().Execute(gomock.Any(), argsAre("dotnet", "test"), gomock.Any(), gomock.Any()).Return(nil)

		report, err := f.app.Run(context.Background(), []string{"test"}, app.RunOptions{
			OutputMode: "linear",
			Satisfied:  []string{"compile"},
			NoHistory:  true,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"test"}, report.Succeeded())
	})
}

func TestApp_Run_RecordingFailuresWarn(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		root := t.TempDir()

		f.loader.EXPECT().Load(".").Return(buildGraph(t, root), nil)
		f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		f.history.EXPECT().Put(root, gomock.Any()).Return(domain.ErrStoreWriteFailed)
		f.metrics.EXPECT().Export("out.prom").Return(domain.ErrMetricsWriteFailed)
		f.logger.EXPECT().Warn(gomock.Any()).Times(2)

		report, err := f.app.Run(context.Background(), []string{"restore"}, app.RunOptions{
			OutputMode:  "linear",
			MetricsFile: "out.prom",
		})
		require.NoError(t, err, "recording never changes the outcome")
		assert.Equal(t, 0, report.ExitCode())
	})
}

func TestApp_Run_RequirementFailed(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		root := t.TempDir()

		g := domain.NewGraph()
		g.SetRoot(root)
		require.NoError(t, g.AddTarget(&domain.Target{
			Name:    domain.NewInternedString("push"),
			Command: []string{"dotnet", "nuget", "push"},
			Requirements: []domain.Requirement{{
				Description: "NUGET_API_KEY is set",
				Check: func(context.Context, *domain.BuildContext) error {
					return errors.New("variable is not set")
				},
			}},
		}))
		require.NoError(t, g.Validate())

		f.loader.EXPECT().Load(".").Return(g, nil)

		report, err := f.app.Run(context.Background(), []string{"push"}, app.RunOptions{OutputMode: "linear"})
		require.ErrorIs(t, err, domain.ErrRequirementFailed)
		assert.Nil(t, report)
	})
}

func TestApp_Run_WarnsOnArtifactContracts(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		root := t.TempDir()

		g := domain.NewGraph()
		g.SetRoot(root)
		require.NoError(t, g.AddTarget(&domain.Target{
			Name:     domain.NewInternedString("publish"),
			Consumes: []string{"artifacts/*.nupkg"},
		}))
		require.NoError(t, g.Validate())

		f.loader.EXPECT().Load(".").Return(g, nil)
		f.logger.EXPECT().Warn(gomock.Cond(func(msg string) bool {
			return strings.HasPrefix(msg, "publish:")
		}))

		report, err := f.app.Run(context.Background(), []string{"publish"}, app.RunOptions{
			OutputMode: "linear",
			NoHistory:  true,
		})
		require.NoError(t, err, "artifact contracts never fail a run")
		assert.Equal(t, []string{"publish"}, report.Succeeded())
	})
}

func TestApp_Run_InspectsProducedArtifacts(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		root := t.TempDir()

		f.loader.EXPECT().Load(".").Return(buildGraph(t, root), nil)
		f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(4)
		f.inspect.EXPECT().Inspect(root, []string{"artifacts/*.nupkg"}).Return(domain.ArtifactSet{
			Files:   []domain.ArtifactFile{{Path: "artifacts/App.1.0.0.nupkg", Digest: "00000000deadbeef", Size: 42}},
			Missing: []string{"artifacts/*.snupkg"},
		}, nil)
		f.logger.EXPECT().Warn(`pack: produced pattern "artifacts/*.snupkg" matched no files`)

		report, err := f.app.Run(context.Background(), []string{"pack"}, app.RunOptions{
			OutputMode: "linear",
			NoHistory:  true,
		})
		require.NoError(t, err, "missing artifacts never fail a run")

		pack, ok := report.Outcome("pack")
		require.True(t, ok)
		assert.Equal(t, "artifacts/App.1.0.0.nupkg", pack.Artifacts[0].Path)

		compile, _ := report.Outcome("compile")
		assert.Empty(t, compile.Artifacts)
	})
}

func TestApp_Plan(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(".").Return(buildGraph(t, t.TempDir()), nil)

	res, err := f.app.Plan(context.Background(), []string{"pack"}, app.PlanOptions{Satisfied: []string{"restore"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"compile", "test", "pack"}, res.Plan.Names())
	assert.Equal(t, []domain.ExpectedArtifact{{Target: "pack", Pattern: "artifacts/*.nupkg"}}, res.Artifacts)
	assert.Empty(t, res.Warnings)
}

func TestApp_List(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load("src").Return(buildGraph(t, t.TempDir()), nil)

	targets, err := f.app.List(context.Background(), "src")
	require.NoError(t, err)

	names := make([]string, len(targets))
	for i, tgt := range targets {
		names[i] = tgt.Name.String()
	}
	assert.Equal(t, []string{"restore", "compile", "test", "pack"}, names)
}

func TestApp_History(t *testing.T) {
	root := t.TempDir()
	one := &domain.Report{RunID: "one"}
	two := &domain.Report{RunID: "two"}

	tests := []struct {
		name   string
		opts   app.HistoryOptions
		expect func(f *fixture)
		want   []*domain.Report
	}{
		{
			name:   "list",
			opts:   app.HistoryOptions{Limit: 5},
			expect: func(f *fixture) { f.history.EXPECT().List(root, 5).Return([]*domain.Report{two, one}, nil) },
			want:   []*domain.Report{two, one},
		},
		{
			name:   "latest",
			opts:   app.HistoryOptions{RunID: "latest"},
			expect: func(f *fixture) { f.history.EXPECT().Latest(root).Return(two, nil) },
			want:   []*domain.Report{two},
		},
		{
			name:   "by id",
			opts:   app.HistoryOptions{RunID: "one"},
			expect: func(f *fixture) { f.history.EXPECT().Get(root, "one").Return(one, nil) },
			want:   []*domain.Report{one},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.loader.EXPECT().DiscoverRoot(".").Return(root, nil)
			tt.expect(f)

			got, err := f.app.History(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApp_History_NotFound(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().DiscoverRoot(".").Return("/repo", nil)
	f.history.EXPECT().Get("/repo", "missing").Return(nil, domain.ErrRunNotFound)

	_, err := f.app.History(context.Background(), app.HistoryOptions{RunID: "missing"})
	require.ErrorIs(t, err, domain.ErrRunNotFound)
}
