// Package app implements the application layer for rig.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/rig/internal/adapters/detector"
	"go.trai.ch/rig/internal/adapters/linear"
	"go.trai.ch/rig/internal/adapters/telemetry"
	"go.trai.ch/rig/internal/adapters/tui"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/core/ports"
	"go.trai.ch/rig/internal/engine/planner"
	"go.trai.ch/rig/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	executor     ports.Executor
	logger       ports.Logger
	history      ports.RunHistory
	metrics      ports.MetricsRecorder
	artifacts    ports.ArtifactInspector
	teaOptions   []tea.ProgramOption
	stdout       io.Writer
	stderr       io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	executor ports.Executor,
	log ports.Logger,
	history ports.RunHistory,
	metrics ports.MetricsRecorder,
	artifacts ports.ArtifactInspector,
) *App {
	return &App{
		configLoader: loader,
		executor:     executor,
		logger:       log,
		history:      history,
		metrics:      metrics,
		artifacts:    artifacts,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// WithTeaOptions adds bubbletea program options to the App.
// This is primarily used for testing to disable input/output.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// WithOutput redirects the linear renderer.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	// Dir is where the build definition lookup starts. Empty means ".".
	Dir               string
	Parallelism       int
	ContinueOnFailure bool
	// Satisfied names targets treated as already succeeded.
	Satisfied   []string
	OutputMode  string
	MetricsFile string
	NoHistory   bool
}

// Run executes the requested targets and returns the run report.
// The report is nil when the run never started: loading, planning and
// requirement failures return only an error.
//
//nolint:cyclop // orchestration function
func (a *App) Run(ctx context.Context, targetNames []string, opts RunOptions) (*domain.Report, error) {
	// 1. Load the graph
	graph, err := a.configLoader.Load(dirOrDefault(opts.Dir))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	// 2. Plan
	plan, err := planner.Plan(graph, targetNames, opts.Satisfied)
	if err != nil {
		return nil, err
	}
	a.warnContracts(graph, plan)

	// 3. Initialize Renderer
	mode := detector.ResolveMode(detector.DetectEnvironment(), opts.OutputMode)

	var renderer ports.Renderer
	if mode == detector.ModeTUI {
		model := tui.NewModel(os.Stderr)
		optsTea := append([]tea.ProgramOption{tea.WithContext(ctx)}, a.teaOptions...)
		renderer = tui.NewRenderer(model, optsTea...)
	} else {
		renderer = linear.NewRenderer(a.stdout, a.stderr)
	}

	// 4. Initialize Telemetry
	// Spans started by the tracer reach the renderer through the bridge.
	setupOTel(telemetry.NewBridge(renderer))
	tracer := telemetry.NewOTelTracer("rig").WithRenderer(renderer)

	// 5. Initialize Scheduler
	sched := scheduler.NewScheduler(a.executor, tracer, a.metrics)

	// 6. Run Renderer and Scheduler concurrently
	var report *domain.Report
	g, gctx := errgroup.WithContext(ctx)

	// Renderer Routine
	g.Go(func() error {
		if err := renderer.Start(gctx); err != nil {
			return err
		}
		// Wait blocks until the renderer has terminated.
		return renderer.Wait()
	})

	// Scheduler Routine
	g.Go(func() (runErr error) {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(a.stderr, "Scheduler panic: %v\n", r)
				runErr = errors.Join(domain.ErrBuildFailed, fmt.Errorf("scheduler panic: %v", r))
			}
			_ = renderer.Stop()
		}()

		rep, err := sched.Run(gctx, graph, plan, scheduler.Options{
			Parallelism:       opts.Parallelism,
			ContinueOnFailure: opts.ContinueOnFailure,
		})
		if rep != nil {
			a.inspectArtifacts(graph, rep)
			a.record(graph.Root(), rep, opts)
			renderer.OnRunComplete(rep)
			report = rep
		}
		return err
	})

	return report, g.Wait()
}

// record persists the report and exports metrics. Neither affects the outcome.
func (a *App) record(root string, report *domain.Report, opts RunOptions) {
	if report.RunID == "" {
		if id, err := uuid.NewV7(); err == nil {
			report.RunID = id.String()
		}
	}

	if !opts.NoHistory && a.history != nil {
		if err := a.history.Put(root, report); err != nil {
			a.logger.Warn(fmt.Sprintf("run history not saved: %v", err))
		}
	}

	if opts.MetricsFile != "" && a.metrics != nil {
		if err := a.metrics.Export(opts.MetricsFile); err != nil {
			a.logger.Warn(fmt.Sprintf("metrics not exported: %v", err))
		}
	}
}

// inspectArtifacts attaches the files each succeeded target produced to its
// outcome and warns about produced patterns that matched nothing.
func (a *App) inspectArtifacts(graph *domain.Graph, report *domain.Report) {
	if a.artifacts == nil {
		return
	}

	for i := range report.Targets {
		o := &report.Targets[i]
		if o.Status != domain.StatusSucceeded {
			continue
		}
		t, ok := graph.Target(domain.NewInternedString(o.Name))
		if !ok || len(t.Produces) == 0 {
			continue
		}

		set, err := a.artifacts.Inspect(graph.Root(), t.Produces)
		if err != nil {
			a.logger.Warn(fmt.Sprintf("%s: artifacts not inspected: %v", o.Name, err))
			continue
		}
		for _, pattern := range set.Missing {
			a.logger.Warn(fmt.Sprintf("%s: produced pattern %q matched no files", o.Name, pattern))
		}
		o.Artifacts = set.Files
	}
}

func (a *App) warnContracts(graph *domain.Graph, plan *domain.Plan) {
	for _, w := range domain.NewArtifactTracker(graph).CheckPlan(plan) {
		a.logger.Warn(w.String())
	}
}

// PlanOptions configuration for the Plan method.
type PlanOptions struct {
	Dir       string
	Satisfied []string
}

// PlanResult describes what a run would execute.
type PlanResult struct {
	Plan      *domain.Plan
	Artifacts []domain.ExpectedArtifact
	Warnings  []domain.ContractWarning
}

// Plan computes the execution plan for the requested targets without running it.
func (a *App) Plan(_ context.Context, targetNames []string, opts PlanOptions) (*PlanResult, error) {
	graph, err := a.configLoader.Load(dirOrDefault(opts.Dir))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	plan, err := planner.Plan(graph, targetNames, opts.Satisfied)
	if err != nil {
		return nil, err
	}

	tracker := domain.NewArtifactTracker(graph)
	return &PlanResult{
		Plan:      plan,
		Artifacts: tracker.Expected(plan),
		Warnings:  tracker.CheckPlan(plan),
	}, nil
}

// List returns every declared target in declaration order.
func (a *App) List(_ context.Context, dir string) ([]*domain.Target, error) {
	graph, err := a.configLoader.Load(dirOrDefault(dir))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	var targets []*domain.Target
	for t := range graph.Targets() {
		targets = append(targets, t)
	}
	return targets, nil
}

// HistoryOptions configuration for the History method.
type HistoryOptions struct {
	Dir string
	// RunID selects a single run. "latest" selects the most recent one.
	RunID string
	Limit int
}

// History returns recorded runs, newest first.
func (a *App) History(_ context.Context, opts HistoryOptions) ([]*domain.Report, error) {
	root, err := a.configLoader.DiscoverRoot(dirOrDefault(opts.Dir))
	if err != nil {
		return nil, err
	}

	switch opts.RunID {
	case "":
		return a.history.List(root, opts.Limit)
	case "latest":
		report, err := a.history.Latest(root)
		if err != nil {
			return nil, err
		}
		return []*domain.Report{report}, nil
	default:
		report, err := a.history.Get(root, opts.RunID)
		if err != nil {
			return nil, err
		}
		return []*domain.Report{report}, nil
	}
}

func dirOrDefault(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

// setupOTel configures the OpenTelemetry SDK with the renderer bridge.
func setupOTel(bridge *telemetry.Bridge) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(bridge),
	)

	// Register it as the global provider.
	otel.SetTracerProvider(tp)
}
