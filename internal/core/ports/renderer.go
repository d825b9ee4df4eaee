package ports

import (
	"context"
	"time"

	"go.trai.ch/rig/internal/core/domain"
)

// Renderer is the abstraction for output rendering.
// It decouples telemetry collection from presentation logic,
// allowing the same event stream to drive either a rich TUI or linear CI logs.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer and begins its lifecycle.
	// For asynchronous renderers (like TUI), this may launch background goroutines.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting new events and prepare for shutdown.
	// It should flush any buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	// For synchronous renderers, this may return immediately.
	Wait() error

	// OnPlanEmit is called when the scheduler has received the plan.
	// targets: every planned target in plan order
	// deps: dependency map (target -> list of hard dependencies in the plan)
	// requested: the user-requested targets
	OnPlanEmit(targets []string, deps map[string][]string, requested []string)

	// OnTargetStart is called when a target begins execution.
	OnTargetStart(spanID, parentID, name string, startTime time.Time)

	// OnTargetLog is called when a target emits output.
	// data may contain partial lines or ANSI sequences.
	OnTargetLog(spanID string, data []byte)

	// OnTargetComplete is called when a target finishes execution.
	// err is nil if successful.
	OnTargetComplete(spanID string, endTime time.Time, err error)

	// OnRunComplete is called once with the final report of the run.
	OnRunComplete(report *domain.Report)
}
