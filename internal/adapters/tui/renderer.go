package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/rig/internal/core/domain"
)

// Renderer drives the Bubble Tea model as a ports.Renderer.
type Renderer struct {
	program *tea.Program
	model   *Model
	errCh   chan error
}

// NewRenderer creates a renderer for model.
func NewRenderer(model *Model, opts ...tea.ProgramOption) *Renderer {
	return &Renderer{
		program: tea.NewProgram(model, opts...),
		model:   model,
		errCh:   make(chan error, 1),
	}
}

// Start runs the program in the background.
func (r *Renderer) Start(_ context.Context) error {
	go func() {
		_, err := r.program.Run()
		r.errCh <- err
	}()
	return nil
}

// Stop asks the program to quit.
func (r *Renderer) Stop() error {
	r.program.Quit()
	return nil
}

// Wait blocks until the program has exited.
func (r *Renderer) Wait() error {
	return <-r.errCh
}

// OnPlanEmit forwards the plan to the model.
func (r *Renderer) OnPlanEmit(targets []string, deps map[string][]string, requested []string) {
	r.program.Send(MsgInitTargets{Targets: targets, Dependencies: deps, Requested: requested})
}

// OnTargetStart forwards a target start.
func (r *Renderer) OnTargetStart(spanID, parentID, name string, startTime time.Time) {
	r.program.Send(MsgTargetStart{SpanID: spanID, ParentID: parentID, Name: name, StartTime: startTime})
}

// OnTargetLog forwards target output.
func (r *Renderer) OnTargetLog(spanID string, data []byte) {
	r.program.Send(MsgTargetLog{SpanID: spanID, Data: data})
}

// OnTargetComplete forwards a target result.
func (r *Renderer) OnTargetComplete(spanID string, endTime time.Time, err error) {
	r.program.Send(MsgTargetComplete{SpanID: spanID, EndTime: endTime, Err: err})
}

// OnRunComplete forwards the final report.
func (r *Renderer) OnRunComplete(report *domain.Report) {
	r.program.Send(MsgRunComplete{Report: report})
}

// Model returns the model driven by the renderer.
func (r *Renderer) Model() *Model {
	return r.model
}
