// Package scheduler executes a plan with a bounded worker pool.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options configure a single run.
type Options struct {
	// Parallelism bounds how many target bodies run at once. Values below 1 mean 1.
	Parallelism int
	// ContinueOnFailure keeps starting independent targets after a failure.
	// When false, no new target starts once one has failed, except targets
	// reached from a failed or skipped dependency through an Execute edge.
	ContinueOnFailure bool
}

// Scheduler manages the execution of planned targets.
type Scheduler struct {
	executor ports.Executor
	tracer   ports.Tracer
	metrics  ports.MetricsRecorder

	mu           sync.RWMutex
	targetStatus map[domain.InternedString]domain.Status
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	executor ports.Executor,
	tracer ports.Tracer,
	metrics ports.MetricsRecorder,
) *Scheduler {
	return &Scheduler{
		executor:     executor,
		tracer:       tracer,
		metrics:      metrics,
		targetStatus: make(map[domain.InternedString]domain.Status),
	}
}

// Status returns the status of name in the current or last run.
// Targets that were never part of a run report NotRun.
func (s *Scheduler) Status(name domain.InternedString) domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.targetStatus[name]; ok {
		return st
	}
	return domain.StatusNotRun
}

// initTargetStatuses resets the status table for a new run.
// Satisfied targets count as succeeded.
func (s *Scheduler) initTargetStatuses(plan *domain.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.targetStatus = make(map[domain.InternedString]domain.Status, len(plan.Steps)+len(plan.Satisfied))
	for _, name := range plan.Satisfied {
		s.targetStatus[name] = domain.StatusSucceeded
	}
	for _, step := range plan.Steps {
		s.targetStatus[step.Target.Name] = domain.StatusNotRun
	}
}

// updateStatus moves name to status, rejecting transitions the state machine forbids.
func (s *Scheduler) updateStatus(name domain.InternedString, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := domain.Transition(s.targetStatus[name], status)
	if err != nil {
		return zerr.With(err, "target", name.String())
	}
	s.targetStatus[name] = next
	return nil
}

// Run executes plan over graph and returns the report of every planned target
// in plan order.
//
// Requirements of all planned targets are checked before anything runs; a
// failing requirement aborts the run with domain.ErrRequirementFailed and no
// report. Otherwise the returned error joins domain.ErrBuildFailed with every
// target failure, plus the context error if the run was cancelled.
func (s *Scheduler) Run(
	ctx context.Context,
	graph *domain.Graph,
	plan *domain.Plan,
	opts Options,
) (*domain.Report, error) {
	requested := make([]string, len(plan.Requested))
	for i, name := range plan.Requested {
		requested[i] = name.String()
	}

	s.tracer.EmitPlan(ctx, plan.Names(), plan.Dependencies(), requested)
	s.initTargetStatuses(plan)

	state := s.newRunState(ctx, graph, plan, opts)

	if err := state.checkRequirements(); err != nil {
		return nil, err
	}

	report := &domain.Report{
		Fingerprint: plan.Fingerprint(),
		Requested:   requested,
		Started:     time.Now(),
	}

	err := state.runExecutionLoop()

	report.Finished = time.Now()
	report.Targets = state.outcomesInPlanOrder()

	if s.metrics != nil {
		s.metrics.ObserveRun(report.Success(), report.Duration())
	}

	if err != nil {
		return report, errors.Join(domain.ErrBuildFailed, err)
	}
	return report, nil
}

type result struct {
	target   domain.InternedString
	err      error
	started  time.Time
	duration time.Duration
	summary  []domain.SummaryEntry
}

type schedulerRunState struct {
	s           *Scheduler
	ctx         context.Context
	cancelled   <-chan struct{}
	graph       *domain.Graph
	plan        *domain.Plan
	scope       *domain.RunScope
	parallelism int
	continueOn  bool

	position  map[domain.InternedString]int
	steps     map[domain.InternedString]*domain.Step
	followers map[domain.InternedString][]domain.InternedString
	waiting   map[domain.InternedString]int
	blockedBy map[domain.InternedString]domain.InternedString
	// runsAnyway marks targets with a failed or skipped dependency whose
	// edge policy is Execute. They still start after a halt.
	runsAnyway map[domain.InternedString]bool
	admitted   map[domain.InternedString]bool

	ready     []domain.InternedString
	active    int
	halted    bool
	aborted   bool
	resultsCh chan result
	outcomes  map[domain.InternedString]*domain.Outcome
	errs      error
}

func (s *Scheduler) newRunState(
	ctx context.Context,
	graph *domain.Graph,
	plan *domain.Plan,
	opts Options,
) *schedulerRunState {
	parallelism := max(opts.Parallelism, 1)
	count := len(plan.Steps)

	state := &schedulerRunState{
		s:           s,
		ctx:         ctx,
		cancelled:   ctx.Done(),
		graph:       graph,
		plan:        plan,
		parallelism: parallelism,
		continueOn:  opts.ContinueOnFailure,
		position:    make(map[domain.InternedString]int, count),
		steps:       make(map[domain.InternedString]*domain.Step, count),
		followers:   make(map[domain.InternedString][]domain.InternedString, count),
		waiting:     make(map[domain.InternedString]int, count),
		blockedBy:   make(map[domain.InternedString]domain.InternedString),
		runsAnyway:  make(map[domain.InternedString]bool),
		admitted:    make(map[domain.InternedString]bool, count),
		resultsCh:   make(chan result, parallelism),
		outcomes:    make(map[domain.InternedString]*domain.Outcome, count),
	}

	scheduled := make([]domain.InternedString, 0, count)
	for i := range plan.Steps {
		step := &plan.Steps[i]
		name := step.Target.Name
		state.position[name] = i
		state.steps[name] = step
		scheduled = append(scheduled, name)

		// Advisory predecessors are waited for like hard dependencies but never
		// propagate their failure.
		preds := append(slices.Clone(step.Deps), step.After...)
		state.waiting[name] = len(preds)
		for _, pred := range preds {
			state.followers[pred] = append(state.followers[pred], name)
		}
	}

	state.scope = &domain.RunScope{
		Root:       graph.Root(),
		Parameters: graph.Parameters(),
		Scheduled:  scheduled,
		Exec:       s.executor.Execute,
		Status:     s.Status,
	}
	return state
}

// checkRequirements evaluates every requirement of every planned target.
func (state *schedulerRunState) checkRequirements() error {
	for _, step := range state.plan.Steps {
		t := step.Target
		for _, req := range t.Requirements {
			if req.Check == nil {
				continue
			}
			bc := state.scope.ContextFor(t, io.Discard, io.Discard)
			if err := req.Check(state.ctx, bc); err != nil {
				msg := fmt.Sprintf("requirement of target %q not met: %s", t.Name.String(), req.Description)
				wrapped := zerr.Wrap(errors.Join(domain.ErrRequirementFailed, err), msg)
				return zerr.With(wrapped, "target", t.Name.String())
			}
		}
	}
	return nil
}

func (state *schedulerRunState) runExecutionLoop() error {
	// Roots are collected first: skipping one releases its followers, which
	// admits them on the spot.
	var roots []domain.InternedString
	for _, step := range state.plan.Steps {
		if state.waiting[step.Target.Name] == 0 {
			roots = append(roots, step.Target.Name)
		}
	}
	for _, name := range roots {
		state.admit(name)
	}

	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.cancelled:
			state.cancelled = nil
			state.aborted = true
			state.halt()
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}

	// Targets can only be left over if their predecessors never settled.
	for _, step := range state.plan.Steps {
		if _, ok := state.outcomes[step.Target.Name]; !ok {
			state.skip(step.Target.Name, domain.SkipHalted, "")
		}
	}

	return state.errs
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

// admit decides the fate of a target whose predecessors all reached a terminal state.
func (state *schedulerRunState) admit(name domain.InternedString) {
	if state.admitted[name] {
		return
	}
	state.admitted[name] = true

	if cause, ok := state.blockedBy[name]; ok {
		state.skip(name, domain.SkipUpstream, cause.String())
		return
	}
	if state.halted && !state.exempt(name) {
		state.skip(name, domain.SkipHalted, "")
		return
	}

	t := state.steps[name].Target
	bc := state.scope.ContextFor(t, io.Discard, io.Discard)
	for _, cond := range t.Conditions {
		if cond.Check != nil && !cond.Check(bc) {
			state.skip(name, domain.SkipCondition, cond.Description)
			return
		}
	}

	idx, _ := slices.BinarySearchFunc(state.ready, state.position[name], func(n domain.InternedString, pos int) int {
		return state.position[n] - pos
	})
	state.ready = slices.Insert(state.ready, idx, name)
}

func (state *schedulerRunState) schedule() {
	if !state.aborted && state.ctx.Err() != nil {
		state.cancelled = nil
		state.aborted = true
		state.halt()
	}

	for len(state.ready) > 0 && state.active < state.parallelism {
		name := state.ready[0]
		state.ready = state.ready[1:]

		if err := state.s.updateStatus(name, domain.StatusRunning); err != nil {
			state.errs = errors.Join(state.errs, err)
			continue
		}
		state.active++

		go state.executeTarget(state.steps[name].Target)
	}
}

func (state *schedulerRunState) executeTarget(t *domain.Target) {
	// The span is ended before the result is sent so that renderers observe
	// completion before the loop can finish.
	res := func() result {
		ctx, span := state.s.tracer.Start(state.ctx, t.Name.String())
		defer span.End()

		if t.Description != "" {
			span.SetAttribute("rig.description", t.Description)
		}

		bc := state.scope.ContextFor(t, span, span)
		started := time.Now()
		err := t.Run(ctx, bc)
		if err != nil {
			span.RecordError(err)
		}

		return result{
			target:   t.Name,
			err:      err,
			started:  started,
			duration: time.Since(started),
			summary:  bc.Summary(),
		}
	}()

	state.resultsCh <- res
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--

	outcome := &domain.Outcome{
		Name:     res.target.String(),
		Started:  res.started,
		Duration: res.duration,
		Summary:  res.summary,
	}

	status := domain.StatusSucceeded
	if res.err != nil {
		status = domain.StatusFailed
		failure := zerr.With(&domain.TargetExecutionError{Target: res.target.String(), Err: res.err}, "target", res.target.String())
		outcome.Err = failure
		outcome.Error = res.err.Error()
		state.errs = errors.Join(state.errs, failure)
	}
	outcome.Status = status

	if err := state.s.updateStatus(res.target, status); err != nil {
		state.errs = errors.Join(state.errs, err)
	}
	state.outcomes[res.target] = outcome
	state.observe(res.target, status, res.duration)

	if status == domain.StatusFailed && !state.continueOn {
		state.halt()
	}
	state.release(res.target, status)
}

// halt stops starting new targets. Queued targets are skipped, running ones
// finish. Unless the run was cancelled, targets that must run after a failed or
// skipped dependency stay queued.
func (state *schedulerRunState) halt() {
	state.halted = true
	queued := state.ready
	state.ready = nil
	for _, name := range queued {
		if state.exempt(name) {
			state.ready = append(state.ready, name)
			continue
		}
		state.skip(name, domain.SkipHalted, "")
	}
}

// exempt reports whether name may still start after a halt.
func (state *schedulerRunState) exempt(name domain.InternedString) bool {
	return !state.aborted && state.runsAnyway[name]
}

func (state *schedulerRunState) skip(name domain.InternedString, reason domain.SkipReason, cause string) {
	if err := state.s.updateStatus(name, domain.StatusSkipped); err != nil {
		state.errs = errors.Join(state.errs, err)
	}
	state.outcomes[name] = &domain.Outcome{
		Name:   name.String(),
		Status: domain.StatusSkipped,
		Reason: reason,
		Cause:  cause,
	}
	state.observe(name, domain.StatusSkipped, 0)
	state.release(name, domain.StatusSkipped)
}

// release notifies followers that name reached a terminal state.
func (state *schedulerRunState) release(name domain.InternedString, status domain.Status) {
	for _, follower := range state.followers[name] {
		step := state.steps[follower]
		if status != domain.StatusSucceeded && slices.Contains(step.Deps, name) {
			if step.Target.EdgePolicy(name) == domain.PolicyExecute {
				state.runsAnyway[follower] = true
			} else if _, blocked := state.blockedBy[follower]; !blocked {
				state.blockedBy[follower] = name
			}
		}

		state.waiting[follower]--
		if state.waiting[follower] == 0 {
			state.admit(follower)
		}
	}
}

func (state *schedulerRunState) observe(name domain.InternedString, status domain.Status, d time.Duration) {
	if state.s.metrics != nil {
		state.s.metrics.ObserveTarget(name.String(), status, d)
	}
}

func (state *schedulerRunState) outcomesInPlanOrder() []domain.Outcome {
	out := make([]domain.Outcome, 0, len(state.plan.Steps))
	for _, step := range state.plan.Steps {
		out = append(out, *state.outcomes[step.Target.Name])
	}
	return out
}
