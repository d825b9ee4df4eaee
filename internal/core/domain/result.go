package domain

import (
	"time"

	"go.trai.ch/zerr"
)

// Status is the per-run state of a target.
type Status string

const (
	// StatusNotRun indicates the target has not been started yet.
	StatusNotRun Status = "NotRun"
	// StatusRunning indicates the target body is executing.
	StatusRunning Status = "Running"
	// StatusSucceeded indicates the target body completed.
	StatusSucceeded Status = "Succeeded"
	// StatusFailed indicates the target body signaled failure.
	StatusFailed Status = "Failed"
	// StatusSkipped indicates the target body was never invoked.
	StatusSkipped Status = "Skipped"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

var allowedTransitions = map[Status][]Status{
	StatusNotRun:  {StatusRunning, StatusSkipped},
	StatusRunning: {StatusSucceeded, StatusFailed},
}

// Transition validates a status change and returns the new status.
func Transition(from, to Status) (Status, error) {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return to, nil
		}
	}
	err := zerr.With(zerr.Wrap(ErrInvalidTransition, string(from)+" -> "+string(to)), "from", string(from))
	return from, zerr.With(err, "to", string(to))
}

// SkipReason explains why a target ended Skipped.
type SkipReason string

const (
	// SkipNone is used for targets that were not skipped.
	SkipNone SkipReason = ""
	// SkipUpstream means a hard dependency failed or was skipped and the edge policy is skip.
	SkipUpstream SkipReason = "upstream"
	// SkipCondition means an only-when condition of the target evaluated to false.
	SkipCondition SkipReason = "condition"
	// SkipHalted means the run stopped before the target could start.
	SkipHalted SkipReason = "halted"
)

// Outcome is the terminal result of one planned target.
type Outcome struct {
	Name     string         `json:"name"`
	Status   Status         `json:"status"`
	Reason   SkipReason     `json:"reason,omitempty"`
	Cause    string         `json:"cause,omitempty"`
	Error    string         `json:"error,omitempty"`
	Started  time.Time      `json:"started,omitzero"`
	Duration time.Duration  `json:"duration,omitzero"`
	Summary  []SummaryEntry `json:"summary,omitempty"`
	// Artifacts are the files found for the target's produced patterns.
	Artifacts []ArtifactFile `json:"artifacts,omitempty"`

	Err error `json:"-"`
}

// Report is the aggregate result of a run. Targets follow plan order.
type Report struct {
	RunID       string    `json:"run_id"`
	Fingerprint string    `json:"fingerprint"`
	Requested   []string  `json:"requested"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished"`
	Targets     []Outcome `json:"targets"`
}

// Success reports whether no planned target failed and the run was not
// halted before every target could start.
func (r *Report) Success() bool {
	for _, o := range r.Targets {
		if o.Status == StatusFailed || (o.Status == StatusSkipped && o.Reason == SkipHalted) {
			return false
		}
	}
	return true
}

// ExitCode returns 0 for a successful run and 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Success() {
		return 0
	}
	return 1
}

// Failed returns the names of failed targets in plan order.
func (r *Report) Failed() []string {
	return r.filter(StatusFailed)
}

// Skipped returns the names of skipped targets in plan order.
func (r *Report) Skipped() []string {
	return r.filter(StatusSkipped)
}

// Succeeded returns the names of succeeded targets in plan order.
func (r *Report) Succeeded() []string {
	return r.filter(StatusSucceeded)
}

// Outcome returns the outcome recorded for name.
func (r *Report) Outcome(name string) (Outcome, bool) {
	for _, o := range r.Targets {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// Duration returns the wall-clock time of the run.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

func (r *Report) filter(s Status) []string {
	var names []string
	for _, o := range r.Targets {
		if o.Status == s {
			names = append(names, o.Name)
		}
	}
	return names
}
