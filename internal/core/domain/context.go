package domain

import (
	"context"
	"io"
	"maps"
	"slices"
	"sync"
)

// Command is an external command line a target body asks the runtime to execute.
type Command struct {
	Args        []string
	WorkingDir  string
	Environment map[string]string
}

// ExecFunc executes an external command, streaming its output to stdout and stderr.
type ExecFunc func(ctx context.Context, cmd Command, stdout, stderr io.Writer) error

// StatusFunc reports the current status of a target within a run.
type StatusFunc func(name InternedString) Status

// RunScope holds the state shared by every target body of a single invocation.
type RunScope struct {
	Root       string
	Parameters map[string]string
	Scheduled  []InternedString
	Exec       ExecFunc
	Status     StatusFunc
}

// ContextFor returns the BuildContext handed to the body of t.
func (s *RunScope) ContextFor(t *Target, stdout, stderr io.Writer) *BuildContext {
	return &BuildContext{
		Target: t.Name,
		Stdout: stdout,
		Stderr: stderr,
		scope:  s,
	}
}

// SummaryEntry is a key/value pair a target adds to the run report.
type SummaryEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BuildContext is passed to target bodies, conditions and requirements.
// It replaces global build state with explicit queries.
type BuildContext struct {
	Target InternedString
	Stdout io.Writer
	Stderr io.Writer

	scope *RunScope

	mu      sync.Mutex
	summary []SummaryEntry
}

// Root returns the directory containing the build definition.
func (bc *BuildContext) Root() string {
	return bc.scope.Root
}

// Parameter returns the named build parameter.
func (bc *BuildContext) Parameter(key string) (string, bool) {
	v, ok := bc.scope.Parameters[key]
	return v, ok
}

// Parameters returns a copy of all build parameters.
func (bc *BuildContext) Parameters() map[string]string {
	return maps.Clone(bc.scope.Parameters)
}

// Scheduled reports whether name is part of the current plan.
func (bc *BuildContext) Scheduled(name string) bool {
	return slices.Contains(bc.scope.Scheduled, NewInternedString(name))
}

// Succeeded reports whether name has already succeeded in this run.
// Targets treated as already satisfied by the planner count as succeeded.
func (bc *BuildContext) Succeeded(name string) bool {
	if bc.scope.Status == nil {
		return false
	}
	return bc.scope.Status(NewInternedString(name)) == StatusSucceeded
}

// Exec runs an external command with the target's output streams.
func (bc *BuildContext) Exec(ctx context.Context, cmd Command) error {
	return bc.scope.Exec(ctx, cmd, bc.Stdout, bc.Stderr)
}

// Run is shorthand for Exec with the given arguments and the build root as working directory.
func (bc *BuildContext) Run(ctx context.Context, args ...string) error {
	return bc.Exec(ctx, Command{Args: args, WorkingDir: bc.scope.Root})
}

// AddSummary records a key/value pair shown in the run report.
func (bc *BuildContext) AddSummary(key, value string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.summary = append(bc.summary, SummaryEntry{Key: key, Value: value})
}

// Summary returns the entries recorded with AddSummary.
func (bc *BuildContext) Summary() []SummaryEntry {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return slices.Clone(bc.summary)
}
