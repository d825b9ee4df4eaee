// Package linear provides a synchronous, line-buffered renderer for CI environments.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/ui/output"
	"go.trai.ch/rig/internal/ui/style"
)

// Renderer implements ports.Renderer for CI and other non-interactive
// environments. Target output goes to stdout with a [name] prefix, status
// lines go to stderr.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output

	mu      sync.Mutex
	targets map[string]*targetState
}

type targetState struct {
	name    string
	started time.Time
	pending bytes.Buffer
}

// NewRenderer creates a Renderer. Nil writers default to os.Stdout and os.Stderr.
func NewRenderer(stdout, stderr io.Writer) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Renderer{
		stdout:  stdout,
		stderr:  stderr,
		output:  output.NewWithProfile(stderr, output.ColorProfileANSI),
		targets: make(map[string]*targetState),
	}
}

// Start is a no-op; the renderer writes synchronously.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop prints any partial lines still buffered.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ts := range r.targets {
		r.flushLocked(ts)
	}
	return nil
}

// Wait is a no-op.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit prints the planned targets.
func (r *Renderer) OnPlanEmit(targets []string, _ map[string][]string, requested []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.stderr, "Planning to run %d target(s) for %s: %s\n",
		len(targets), strings.Join(requested, ", "), strings.Join(targets, " → "))
}

// OnTargetStart prints a start line for the target.
func (r *Renderer) OnTargetStart(spanID, _, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.targets[spanID] = &targetState{name: name, started: startTime}

	prefix := r.output.String(fmt.Sprintf("[%s]", name)).Faint().String()
	_, _ = fmt.Fprintf(r.stderr, "%s Starting...\n", prefix)
}

// OnTargetLog prints every complete line with the target prefix and keeps
// the trailing partial line until more data arrives.
func (r *Renderer) OnTargetLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts, ok := r.targets[spanID]
	if !ok {
		return
	}

	ts.pending.Write(data)
	for {
		idx := bytes.IndexByte(ts.pending.Bytes(), '\n')
		if idx < 0 {
			break
		}
		r.printLineLocked(ts.name, ts.pending.Next(idx+1))
	}
}

// OnTargetComplete flushes the target's output and prints its result.
func (r *Renderer) OnTargetComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts, ok := r.targets[spanID]
	if !ok {
		return
	}
	r.flushLocked(ts)
	delete(r.targets, spanID)

	duration := endTime.Sub(ts.started)
	prefix := fmt.Sprintf("[%s]", ts.name)
	if err != nil {
		symbol := r.output.String(style.Cross).Foreground(termenv.ANSIRed).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s Failed after %v: %v\n", prefix, symbol, duration, err)
		return
	}
	symbol := r.output.String(style.Check).Foreground(termenv.ANSIGreen).String()
	_, _ = fmt.Fprintf(r.stderr, "%s %s Completed in %v\n", prefix, symbol, duration)
}

// OnRunComplete prints one line per planned target in plan order, then the verdict.
func (r *Renderer) OnRunComplete(report *domain.Report) {
	if report == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	width := 0
	for _, o := range report.Targets {
		width = max(width, len(o.Name))
	}

	var b strings.Builder
	b.WriteString("\n")
	for _, o := range report.Targets {
		fmt.Fprintf(&b, "  %s %-*s  %s\n", r.icon(o.Status), width, o.Name, describe(o))
		for _, entry := range o.Summary {
			fmt.Fprintf(&b, "      %s: %s\n", entry.Key, entry.Value)
		}
	}

	failed, skipped, succeeded := len(report.Failed()), len(report.Skipped()), len(report.Succeeded())
	verdict := r.output.String("Build succeeded").Foreground(termenv.ANSIGreen).Bold().String()
	if !report.Success() {
		verdict = r.output.String("Build failed").Foreground(termenv.ANSIRed).Bold().String()
	}
	fmt.Fprintf(&b, "\n%s in %v: %d succeeded, %d failed, %d skipped\n",
		verdict, report.Duration().Round(time.Millisecond), succeeded, failed, skipped)

	_, _ = io.WriteString(r.stderr, b.String())
}

func (r *Renderer) icon(s domain.Status) string {
	switch s {
	case domain.StatusSucceeded:
		return r.output.String(style.Check).Foreground(termenv.ANSIGreen).String()
	case domain.StatusFailed:
		return r.output.String(style.Cross).Foreground(termenv.ANSIRed).String()
	case domain.StatusSkipped:
		return r.output.String(style.Skip).Foreground(termenv.ANSIYellow).String()
	default:
		return style.Circle
	}
}

func describe(o domain.Outcome) string {
	switch o.Status {
	case domain.StatusSucceeded:
		return o.Duration.Round(time.Millisecond).String()
	case domain.StatusFailed:
		return fmt.Sprintf("%v  %s", o.Duration.Round(time.Millisecond), o.Error)
	case domain.StatusSkipped:
		if o.Cause != "" {
			return fmt.Sprintf("skipped (%s: %s)", o.Reason, o.Cause)
		}
		return fmt.Sprintf("skipped (%s)", o.Reason)
	default:
		return string(o.Status)
	}
}

// flushLocked must be called with r.mu held.
func (r *Renderer) flushLocked(ts *targetState) {
	if ts.pending.Len() > 0 {
		r.printLineLocked(ts.name, ts.pending.Next(ts.pending.Len()))
	}
}

// printLineLocked must be called with r.mu held.
func (r *Renderer) printLineLocked(name string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", name, line)
}
