package domain

import (
	"context"
	"strings"

	"go.trai.ch/zerr"
)

// Policy decides what happens to a target when one of its hard dependencies
// did not succeed.
type Policy uint8

const (
	// PolicySkip marks the dependent target as skipped. This is the default.
	PolicySkip Policy = iota
	// PolicyExecute runs the dependent target regardless.
	PolicyExecute
)

// String returns the lower-case name of the policy.
func (p Policy) String() string {
	if p == PolicyExecute {
		return "execute"
	}
	return "skip"
}

// ParsePolicy parses "skip" or "execute". The empty string yields PolicySkip.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return PolicySkip, nil
	case "execute":
		return PolicyExecute, nil
	default:
		return PolicySkip, zerr.With(zerr.Wrap(ErrInvalidPolicy, "unknown policy "+s), "policy", s)
	}
}

// Dependency is a hard edge from a target to one of its prerequisites.
type Dependency struct {
	Name InternedString
	// WhenSkipped overrides the dependent target's policy for this edge only.
	WhenSkipped *Policy
}

// DependsOn builds hard dependencies that follow the target-level policy.
func DependsOn(names ...string) []Dependency {
	deps := make([]Dependency, len(names))
	for i, n := range names {
		deps[i] = Dependency{Name: NewInternedString(n)}
	}
	return deps
}

// Action is the execution body of a target.
type Action func(ctx context.Context, bc *BuildContext) error

// Condition gates a target at run time. A false condition skips the target.
type Condition struct {
	Description string
	Check       func(bc *BuildContext) bool
}

// Requirement must hold for every planned target before any target runs.
type Requirement struct {
	Description string
	Check       func(ctx context.Context, bc *BuildContext) error
}

// Target is a named unit of work with its relationships to other targets.
// Targets are immutable once added to a Graph.
type Target struct {
	Name        InternedString
	Description string

	// Action runs the target. When nil, Command is executed instead.
	Action      Action
	Command     []string
	WorkingDir  string
	Environment map[string]string

	DependsOn      []Dependency
	Before         []InternedString
	TryAfter       []InternedString
	TryTriggeredBy []InternedString

	Produces []string
	Consumes []string

	WhenSkipped  Policy
	Conditions   []Condition
	Requirements []Requirement

	index int
}

// Index returns the declaration position of the target within its graph.
func (t *Target) Index() int {
	return t.index
}

// Dependencies returns the names of the hard dependencies in declaration order.
func (t *Target) Dependencies() []InternedString {
	names := make([]InternedString, len(t.DependsOn))
	for i, d := range t.DependsOn {
		names[i] = d.Name
	}
	return names
}

// EdgePolicy returns the effective skip policy of the edge to dep.
func (t *Target) EdgePolicy(dep InternedString) Policy {
	for _, d := range t.DependsOn {
		if d.Name == dep && d.WhenSkipped != nil {
			return *d.WhenSkipped
		}
	}
	return t.WhenSkipped
}

// Run executes the target body. Targets without action or command succeed immediately.
func (t *Target) Run(ctx context.Context, bc *BuildContext) error {
	if t.Action != nil {
		return t.Action(ctx, bc)
	}
	if len(t.Command) == 0 {
		return nil
	}
	return bc.Exec(ctx, Command{
		Args:        t.Command,
		WorkingDir:  t.WorkingDir,
		Environment: t.Environment,
	})
}

func validateTargetName(name string) error {
	if name == "" {
		return zerr.With(zerr.Wrap(ErrInvalidTargetName, "target name is empty"), "reason", "empty")
	}
	if strings.ContainsAny(name, " \t\n,") {
		err := zerr.With(zerr.Wrap(ErrInvalidTargetName, "target name "+name), "target", name)
		return zerr.With(err, "reason", "whitespace or comma")
	}
	return nil
}
