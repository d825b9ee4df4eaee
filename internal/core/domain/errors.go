package domain

import (
	"fmt"

	"go.trai.ch/zerr"
)

var (
	// ErrDuplicateTarget is returned when a target is registered under a name that is already taken.
	ErrDuplicateTarget = zerr.New("duplicate target")

	// ErrInvalidTargetName is returned when a target name is empty or contains invalid characters.
	ErrInvalidTargetName = zerr.New("invalid target name")

	// ErrCyclicDependency is returned when the hard dependency relation contains a cycle.
	ErrCyclicDependency = zerr.New("cyclic dependency")

	// ErrUnresolvableTarget is returned when a requested target or a declared dependency is not registered.
	ErrUnresolvableTarget = zerr.New("unresolvable target")

	// ErrTargetExecution is returned when the body of a target signals failure.
	ErrTargetExecution = zerr.New("target execution failed")

	// ErrNoTargetsSpecified is returned when a run or plan is requested without any target.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrRequirementFailed is returned when a planned target's requirement does not hold.
	ErrRequirementFailed = zerr.New("requirement failed")

	// ErrInvalidTransition is returned when a target status change violates the state machine.
	ErrInvalidTransition = zerr.New("invalid status transition")

	// ErrGraphNotValidated is returned when a graph is planned before Validate succeeded.
	ErrGraphNotValidated = zerr.New("graph has not been validated")

	// ErrBuildFailed is returned when at least one target of a run failed.
	ErrBuildFailed = zerr.New("build failed")

	// ErrInvalidPolicy is returned when a skip policy cannot be parsed.
	ErrInvalidPolicy = zerr.New("invalid skip policy, expected 'skip' or 'execute'")

	// ErrUnknownComponent is returned when the build definition enables a component that does not exist.
	ErrUnknownComponent = zerr.New("unknown component")

	// ErrConfigNotFound is returned when no rig.yaml is found walking up from the working directory.
	ErrConfigNotFound = zerr.New("could not find rig.yaml")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrEnvFileParseFailed is returned when the .env file next to the config cannot be parsed.
	ErrEnvFileParseFailed = zerr.New("failed to parse .env file")

	// ErrStoreCreateFailed is returned when the run history directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create run history directory")

	// ErrStoreReadFailed is returned when a run report cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read run report")

	// ErrStoreUnmarshalFailed is returned when a run report cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal run report")

	// ErrStoreMarshalFailed is returned when a run report cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal run report")

	// ErrStoreWriteFailed is returned when a run report cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write run report")

	// ErrRunNotFound is returned when no report exists for a run ID.
	ErrRunNotFound = zerr.New("run not found")

	// ErrNoHistory is returned when no run report has been stored yet.
	ErrNoHistory = zerr.New("no run history found")

	// ErrRepositoryOpenFailed is returned when the git repository cannot be opened.
	ErrRepositoryOpenFailed = zerr.New("failed to open git repository")

	// ErrMetricsWriteFailed is returned when the metrics textfile cannot be written.
	ErrMetricsWriteFailed = zerr.New("failed to write metrics file")
)

// TargetExecutionError reports that the body of a target failed.
// It matches both ErrTargetExecution and the underlying cause with errors.Is.
type TargetExecutionError struct {
	Target string
	Err    error
}

func (e *TargetExecutionError) Error() string {
	return fmt.Sprintf("target %q failed: %v", e.Target, e.Err)
}

// Unwrap returns the sentinel and the cause.
func (e *TargetExecutionError) Unwrap() []error {
	return []error{ErrTargetExecution, e.Err}
}
