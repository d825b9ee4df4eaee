// Package detector inspects the process environment to pick an output mode
// and to recognize the CI server a run executes on.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode represents the rendering mode for the application.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeTUI forces the interactive TUI renderer.
	ModeTUI
	// ModeLinear forces the linear CI renderer.
	ModeLinear
)

// Server identifies a continuous integration service.
type Server string

const (
	// ServerNone means no CI server was recognized.
	ServerNone Server = ""
	// ServerGitHubActions is GitHub Actions.
	ServerGitHubActions Server = "github-actions"
	// ServerAzurePipelines is Azure Pipelines.
	ServerAzurePipelines Server = "azure-pipelines"
	// ServerTeamCity is JetBrains TeamCity.
	ServerTeamCity Server = "teamcity"
	// ServerGeneric is any CI that only sets CI=true.
	ServerGeneric Server = "generic"
)

// lookupFunc matches os.LookupEnv.
type lookupFunc func(string) (string, bool)

// DetectEnvironment returns the recommended output mode: linear when stdout
// is not a terminal or a CI server is detected, TUI otherwise.
func DetectEnvironment() OutputMode {
	isTTY := term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // Fd fits in int on supported platforms.
	return detectMode(isTTY, os.LookupEnv)
}

func detectMode(isTTY bool, lookup lookupFunc) OutputMode {
	if !isTTY || detectServer(lookup) != ServerNone {
		return ModeLinear
	}
	return ModeTUI
}

// DetectServer returns the CI server the process runs on.
func DetectServer() Server {
	return detectServer(os.LookupEnv)
}

func detectServer(lookup lookupFunc) Server {
	if v, ok := lookup("GITHUB_ACTIONS"); ok && v == "true" {
		return ServerGitHubActions
	}
	if _, ok := lookup("TF_BUILD"); ok {
		return ServerAzurePipelines
	}
	if _, ok := lookup("TEAMCITY_VERSION"); ok {
		return ServerTeamCity
	}
	if v, _ := lookup("CI"); v == "true" || v == "1" {
		return ServerGeneric
	}
	return ServerNone
}

// ResolveMode applies the user's --output flag to the detected mode.
// Accepted values are "auto", "tui", "linear" and its alias "ci"; anything
// else keeps the detected mode.
func ResolveMode(autoDetected OutputMode, userFlag string) OutputMode {
	switch userFlag {
	case "tui":
		return ModeTUI
	case "linear", "ci":
		return ModeLinear
	default:
		return autoDetected
	}
}
