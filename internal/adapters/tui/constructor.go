// Package tui provides the interactive terminal renderer.
package tui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/rig/internal/ui/output"
)

// NewModel creates a model that follows running targets. w selects the
// color profile lipgloss renders with; nil means stderr.
func NewModel(w io.Writer) *Model {
	out := output.New(w)
	lipgloss.SetColorProfile(out.Profile)

	return &Model{
		TargetMap:  make(map[string]*TargetNode),
		SpanMap:    make(map[string]*TargetNode),
		FollowMode: true,
	}
}
