package tui

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/rig/internal/ui/style"
)

var (
	pendingStyle      = lipgloss.NewStyle().Foreground(style.Slate)
	runningStyle      = lipgloss.NewStyle().Foreground(style.Teal).Bold(true)
	doneStyle         = lipgloss.NewStyle().Foreground(style.Green)
	failedStyle       = lipgloss.NewStyle().Foreground(style.Red)
	skippedStyle      = lipgloss.NewStyle().Foreground(style.Yellow).Faint(true)
	selectedStyle     = lipgloss.NewStyle().Foreground(style.Teal).Bold(true)
	titleStyle        = lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(style.Teal).Foreground(style.White)
	failureTitleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(style.Red).Foreground(style.White)
	listStyle         = lipgloss.NewStyle().PaddingRight(2)
	logStyle          = lipgloss.NewStyle().PaddingLeft(1).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(style.Slate)
)
