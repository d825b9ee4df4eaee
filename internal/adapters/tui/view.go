package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/ui/style"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.ListHeight == 0 {
		return "Initializing..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.targetList(), m.logPane())
	return lipgloss.JoinVertical(lipgloss.Left, body, m.footer())
}

func (m *Model) targetList() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("TARGETS") + "\n\n")

	end := min(m.ListOffset+m.ListHeight, len(m.Targets))
	start := min(m.ListOffset, end)
	for i := start; i < end; i++ {
		s.WriteString(m.renderRow(i, m.Targets[i]) + "\n")
	}

	return listStyle.Render(s.String())
}

func (m *Model) renderRow(index int, node *TargetNode) string {
	st := statusStyle(node.Status)

	cursor := "  "
	if index == m.SelectedIdx {
		cursor = selectedStyle.Render("> ")
		if !node.Status.IsTerminal() {
			st = selectedStyle
		}
	}

	name := node.Name
	if node.Requested {
		name += " *"
	}
	row := fmt.Sprintf("%s %s", statusIcon(node.Status), name)
	if node.Status == domain.StatusSkipped && node.Detail != "" {
		row += " (" + node.Detail + ")"
	}
	return cursor + st.Render(row)
}

func statusIcon(s domain.Status) string {
	switch s {
	case domain.StatusRunning:
		return style.Dot
	case domain.StatusSucceeded:
		return style.Check
	case domain.StatusFailed:
		return style.Cross
	case domain.StatusSkipped:
		return style.Skip
	default:
		return style.Circle
	}
}

func statusStyle(s domain.Status) lipgloss.Style {
	switch s {
	case domain.StatusRunning:
		return runningStyle
	case domain.StatusSucceeded:
		return doneStyle
	case domain.StatusFailed:
		return failedStyle
	case domain.StatusSkipped:
		return skippedStyle
	default:
		return pendingStyle
	}
}

func (m *Model) logPane() string {
	header := titleStyle.Render("LOGS (Waiting...)")
	var content string

	if node, ok := m.TargetMap[m.ActiveTargetName]; ok {
		mode := " (Manual)"
		if m.FollowMode {
			mode = " (Following)"
		}
		title := titleStyle
		if node.Status == domain.StatusFailed {
			title = failureTitleStyle
		}
		header = title.Render("LOGS: " + node.Name + mode)
		content = node.Term.View()
	}

	return logStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, content))
}

func (m *Model) footer() string {
	if m.Report == nil {
		done := 0
		for _, t := range m.Targets {
			if t.Status.IsTerminal() {
				done++
			}
		}
		return pendingStyle.Render(fmt.Sprintf("\n%d/%d targets  ↑/↓ select  pgup/pgdown scroll  esc follow  q quit",
			done, len(m.Targets)))
	}

	r := m.Report
	summary := fmt.Sprintf("%d succeeded, %d failed, %d skipped in %v",
		len(r.Succeeded()), len(r.Failed()), len(r.Skipped()), r.Duration().Round(time.Millisecond))
	if r.Success() {
		return "\n" + doneStyle.Render(style.Check+" Build succeeded: "+summary) + pendingStyle.Render("  q quit")
	}
	return "\n" + failedStyle.Render(style.Cross+" Build failed: "+summary) + pendingStyle.Render("  q quit")
}
