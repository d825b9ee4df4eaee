package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/rig/internal/core/domain"
)

const (
	listWidthRatio  = 0.3
	logPaneChrome   = 4
	footerHeight    = 2
	minListHeight   = 1
	minLogPaneWidth = 10
)

// TargetNode is one planned target in the list.
type TargetNode struct {
	Name      string
	Status    domain.Status
	Requested bool
	Detail    string
	Term      *Vterm
}

// Model is the Bubble Tea model of a run.
type Model struct {
	Targets   []*TargetNode
	TargetMap map[string]*TargetNode
	SpanMap   map[string]*TargetNode

	ActiveTargetName string
	SelectedIdx      int
	ListOffset       int
	ListHeight       int
	LogWidth         int
	LogHeight        int
	FollowMode       bool

	Report *domain.Report
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case MsgInitTargets:
		m.initTargets(msg)
	case MsgTargetStart:
		m.startTarget(msg)
	case MsgTargetLog:
		if node, ok := m.SpanMap[msg.SpanID]; ok {
			_, _ = node.Term.Write(msg.Data)
		}
	case MsgTargetComplete:
		if node, ok := m.SpanMap[msg.SpanID]; ok {
			node.Status = domain.StatusSucceeded
			if msg.Err != nil {
				node.Status = domain.StatusFailed
				node.Detail = msg.Err.Error()
			}
		}
	case MsgRunComplete:
		m.completeRun(msg.Report)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "k", "up":
		if m.SelectedIdx > 0 {
			m.moveCursor(m.SelectedIdx-1, false)
		}
	case "j", "down":
		if m.SelectedIdx < len(m.Targets)-1 {
			m.moveCursor(m.SelectedIdx+1, false)
		}
	case "esc", "f":
		m.FollowMode = true
		for i, t := range m.Targets {
			if t.Status == domain.StatusRunning {
				m.moveCursor(i, true)
				break
			}
		}
	default:
		if node := m.selected(); node != nil {
			node.Term.Scroll(msg)
		}
	}
	return nil
}

// moveCursor selects idx; follow decides whether FollowMode stays on.
func (m *Model) moveCursor(idx int, follow bool) {
	m.SelectedIdx = idx
	m.FollowMode = follow
	m.ensureVisible()

	if node := m.selected(); node != nil {
		m.ActiveTargetName = node.Name
		if follow {
			node.Term.ScrollToBottom()
		}
	}
}

func (m *Model) selected() *TargetNode {
	if m.SelectedIdx >= 0 && m.SelectedIdx < len(m.Targets) {
		return m.Targets[m.SelectedIdx]
	}
	return nil
}

func (m *Model) ensureVisible() {
	if m.ListHeight <= 0 {
		return
	}
	if m.SelectedIdx < m.ListOffset {
		m.ListOffset = m.SelectedIdx
	} else if m.SelectedIdx >= m.ListOffset+m.ListHeight {
		m.ListOffset = m.SelectedIdx - m.ListHeight + 1
	}
}

func (m *Model) resize(width, height int) {
	listWidth := int(float64(width) * listWidthRatio)
	m.LogWidth = max(width-listWidth-logPaneChrome, minLogPaneWidth)

	headerHeight := lipgloss.Height(titleStyle.Render("TARGETS") + "\n\n")
	m.ListHeight = max(height-headerHeight-footerHeight, minListHeight)
	m.LogHeight = max(height-lipgloss.Height(titleStyle.Render("LOGS"))-footerHeight, minListHeight)
	m.ensureVisible()

	for _, node := range m.Targets {
		node.Term.Resize(m.LogWidth, m.LogHeight)
	}
}

func (m *Model) initTargets(msg MsgInitTargets) {
	requested := make(map[string]bool, len(msg.Requested))
	for _, r := range msg.Requested {
		requested[r] = true
	}

	m.Targets = make([]*TargetNode, len(msg.Targets))
	m.TargetMap = make(map[string]*TargetNode, len(msg.Targets))
	m.SpanMap = make(map[string]*TargetNode)
	for i, name := range msg.Targets {
		term := NewVterm()
		if m.LogWidth > 0 && m.LogHeight > 0 {
			term.Resize(m.LogWidth, m.LogHeight)
		}
		node := &TargetNode{
			Name:      name,
			Status:    domain.StatusNotRun,
			Requested: requested[name],
			Term:      term,
		}
		m.Targets[i] = node
		m.TargetMap[name] = node
	}
}

func (m *Model) startTarget(msg MsgTargetStart) {
	node, ok := m.TargetMap[msg.Name]
	if !ok {
		return
	}
	node.Status = domain.StatusRunning
	m.SpanMap[msg.SpanID] = node

	if !m.FollowMode {
		return
	}
	for i, t := range m.Targets {
		if t == node {
			m.moveCursor(i, true)
			break
		}
	}
}

// completeRun settles every row from the report, which also covers targets
// that never started.
func (m *Model) completeRun(report *domain.Report) {
	if report == nil {
		return
	}
	m.Report = report
	for _, o := range report.Targets {
		node, ok := m.TargetMap[o.Name]
		if !ok {
			continue
		}
		node.Status = o.Status
		switch o.Status {
		case domain.StatusFailed:
			node.Detail = o.Error
		case domain.StatusSkipped:
			node.Detail = string(o.Reason)
			if o.Cause != "" {
				node.Detail += ": " + o.Cause
			}
		}
	}
}
