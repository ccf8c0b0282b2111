package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/syllabus/internal/render"
	"github.com/fakeyudi/syllabus/internal/session"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("238")).
			PaddingRight(1)

	sidebarFocusStyle = sidebarStyle.BorderForeground(lipgloss.Color("62"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	currentRowStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

const sidebarWidth = 26

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	// ── Row 1: title bar ──────────────────────────────────────────────────────
	title := "New Chat"
	if t, ok := m.deps.Store.Title(m.deps.Store.Current()); ok && t != "" {
		title = t
	}
	top := titleStyle.Width(m.width).Render("  syllabus  " + title)

	// ── Rows 2…N-2: sessions and timeline ────────────────────────────────────
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.viewport.View())

	// ── Row N-1: prompt ───────────────────────────────────────────────────────
	prompt := m.input.View()

	// ── Row N: status / hint bar ──────────────────────────────────────────────
	var left []string
	if m.deps.Router.Busy() {
		left = append(left, m.spinner.View()+" thinking")
	}
	if m.deps.Capture.Listening() {
		left = append(left, "● rec")
	}
	if m.deps.Playback.Speaking() {
		left = append(left, "♪ speaking")
	}
	if m.notice != "" {
		left = append(left, noticeStyle.Render(m.notice))
	}
	if len(left) == 0 {
		left = append(left, m.hint())
	}
	status := strings.Join(left, "  ")
	right := fmt.Sprintf("%s · %.2gx", m.style, m.deps.Playback.Rate())
	pad := m.width - lipgloss.Width(status) - lipgloss.Width(right) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(status + strings.Repeat(" ", pad) + right)

	return lipgloss.JoinVertical(lipgloss.Left, top, body, prompt, statusBar)
}

func (m Model) hint() string {
	switch m.focus {
	case paneTimeline:
		return "↑/↓ focus  enter select  pgup/pgdn scroll  tab next pane"
	case paneSessions:
		return "↑/↓ move  enter open  ctrl+n new  ctrl+r rename  ctrl+x clear"
	}
	return "enter ask  ctrl+e exam  ctrl+p solve  ctrl+t trends  ctrl+y video  ctrl+u upload  ctrl+s style  alt+m mic  alt+s speak"
}

func (m Model) renderSidebar() string {
	var sb strings.Builder
	sb.WriteString(sectionHeader.Render("Sessions") + "\n\n")
	list := m.deps.Store.Sessions()
	current := m.deps.Store.Current()
	switch {
	case current != "" && !slices.ContainsFunc(list, func(s session.Session) bool { return s.ID == current }):
		// Opened but not yet listed, as after clearing.
		sb.WriteString(currentRowStyle.Render("▸ "+titleOrDefault("")) + "\n")
	case len(list) == 0:
		sb.WriteString(dimStyle.Render("(none)") + "\n")
	}
	for i, s := range list {
		label := truncate(titleOrDefault(s.Title), sidebarWidth-3)
		row := "  " + label
		if s.ID == current {
			row = currentRowStyle.Render("▸ " + label)
		}
		if m.focus == paneSessions && i == m.sessCursor {
			row = selectedRowStyle.Width(sidebarWidth - 1).Render(row)
		}
		sb.WriteString(row + "\n")
	}
	style := sidebarStyle
	if m.focus == paneSessions {
		style = sidebarFocusStyle
	}
	return style.Width(sidebarWidth).Height(m.viewport.Height).Render(sb.String())
}

func titleOrDefault(title string) string {
	if title == "" {
		return "New Chat"
	}
	return title
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) layout() {
	// title(1) + prompt(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	vpWidth := m.width - sidebarWidth - 2
	if vpWidth < 20 {
		vpWidth = 20
	}
	atBottom := m.viewport.AtBottom()
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(vpWidth, vpHeight)
		atBottom = true
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.input.Width = m.width - lipgloss.Width(m.input.Prompt) - 1
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// refresh redraws the timeline from the current log snapshot and rebuilds
// the focus targets.
func (m *Model) refresh() {
	if cur := m.deps.Store.Current(); cur != m.shown {
		m.shown = cur
		m.interactions = make(map[int]*render.Interactions)
		m.cursor = 0
		m.shownLen = 0
	}

	msgs := m.deps.Store.Log().Snapshot()
	views := make([]render.View, len(msgs))
	m.targets = m.targets[:0]
	starts := make([]int, len(msgs))
	for i, msg := range msgs {
		views[i] = render.Select(msg, m.interactions[i])
		starts[i] = len(m.targets)
		for _, t := range render.Targets(views[i]) {
			m.targets = append(m.targets, located{index: i, target: t})
		}
	}
	if m.cursor >= len(m.targets) {
		m.cursor = max(0, len(m.targets)-1)
	}

	if m.viewport.Width == 0 {
		return
	}
	var sb strings.Builder
	if len(msgs) == 0 {
		sb.WriteString("\n" + dimStyle.Render("  Ask anything about your syllabus, or press ctrl+u to upload it.") + "\n")
	}
	for i, v := range views {
		cursor := -1
		if m.focus == paneTimeline {
			cursor = m.cursor - starts[i]
		}
		sb.WriteString(m.deps.Drawer.Draw(v, render.Options{Width: m.viewport.Width, Cursor: cursor}))
		sb.WriteString("\n")
	}

	grew := len(msgs) > m.shownLen
	m.shownLen = len(msgs)
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(sb.String())
	if grew || atBottom {
		m.viewport.GotoBottom()
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
