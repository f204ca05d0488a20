package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/marketmind-ai/marketmind/internal/components/chat"
	"github.com/marketmind-ai/marketmind/internal/styles"
)

// View renders the application.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sections []string

	header := styles.Header.Render("MarketMind")
	sections = append(sections, header)

	chatView := m.chat.View()
	if m.chat.IsEmpty() {
		welcomeStyle := lipgloss.NewStyle().
			Foreground(styles.Muted).
			Width(m.width - sidebarWidth(m.width)).
			Align(lipgloss.Center).
			Padding(2, 0)
		chatView = welcomeStyle.Render(chat.WelcomeText)
	}

	if w := sidebarWidth(m.width); w > 0 {
		panel := chat.RenderAgentPanel(m.co.AgentsSnapshot(), m.co.HintAgent(), w)
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, chatView, panel))
	} else {
		sections = append(sections, chatView)
	}

	if m.state == StateStreaming {
		waiting := lipgloss.NewStyle().
			Foreground(styles.Muted).
			Italic(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.Muted).
			Padding(0, 1).
			Width(m.width - 2).
			Render("Agents working... (Esc to cancel)")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, styles.InputBorder.Width(m.width-2).Render(m.input.View()))
	}

	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStatusBar() string {
	var status string
	statusStyle := styles.StatusBar

	switch {
	case m.errText != "":
		status = "Error: " + m.errText
		statusStyle = styles.StatusBarError
	case m.state == StateStreaming:
		status = "Streaming..."
		statusStyle = styles.StatusBarStreaming
	case m.state == StateLoading:
		status = "Loading session..."
		statusStyle = styles.StatusBarStreaming
	default:
		status = "Ready"
		if id := m.co.ActiveSessionID(); id != "" {
			status = "Ready · session " + shortID(id)
		}
	}

	left := statusStyle.Render(status)
	help := styles.StatusBar.Render("Enter: send • Ctrl+N: new chat • Esc: quit")

	spacerWidth := m.width - lipgloss.Width(left) - lipgloss.Width(help) - 2
	if spacerWidth < 0 {
		spacerWidth = 0
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", spacerWidth), help)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
