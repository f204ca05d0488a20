// Package styles defines the lipgloss palette and shared styles for the
// terminal UI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/marketmind-ai/marketmind/internal/agents"
)

var (
	// Colors
	Primary   = lipgloss.Color("#2563EB")
	Secondary = lipgloss.Color("#10B981")
	Accent    = lipgloss.Color("#F59E0B")
	Error     = lipgloss.Color("#EF4444")
	Muted     = lipgloss.Color("#6B7280")
	White     = lipgloss.Color("#FFFFFF")
	LightGray = lipgloss.Color("#E5E7EB")

	// Message styles
	UserMessage = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(White).
			Bold(true)

	UserLabel = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	AssistantMessage = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(LightGray)

	AssistantLabel = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	// Agent panel styles
	AgentPanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted).
			Padding(0, 1)

	AgentName = lipgloss.NewStyle().
			Foreground(LightGray)

	AgentNameActive = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	// Input styles
	InputBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	// Status bar styles
	StatusBar = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(0, 1)

	StatusBarStreaming = lipgloss.NewStyle().
				Foreground(Primary).
				Padding(0, 1)

	StatusBarError = lipgloss.NewStyle().
			Foreground(Error).
			Padding(0, 1)

	// Header
	Header = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true).
		Padding(0, 1)

	// Cursor for streaming text
	StreamingCursor = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)
)

// StatusColor maps an agent status to its display color.
func StatusColor(status agents.Status) lipgloss.Color {
	switch status {
	case agents.StatusCalling:
		return Accent
	case agents.StatusProcessing:
		return Primary
	case agents.StatusCompleted:
		return Secondary
	case agents.StatusError:
		return Error
	default:
		return Muted
	}
}

// StatusGlyph maps an agent status to a one-character indicator.
func StatusGlyph(status agents.Status) string {
	switch status {
	case agents.StatusCalling:
		return "◌"
	case agents.StatusProcessing:
		return "◐"
	case agents.StatusCompleted:
		return "●"
	case agents.StatusError:
		return "✗"
	default:
		return "○"
	}
}
