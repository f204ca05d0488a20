// Package chat renders the conversation transcript and the agent status
// panel.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marketmind-ai/marketmind/internal/agents"
	"github.com/marketmind-ai/marketmind/internal/conversation"
)

// WelcomeText is shown before the first message.
const WelcomeText = "Ask about a stock, a market, or recent news.\nTry \"/analyze NVDA earnings\" for a structured request."

// Model is the transcript viewport.
type Model struct {
	viewport viewport.Model
	messages []conversation.ChatMessage
	registry *agents.Registry
	width    int
	height   int
}

// New creates a transcript view with the given dimensions.
func New(registry *agents.Registry, width, height int) Model {
	vp := viewport.New(width, height)
	vp.SetContent("")
	return Model{
		viewport: vp,
		registry: registry,
		width:    width,
		height:   height,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles scrolling.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "pgup":
			m.viewport.ViewUp()
		case "pgdown":
			m.viewport.ViewDown()
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

// SetMessages replaces the transcript content and scrolls to the bottom.
func (m *Model) SetMessages(messages []conversation.ChatMessage) {
	m.messages = messages
	m.updateContent()
}

// SetSize updates the transcript dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.updateContent()
}

// IsEmpty reports whether the transcript has no messages.
func (m Model) IsEmpty() bool {
	return len(m.messages) == 0
}

func (m *Model) updateContent() {
	var content strings.Builder
	for i, msg := range m.messages {
		content.WriteString(renderMessage(msg, m.registry, m.width))
		if i < len(m.messages)-1 {
			content.WriteString("\n")
		}
	}
	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}
