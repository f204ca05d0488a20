package app

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marketmind-ai/marketmind/internal/coordinator"
)

// quickCommand is the shorthand for a structured analysis request.
const quickCommand = "/analyze "

// Update handles all application messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		// Header (1), input (5), status bar (1), padding (2).
		chatHeight := msg.Height - 9
		if chatHeight < 5 {
			chatHeight = 5
		}
		m.chat.SetSize(msg.Width-sidebarWidth(msg.Width), chatHeight)
		m.input.SetWidth(msg.Width - 4)
		m.chat.SetMessages(m.co.Messages())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.state == StateStreaming && m.cancel != nil {
				m.cancel()
				m.cancel = nil
				return m, nil
			}
			return m, tea.Quit

		case "enter":
			if m.state == StateIdle && strings.TrimSpace(m.input.Value()) != "" {
				return m.sendTurn()
			}

		case "ctrl+n":
			if m.state == StateIdle {
				m.co.StartNewConversation()
				m.chat.SetMessages(m.co.Messages())
				m.errText = ""
				return m, nil
			}
		}

	case RefreshMsg:
		m.chat.SetMessages(m.co.Messages())
		return m, nil

	case turnDoneMsg:
		m.state = StateIdle
		m.cancel = nil
		m.chat.SetMessages(m.co.Messages())
		if msg.err != nil && !errors.Is(msg.err, coordinator.ErrTooSoon) {
			m.errText = msg.err.Error()
		} else {
			m.errText = ""
		}
		return m, m.input.Focus()

	case loadDoneMsg:
		m.state = StateIdle
		m.chat.SetMessages(m.co.Messages())
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		return m, m.input.Focus()
	}

	if m.state == StateIdle {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// sendTurn submits the input as a turn and streams the response.
func (m Model) sendTurn() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if strings.HasPrefix(text, quickCommand) {
		text = "Analyze: " + strings.TrimSpace(strings.TrimPrefix(text, quickCommand))
	}

	m.input.Reset()
	m.input.Blur()
	m.state = StateStreaming
	m.errText = ""

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	co := m.co
	return m, tea.Batch(
		textarea.Blink,
		func() tea.Msg {
			return turnDoneMsg{err: co.SendTurn(ctx, text)}
		},
	)
}

// sidebarWidth reserves space for the agent panel on wide terminals.
func sidebarWidth(total int) int {
	if total < 80 {
		return 0
	}
	return 28
}
