// Package app wires the coordinator to the terminal UI.
package app

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marketmind-ai/marketmind/internal/agents"
	"github.com/marketmind-ai/marketmind/internal/components/chat"
	"github.com/marketmind-ai/marketmind/internal/coordinator"
)

// State represents what the UI is currently doing.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateLoading
)

// SharedState holds the program reference so coordinator callbacks running
// on other goroutines can post messages into the event loop.
type SharedState struct {
	mu      sync.Mutex
	program *tea.Program
}

// SetProgram sets the program reference.
func (s *SharedState) SetProgram(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = p
}

// Send posts a message to the program if one is attached.
func (s *SharedState) Send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// RefreshMsg asks the UI to re-read coordinator state. The coordinator's
// update hook posts it on every transcript or agent change.
type RefreshMsg struct{}

type turnDoneMsg struct{ err error }

type loadDoneMsg struct{ err error }

// Model is the root UI model.
type Model struct {
	chat    chat.Model
	input   textarea.Model
	co      *coordinator.Coordinator
	shared  *SharedState
	state   State
	resume  string
	width   int
	height  int
	errText string
	cancel  context.CancelFunc
	ready   bool
}

// New creates the root model. shared carries the program reference for
// coordinator callbacks; resumeSessionID, when non-empty, is loaded on
// startup.
func New(co *coordinator.Coordinator, registry *agents.Registry, shared *SharedState, resumeSessionID string) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about markets, news, financials, or risk..."
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	return Model{
		chat:   chat.New(registry, 80, 20),
		input:  ta,
		co:     co,
		shared: shared,
		resume: resumeSessionID,
	}
}

// Init starts cursor blink and, when resuming, kicks off the session load.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.resume != "" {
		id := m.resume
		co := m.co
		cmds = append(cmds, func() tea.Msg {
			return loadDoneMsg{err: co.LoadConversation(context.Background(), id)}
		})
	}
	return tea.Batch(cmds...)
}
