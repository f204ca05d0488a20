package agents

import (
	"sync"
	"time"

	"github.com/marketmind-ai/marketmind/internal/stream"
)

// Status is the live state of one agent.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusCalling    Status = "calling"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Agent is the live view of one registered agent.
type Agent struct {
	Definition
	Status       Status
	Active       bool
	LastActivity *time.Time
	TaskID       string
}

// Activity is one entry in the bounded activity history.
type Activity struct {
	AgentID string
	Status  Status
	At      time.Time
}

// Stats is the aggregate view over all agents.
type Stats struct {
	ActiveCount  int
	LastActivity *time.Time
}

// Snapshot is a read-only copy of the machine's state for the rendering
// layer. Agents are in display order: root first, then registration order.
type Snapshot struct {
	Agents     []Agent
	Active     []Agent
	Stats      Stats
	Activities []Activity
}

// activityRingMax bounds the activity history; the oldest entry is evicted.
const activityRingMax = 50

// Machine holds one finite-state entity per registered agent and applies
// interpreted stream signals to them. All agents start idle and are never
// destroyed, only reset. Transitions are idempotent: re-applying a signal
// class an agent is already in refreshes its activity timestamp and nothing
// else. Signals referencing unknown agents are ignored.
type Machine struct {
	mu       sync.RWMutex
	registry *Registry
	agents   map[string]*Agent
	order    []string
	ring     []Activity
	clock    func() time.Time
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithClock substitutes the time source, for tests.
func WithClock(clock func() time.Time) MachineOption {
	return func(m *Machine) {
		m.clock = clock
	}
}

// NewMachine instantiates every registered agent in idle.
func NewMachine(registry *Registry, opts ...MachineOption) *Machine {
	m := &Machine{
		registry: registry,
		agents:   make(map[string]*Agent),
		clock:    time.Now,
	}
	for _, def := range registry.Definitions() {
		m.agents[def.ID] = &Agent{Definition: def, Status: StatusIdle}
		m.order = append(m.order, def.ID)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Apply drives agent transitions from one interpreted signal.
func (m *Machine) Apply(sig stream.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch s := sig.(type) {
	case stream.AuthorSignal:
		if s.Author == UserAuthor {
			// A brand-new user turn: everything restarts from idle,
			// regardless of any recovery or streaming still in flight.
			m.resetAllLocked()
			return
		}
		agent, ok := m.agents[s.Author]
		if !ok {
			return
		}
		if s.Partial {
			m.transitionLocked(agent, StatusProcessing)
			return
		}
		// The root agent's partial-to-final flip ends the turn. Sub-agent
		// lifecycles are bounded by tool invocation/result pairing instead,
		// so a final frame only refreshes their activity.
		if agent.Category == CategoryRoot {
			m.transitionLocked(agent, StatusCompleted)
		} else {
			m.touchLocked(agent)
		}

	case stream.ToolInvocation:
		agent, ok := m.agents[s.AgentID]
		if !ok {
			return
		}
		m.transitionLocked(agent, StatusCalling)
		agent.TaskID = s.CorrelationID

	case stream.ToolResult:
		agent, ok := m.agents[s.AgentID]
		if !ok {
			return
		}
		if s.IsError {
			m.transitionLocked(agent, StatusError)
		} else {
			m.transitionLocked(agent, StatusCompleted)
		}
		agent.TaskID = ""

	case stream.TextToken:
		if agent, ok := m.agents[s.Author]; ok {
			m.touchLocked(agent)
		}
	}
}

// ResetAll forces every agent back to idle, clears task correlation ids, and
// clears the activity history.
func (m *Machine) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetAllLocked()
}

// MarkAllError moves every agent to error, for turn-level failures.
func (m *Machine) MarkAllError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		m.transitionLocked(m.agents[id], StatusError)
	}
}

// Snapshot returns a consistent read-only copy of all agent state. It is
// taken under the lock, so readers never observe a half-applied signal.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Agents:     make([]Agent, 0, len(m.order)),
		Activities: make([]Activity, len(m.ring)),
	}
	copy(snap.Activities, m.ring)

	// Root first, then registration order.
	rootID := m.registry.Root().ID
	if agent, ok := m.agents[rootID]; ok {
		snap.Agents = append(snap.Agents, *agent)
	}
	for _, id := range m.order {
		if id == rootID {
			continue
		}
		snap.Agents = append(snap.Agents, *m.agents[id])
	}

	for _, agent := range snap.Agents {
		if agent.Active {
			snap.Active = append(snap.Active, agent)
			snap.Stats.ActiveCount++
		}
		if agent.LastActivity != nil {
			if snap.Stats.LastActivity == nil || agent.LastActivity.After(*snap.Stats.LastActivity) {
				snap.Stats.LastActivity = agent.LastActivity
			}
		}
	}

	return snap
}

// Agent returns a copy of one agent's live state.
func (m *Machine) Agent(id string) (Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agent, ok := m.agents[id]
	if !ok {
		return Agent{}, false
	}
	return *agent, true
}

func (m *Machine) resetAllLocked() {
	for _, agent := range m.agents {
		agent.Status = StatusIdle
		agent.Active = false
		agent.TaskID = ""
	}
	m.ring = nil
}

// transitionLocked moves an agent to status, refreshing its activity stamp.
// Re-entering the current status is a no-op beyond the refresh.
func (m *Machine) transitionLocked(agent *Agent, status Status) {
	changed := agent.Status != status
	agent.Status = status
	agent.Active = status == StatusCalling || status == StatusProcessing
	m.touchLocked(agent)
	if changed {
		m.recordLocked(Activity{AgentID: agent.ID, Status: status, At: *agent.LastActivity})
	}
}

func (m *Machine) touchLocked(agent *Agent) {
	now := m.clock()
	agent.LastActivity = &now
}

func (m *Machine) recordLocked(a Activity) {
	if len(m.ring) >= activityRingMax {
		m.ring = append(m.ring[1:], a)
		return
	}
	m.ring = append(m.ring, a)
}
