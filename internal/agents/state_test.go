package agents_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmind-ai/marketmind/internal/agents"
	"github.com/marketmind-ai/marketmind/internal/stream"
)

func newMachine(clock func() time.Time) *agents.Machine {
	reg := agents.NewRegistry(agents.Defaults())
	if clock == nil {
		clock = time.Now
	}
	return agents.NewMachine(reg, agents.WithClock(clock))
}

func TestMachineStartsIdle(t *testing.T) {
	m := newMachine(nil)
	snap := m.Snapshot()
	require.Len(t, snap.Agents, 5)
	for _, a := range snap.Agents {
		assert.Equal(t, agents.StatusIdle, a.Status)
		assert.False(t, a.Active)
	}
	assert.Equal(t, 0, snap.Stats.ActiveCount)
}

func TestMachineSnapshotRootFirst(t *testing.T) {
	m := newMachine(nil)
	snap := m.Snapshot()
	assert.Equal(t, agents.RootAgentID, snap.Agents[0].ID)
}

func TestMachineInvocationResultPairing(t *testing.T) {
	m := newMachine(nil)

	m.Apply(stream.ToolInvocation{AgentID: agents.NewsAgentID, Tool: agents.NewsAgentID, CorrelationID: "c1"})
	a, ok := m.Agent(agents.NewsAgentID)
	require.True(t, ok)
	assert.Equal(t, agents.StatusCalling, a.Status)
	assert.True(t, a.Active)
	assert.Equal(t, "c1", a.TaskID)

	m.Apply(stream.ToolResult{AgentID: agents.NewsAgentID, Tool: agents.NewsAgentID, CorrelationID: "c1"})
	a, _ = m.Agent(agents.NewsAgentID)
	assert.Equal(t, agents.StatusCompleted, a.Status)
	assert.False(t, a.Active)
	assert.Empty(t, a.TaskID)
}

func TestMachineErrorResult(t *testing.T) {
	m := newMachine(nil)
	m.Apply(stream.ToolInvocation{AgentID: agents.RiskAgentID, CorrelationID: "c9"})
	m.Apply(stream.ToolResult{AgentID: agents.RiskAgentID, IsError: true, CorrelationID: "c9"})

	a, _ := m.Agent(agents.RiskAgentID)
	assert.Equal(t, agents.StatusError, a.Status)
	assert.Empty(t, a.TaskID)
}

func TestMachinePartialAuthorProcessing(t *testing.T) {
	m := newMachine(nil)
	m.Apply(stream.AuthorSignal{Author: agents.RootAgentID, Partial: true})

	a, _ := m.Agent(agents.RootAgentID)
	assert.Equal(t, agents.StatusProcessing, a.Status)
	assert.True(t, a.Active)
}

func TestMachineRootFinalEndsTurn(t *testing.T) {
	m := newMachine(nil)
	m.Apply(stream.AuthorSignal{Author: agents.RootAgentID, Partial: true})
	m.Apply(stream.AuthorSignal{Author: agents.RootAgentID, Partial: false})

	a, _ := m.Agent(agents.RootAgentID)
	assert.Equal(t, agents.StatusCompleted, a.Status)
	assert.False(t, a.Active)
}

func TestMachineSubAgentFinalOnlyTouches(t *testing.T) {
	// Sub-agent lifecycles are bounded by invocation/result pairing; a final
	// frame authored by one must not move it out of processing.
	m := newMachine(nil)
	m.Apply(stream.AuthorSignal{Author: agents.MarketAgentID, Partial: true})
	m.Apply(stream.AuthorSignal{Author: agents.MarketAgentID, Partial: false})

	a, _ := m.Agent(agents.MarketAgentID)
	assert.Equal(t, agents.StatusProcessing, a.Status)
}

func TestMachineUserAuthorResetsAll(t *testing.T) {
	m := newMachine(nil)
	m.Apply(stream.ToolInvocation{AgentID: agents.NewsAgentID, CorrelationID: "c1"})
	m.Apply(stream.AuthorSignal{Author: agents.RootAgentID, Partial: true})

	m.Apply(stream.AuthorSignal{Author: agents.UserAuthor})

	snap := m.Snapshot()
	for _, a := range snap.Agents {
		assert.Equal(t, agents.StatusIdle, a.Status)
		assert.Empty(t, a.TaskID)
	}
	assert.Empty(t, snap.Activities)
}

func TestMachineIdempotentTransitionRefreshesActivity(t *testing.T) {
	now := time.Unix(1000, 0)
	m := newMachine(func() time.Time { return now })

	m.Apply(stream.AuthorSignal{Author: agents.RootAgentID, Partial: true})
	first := m.Snapshot()

	now = now.Add(5 * time.Second)
	m.Apply(stream.AuthorSignal{Author: agents.RootAgentID, Partial: true})
	second := m.Snapshot()

	a, _ := m.Agent(agents.RootAgentID)
	assert.Equal(t, agents.StatusProcessing, a.Status)
	require.NotNil(t, a.LastActivity)
	assert.Equal(t, now, *a.LastActivity)

	// No new activity entry for a repeated status.
	assert.Equal(t, len(first.Activities), len(second.Activities))
}

func TestMachineUnknownAgentIgnored(t *testing.T) {
	m := newMachine(nil)
	m.Apply(stream.ToolInvocation{AgentID: "nobody", CorrelationID: "cX"})
	m.Apply(stream.AuthorSignal{Author: "nobody", Partial: true})

	snap := m.Snapshot()
	assert.Equal(t, 0, snap.Stats.ActiveCount)
}

func TestMachineMarkAllError(t *testing.T) {
	m := newMachine(nil)
	m.Apply(stream.ToolInvocation{AgentID: agents.NewsAgentID, CorrelationID: "c1"})
	m.Apply(stream.AuthorSignal{Author: agents.RootAgentID, Partial: true})

	m.MarkAllError()

	for _, agent := range m.Snapshot().Agents {
		assert.Equal(t, agents.StatusError, agent.Status, agent.ID)
	}
}

func TestMachineActivityRingBounded(t *testing.T) {
	m := newMachine(nil)
	for i := 0; i < 60; i++ {
		m.Apply(stream.ToolInvocation{AgentID: agents.NewsAgentID, CorrelationID: "a"})
		m.Apply(stream.ToolResult{AgentID: agents.NewsAgentID, CorrelationID: "a"})
	}
	snap := m.Snapshot()
	assert.LessOrEqual(t, len(snap.Activities), 50)
}

func TestMachineStatsTrackActiveAgents(t *testing.T) {
	m := newMachine(nil)
	m.Apply(stream.ToolInvocation{AgentID: agents.NewsAgentID, CorrelationID: "c1"})
	m.Apply(stream.ToolInvocation{AgentID: agents.MarketAgentID, CorrelationID: "c2"})

	snap := m.Snapshot()
	assert.Equal(t, 2, snap.Stats.ActiveCount)
	require.Len(t, snap.Active, 2)
	require.NotNil(t, snap.Stats.LastActivity)
}
