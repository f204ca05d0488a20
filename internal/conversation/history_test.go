package conversation_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmind-ai/marketmind/internal/agents"
	"github.com/marketmind-ai/marketmind/internal/conversation"
	"github.com/marketmind-ai/marketmind/sdk/engine"
)

func testRegistry() *agents.Registry {
	return agents.NewRegistry(agents.Defaults())
}

func textEvent(author, text string, ts float64) engine.Event {
	return engine.Event{
		Author:    author,
		Timestamp: ts,
		Content:   engine.Content{Parts: []engine.Part{{Text: text}}},
	}
}

func TestReconstructOrdersByTimestamp(t *testing.T) {
	sess := &engine.Session{
		Name: engine.SessionName("s1"),
		Events: []engine.Event{
			textEvent(agents.RootAgentID, "the answer", 200),
			textEvent("user", "the question", 100),
		},
	}

	msgs := conversation.ReconstructHistory(sess, testRegistry())
	require.Len(t, msgs, 2)
	assert.Equal(t, "the question", msgs[0].Content)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
	assert.Equal(t, "the answer", msgs[1].Content)
	assert.Equal(t, conversation.RoleAssistant, msgs[1].Role)
	assert.Equal(t, agents.RootAgentID, msgs[1].AgentID)
}

func TestReconstructSkipsEmptyEvents(t *testing.T) {
	sess := &engine.Session{
		Name: engine.SessionName("s1"),
		Events: []engine.Event{
			{Author: agents.RootAgentID, Timestamp: 100, Content: engine.Content{Parts: []engine.Part{
				{FunctionCall: &engine.FunctionCall{Name: agents.NewsAgentID, ID: "c1"}},
			}}},
			textEvent("user", "hello", 110),
		},
	}

	msgs := conversation.ReconstructHistory(sess, testRegistry())
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestReconstructAuthorlessEventsReadAsUser(t *testing.T) {
	// Events written without an author always read back as user messages,
	// even when the content role says otherwise. Reclassifying would fork the
	// history a user sees before and after a reload.
	sess := &engine.Session{
		Name: engine.SessionName("s1"),
		Events: []engine.Event{
			{Timestamp: 100, Content: engine.Content{Role: "model", Parts: []engine.Part{{Text: "orphaned text"}}}},
		},
	}

	msgs := conversation.ReconstructHistory(sess, testRegistry())
	require.Len(t, msgs, 1)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
}

func TestReconstructUnknownAuthorIsAssistant(t *testing.T) {
	sess := &engine.Session{
		Name:   engine.SessionName("s1"),
		Events: []engine.Event{textEvent("some_future_agent", "from the future", 100)},
	}

	msgs := conversation.ReconstructHistory(sess, testRegistry())
	require.Len(t, msgs, 1)
	assert.Equal(t, conversation.RoleAssistant, msgs[0].Role)
	assert.Empty(t, msgs[0].AgentID)
}

func TestReconstructStateOrphans(t *testing.T) {
	state, _ := json.Marshal(map[string]any{
		"news_analyst_output": "Samsung announced a new chip line.",
		"visit_count":         3,
		"empty":               "  ",
	})
	sess := &engine.Session{
		Name:       engine.SessionName("s1"),
		State:      state,
		UpdateTime: time.Unix(500, 0),
		Events:     []engine.Event{textEvent("user", "any chip news?", 100)},
	}

	msgs := conversation.ReconstructHistory(sess, testRegistry())
	require.Len(t, msgs, 2)
	orphan := msgs[1]
	assert.Equal(t, conversation.RoleAssistant, orphan.Role)
	assert.Equal(t, agents.NewsAgentID, orphan.AgentID)
	assert.Equal(t, "Samsung announced a new chip line.", orphan.Content)
	assert.Equal(t, time.Unix(500, 0), orphan.Timestamp)
}

func TestReconstructStateValueAlreadyInEvents(t *testing.T) {
	state, _ := json.Marshal(map[string]string{
		"market_analyst_output": "volume was flat",
	})
	sess := &engine.Session{
		Name:       engine.SessionName("s1"),
		State:      state,
		UpdateTime: time.Unix(500, 0),
		Events:     []engine.Event{textEvent(agents.MarketAgentID, "Overall, volume was flat today.", 100)},
	}

	msgs := conversation.ReconstructHistory(sess, testRegistry())
	require.Len(t, msgs, 1)
}

func TestReconstructTopicClassificationByContent(t *testing.T) {
	state, _ := json.Marshal(map[string]string{
		"analysis_result": "The backtest shows a 12% max drawdown.",
	})
	sess := &engine.Session{
		Name:       engine.SessionName("s1"),
		State:      state,
		UpdateTime: time.Unix(500, 0),
	}

	msgs := conversation.ReconstructHistory(sess, testRegistry())
	require.Len(t, msgs, 1)
	assert.Equal(t, agents.RiskAgentID, msgs[0].AgentID)
}

func TestReconstructCollapsesNearDuplicates(t *testing.T) {
	sess := &engine.Session{
		Name: engine.SessionName("s1"),
		Events: []engine.Event{
			textEvent(agents.RootAgentID, "Final summary.", 100),
			textEvent(agents.RootAgentID, "Final summary.", 101.5),
			textEvent(agents.RootAgentID, "Final summary.", 110),
		},
	}

	msgs := conversation.ReconstructHistory(sess, testRegistry())
	// The 1.5s twin collapses; the 10s-later repeat is a genuine new message.
	require.Len(t, msgs, 2)
}

func TestReconstructDifferentRolesNeverCollapse(t *testing.T) {
	sess := &engine.Session{
		Name: engine.SessionName("s1"),
		Events: []engine.Event{
			textEvent("user", "ok", 100),
			textEvent(agents.RootAgentID, "ok", 100.5),
		},
	}

	msgs := conversation.ReconstructHistory(sess, testRegistry())
	require.Len(t, msgs, 2)
}

func TestReconstructNilSession(t *testing.T) {
	assert.Nil(t, conversation.ReconstructHistory(nil, testRegistry()))
}
