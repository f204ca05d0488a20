package mock_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/marketmind-ai/marketmind/internal/agents"
	"github.com/marketmind-ai/marketmind/internal/mock"
	"github.com/marketmind-ai/marketmind/sdk/engine"
)

func newGateway(t *testing.T) *engine.Client {
	t.Helper()
	gateway := mock.NewServer()
	gateway.TokenDelay = 0
	srv := httptest.NewServer(gateway.Handler())
	t.Cleanup(srv.Close)
	return engine.NewClient(srv.URL)
}

func TestMockSessionLifecycle(t *testing.T) {
	client := newGateway(t)
	ctx := context.Background()

	created, err := client.CreateSession(ctx, &engine.CreateSessionRequest{UserID: "u_1"})
	require.NoError(t, err)
	id := engine.SessionID(created.Name)
	require.NotEmpty(t, id)
	assert.True(t, created.Active)

	require.NoError(t, client.UpdateSessionDisplayName(ctx, "u_1", id, "Renamed"))
	got, err := client.GetSession(ctx, "u_1", id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.DisplayName)

	page, err := client.ListSessions(ctx, "u_1", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Sessions, 1)

	require.NoError(t, client.DeleteSession(ctx, "u_1", id))
	_, err = client.GetSession(ctx, "u_1", id)
	assert.True(t, engine.IsNotFound(err))
}

func TestMockListSessionsBadPageToken(t *testing.T) {
	client := newGateway(t)
	ctx := context.Background()

	_, err := client.CreateSession(ctx, &engine.CreateSessionRequest{UserID: "u_1"})
	require.NoError(t, err)

	// Page tokens are opaque echoes; a malformed one reads as the first page.
	page, err := client.ListSessions(ctx, "u_1", 10, "-3")
	require.NoError(t, err)
	assert.Len(t, page.Sessions, 1)

	page, err = client.ListSessions(ctx, "u_1", 10, "garbage")
	require.NoError(t, err)
	assert.Len(t, page.Sessions, 1)
}

func TestMockCreateSessionAppName(t *testing.T) {
	client := newGateway(t)
	ctx := context.Background()

	sess, err := client.CreateSession(ctx, &engine.CreateSessionRequest{UserID: "u_1", AppName: "custom-app"})
	require.NoError(t, err)
	assert.Equal(t, "custom-app", sess.AppName)

	sess, err = client.CreateSession(ctx, &engine.CreateSessionRequest{UserID: "u_1"})
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultAppName, sess.AppName)
}

func TestMockStreamScriptsFullTurn(t *testing.T) {
	client := newGateway(t)
	ctx := context.Background()

	created, err := client.CreateSession(ctx, &engine.CreateSessionRequest{UserID: "u_1"})
	require.NoError(t, err)
	id := engine.SessionID(created.Name)

	frames, errCh, err := client.StreamQuery(ctx, &engine.StreamRequest{
		UserID:    "u_1",
		SessionID: id,
		Message:   "what is the risk of a drawdown?",
	})
	require.NoError(t, err)

	var events []engine.Event
	for frame := range frames {
		var ev engine.Event
		require.NoError(t, json.Unmarshal([]byte(frame), &ev))
		events = append(events, ev)
	}
	require.NoError(t, <-errCh)
	require.NotEmpty(t, events)

	// The scripted turn opens with the user echo and closes with a
	// non-partial accumulated frame from the coordinator.
	assert.Equal(t, agents.UserAuthor, events[0].Author)
	last := events[len(events)-1]
	assert.Equal(t, agents.RootAgentID, last.Author)
	assert.False(t, last.Partial)
	assert.NotEmpty(t, last.Text())

	var sawCall, sawResult bool
	for _, ev := range events {
		for _, p := range ev.Content.Parts {
			if p.FunctionCall != nil {
				assert.Equal(t, agents.RiskAgentID, p.FunctionCall.Name)
				sawCall = true
			}
			if p.FunctionResponse != nil {
				sawResult = true
			}
		}
	}
	assert.True(t, sawCall)
	assert.True(t, sawResult)

	// The analyst's output lands under its session state key.
	got, err := client.GetSession(ctx, "u_1", id)
	require.NoError(t, err)
	output := gjson.GetBytes(got.State, "risk_analyst_output")
	assert.True(t, output.Exists())
	assert.NotEmpty(t, got.Events)
}

func TestMockStreamUnknownSession(t *testing.T) {
	client := newGateway(t)
	_, _, err := client.StreamQuery(context.Background(), &engine.StreamRequest{
		UserID:    "u_1",
		SessionID: "ghost",
		Message:   "hello",
	})
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))
}
