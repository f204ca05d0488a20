package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmind-ai/marketmind/internal/session"
	"github.com/marketmind-ai/marketmind/sdk/engine"
)

func validSession() *engine.Session {
	return &engine.Session{
		Name:        engine.SessionName("abcd1234efgh"),
		DisplayName: "Chip market chat",
		State:       []byte(`{"news_analyst_output":"x"}`),
		Events: []engine.Event{
			{Author: "user", Content: engine.Content{Parts: []engine.Part{{Text: "hi"}}}},
		},
		CreateTime: time.Unix(100, 0),
		UpdateTime: time.Unix(200, 0),
		Active:     true,
	}
}

func TestValidateHealthySession(t *testing.T) {
	res := session.Validate(validSession(), "")
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "abcd1234efgh", res.SessionID)
	assert.True(t, res.CanRecover)
}

func TestValidateNilSession(t *testing.T) {
	res := session.Validate(nil, "known-id")
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Errors)
	assert.Equal(t, "known-id", res.SessionID)
	assert.True(t, res.CanRecover)

	res = session.Validate(nil, "")
	assert.False(t, res.CanRecover)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	s := &engine.Session{State: []byte(`"not an object"`)}
	res := session.Validate(s, "fallback-id")

	assert.False(t, res.IsValid)
	// Missing name, missing display name, malformed state: all reported at
	// once, not first-error-wins.
	assert.GreaterOrEqual(t, len(res.Errors), 3)
	assert.Equal(t, "fallback-id", res.SessionID)
	assert.True(t, res.CanRecover)
}

func TestValidateWarningsAreNotErrors(t *testing.T) {
	s := validSession()
	s.Events = nil
	s.UpdateTime = time.Time{}

	res := session.Validate(s, "")
	assert.True(t, res.IsValid)
	assert.NotEmpty(t, res.Warnings)
}

func TestValidateAuthorlessEventWarning(t *testing.T) {
	s := validSession()
	s.Events = append(s.Events, engine.Event{
		Content: engine.Content{Role: "model", Parts: []engine.Part{{Text: "agent-looking text"}}},
	})

	res := session.Validate(s, "")
	assert.True(t, res.IsValid)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "no author")
}

func TestSanitizeFillsAllDefaults(t *testing.T) {
	fixed, ok := session.Sanitize(&engine.Session{}, "abcd1234efgh")
	require.True(t, ok)

	assert.Equal(t, engine.SessionName("abcd1234efgh"), fixed.Name)
	assert.Equal(t, "Session abcd1234", fixed.DisplayName)
	assert.JSONEq(t, "{}", string(fixed.State))
	assert.NotNil(t, fixed.Events)
	assert.False(t, fixed.CreateTime.IsZero())
	assert.True(t, fixed.Active)

	res := session.Validate(fixed, "")
	assert.True(t, res.IsValid)
}

func TestSanitizeIsIdempotent(t *testing.T) {
	first, ok := session.Sanitize(&engine.Session{}, "abcd1234efgh")
	require.True(t, ok)

	second, ok := session.Sanitize(first, "abcd1234efgh")
	require.True(t, ok)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, first.DisplayName, second.DisplayName)
	assert.Equal(t, first.CreateTime, second.CreateTime)
}

func TestSanitizePreservesExistingFields(t *testing.T) {
	partial := &engine.Session{
		Name:        engine.SessionName("abcd1234efgh"),
		DisplayName: "Keep me",
		Events:      []engine.Event{{Author: "user"}},
	}
	fixed, ok := session.Sanitize(partial, "")
	require.True(t, ok)
	assert.Equal(t, "Keep me", fixed.DisplayName)
	assert.Len(t, fixed.Events, 1)

	// The input is never mutated.
	assert.Empty(t, partial.State)
	assert.False(t, partial.Active)
}

func TestSanitizeWithoutIDFails(t *testing.T) {
	_, ok := session.Sanitize(nil, "")
	assert.False(t, ok)

	_, ok = session.Sanitize(&engine.Session{}, "")
	assert.False(t, ok)
}

func TestDefaultDisplayName(t *testing.T) {
	assert.Equal(t, "Session abcd1234", session.DefaultDisplayName("abcd1234efgh"))
	assert.Equal(t, "Session short", session.DefaultDisplayName("short"))
}
