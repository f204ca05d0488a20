// Package session validates, repairs, and recovers the durable session
// object the backend owns. The backend is the source of truth for persisted
// history, but it does return incomplete or stale shapes; this package keeps
// them from reaching the rest of the client.
package session

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/marketmind-ai/marketmind/sdk/engine"
)

// ValidationResult is the structured outcome of validating a session. It is
// always returned by value; validation itself never fails.
type ValidationResult struct {
	IsValid    bool
	Errors     []string
	Warnings   []string
	SessionID  string
	CanRecover bool
}

// Validate checks the structural integrity of a session. knownID is the id
// the caller fetched the session under; it makes an otherwise-anonymous
// corpse recoverable.
//
// A session is valid when its name, display name, state, and events are all
// well-formed. It is recoverable when a session id can be determined even if
// everything else is missing.
func Validate(s *engine.Session, knownID string) ValidationResult {
	var res ValidationResult

	if s == nil {
		res.Errors = append(res.Errors, "session is nil")
		res.SessionID = knownID
		res.CanRecover = knownID != ""
		return res
	}

	if s.Name == "" {
		res.Errors = append(res.Errors, "missing resource name")
	}
	res.SessionID = engine.SessionID(s.Name)
	if res.SessionID == "" {
		res.SessionID = knownID
	}
	if res.SessionID == "" {
		res.Errors = append(res.Errors, "no session id extractable")
	}

	if s.DisplayName == "" {
		res.Errors = append(res.Errors, "missing display name")
	}

	if len(s.State) > 0 {
		parsed := gjson.ParseBytes(s.State)
		if !parsed.IsObject() {
			res.Errors = append(res.Errors, "state is not a JSON object")
		}
	}

	if len(s.Events) == 0 {
		res.Warnings = append(res.Warnings, "session carries no event history")
	}
	for i, ev := range s.Events {
		if ev.Author == "" && ev.Text() != "" {
			// Authorless events are treated as user messages on
			// reconstruction even when the content looks agent-authored.
			res.Warnings = append(res.Warnings, fmt.Sprintf("event %d has no author; it will read back as a user message", i))
			break
		}
	}
	if s.UpdateTime.IsZero() {
		res.Warnings = append(res.Warnings, "missing update timestamp")
	}

	res.IsValid = len(res.Errors) == 0
	res.CanRecover = res.SessionID != ""
	return res
}

// Sanitize synthesizes a complete session from a partial or corrupt one,
// filling every missing field with a deterministic default derived from the
// session id. The input is not mutated. Sanitization is idempotent: a
// sanitized session re-validates as valid and sanitizes to itself.
//
// It returns ok=false when no id is available or the synthesized session
// still fails validation.
func Sanitize(partial *engine.Session, id string) (*engine.Session, bool) {
	if id == "" && partial != nil {
		id = engine.SessionID(partial.Name)
	}
	if id == "" {
		return nil, false
	}

	var out engine.Session
	if partial != nil {
		out = *partial
	}

	if engine.SessionID(out.Name) == "" {
		out.Name = engine.SessionName(id)
	}
	if out.DisplayName == "" {
		out.DisplayName = DefaultDisplayName(id)
	}
	if len(out.State) == 0 {
		out.State = []byte("{}")
	}
	if out.Events == nil {
		out.Events = []engine.Event{}
	}
	now := time.Now()
	if out.CreateTime.IsZero() {
		out.CreateTime = now
	}
	if out.UpdateTime.IsZero() {
		out.UpdateTime = now
	}
	out.Active = true

	if res := Validate(&out, id); !res.IsValid {
		return nil, false
	}
	return &out, true
}

// DefaultDisplayName derives the placeholder label the backend also uses for
// unnamed sessions.
func DefaultDisplayName(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return "Session " + id
}
