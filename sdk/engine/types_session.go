package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultAppName is the app namespace used when none is configured.
const DefaultAppName = "marketmind"

// Session is the durable, backend-owned record of one conversation. Name is a
// hierarchical resource path whose final segment is the session id:
//
//	projects/{project}/locations/{location}/reasoningEngines/{engine}/sessions/{id}
type Session struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName,omitempty"`
	State       json.RawMessage `json:"sessionState,omitempty"`
	Events      []Event         `json:"events,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	AppName     string          `json:"appName,omitempty"`
	CreateTime  time.Time       `json:"createTime,omitempty"`
	UpdateTime  time.Time       `json:"updateTime,omitempty"`
	Active      bool            `json:"isActive,omitempty"`
}

// SessionPage is one page of a session listing.
type SessionPage struct {
	Sessions      []Session `json:"sessions"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
}

// CreateSessionRequest creates a new session for a user.
type CreateSessionRequest struct {
	UserID      string          `json:"user_id"`
	AppName     string          `json:"app_name,omitempty"`
	State       json.RawMessage `json:"state,omitempty"`
	DisplayName string          `json:"displayName,omitempty"`
}

// UpdateSessionRequest patches a session's display name.
type UpdateSessionRequest struct {
	DisplayName string `json:"displayName"`
}

// SessionID extracts the session id from a hierarchical resource name. It
// returns "" when no id can be extracted.
func SessionID(name string) string {
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		return ""
	}
	idx := strings.LastIndex(name, "/")
	if idx < 0 {
		// A bare id is accepted as a degenerate resource name.
		return name
	}
	return name[idx+1:]
}

// SessionName reconstructs a resource name from a bare session id. Placeholder
// segments are used for the engine path; the backend resolves sessions by the
// final segment only.
func SessionName(id string) string {
	return fmt.Sprintf("projects/-/locations/-/reasoningEngines/-/sessions/%s", id)
}
