// Package conversation assembles streamed text tokens into chat messages and
// reconstructs conversations from persisted session history.
package conversation

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry in the conversation. Content is mutable while
// Streaming is true and immutable after finalization.
type ChatMessage struct {
	ID        string
	Content   string
	Role      Role
	Timestamp time.Time
	AgentID   string
	Streaming bool
}
