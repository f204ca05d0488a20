package engine

import "encoding/json"

// Event is one structured record produced by the agent runtime, both as a
// live stream frame payload and as an entry in a session's persisted history.
type Event struct {
	Author       string  `json:"author,omitempty"`
	Partial      bool    `json:"partial,omitempty"`
	InvocationID string  `json:"invocationId,omitempty"`
	Timestamp    float64 `json:"timestamp,omitempty"`
	Content      Content `json:"content,omitempty"`
}

// Content carries the event's role and content parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part is one content part: text, a tool invocation, or a tool result.
// Exactly one field is expected to be set.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall is a tool invocation emitted by an agent.
type FunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
	ID   string          `json:"id,omitempty"`
}

// FunctionResponse is the result of a tool invocation.
type FunctionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response,omitempty"`
	ID       string          `json:"id,omitempty"`
}

// Text concatenates the text of every text part in the event.
func (e Event) Text() string {
	var out string
	for _, p := range e.Content.Parts {
		out += p.Text
	}
	return out
}
