// Package stream interprets raw push-stream frames into typed signals for the
// agent state machine and the message assembler. One frame can yield zero or
// more signals; a malformed frame yields none and never aborts the stream.
package stream

// Signal is one interpreted fact extracted from a frame.
type Signal interface {
	signal()
}

// AuthorSignal reports which actor a frame belongs to, tagged with the
// frame's partial flag. It is emitted regardless of the frame's other
// content.
type AuthorSignal struct {
	Author  string
	Partial bool
}

// ToolInvocation reports an agent being called as a tool.
type ToolInvocation struct {
	AgentID       string
	Tool          string
	Args          map[string]any
	CorrelationID string
}

// ToolResult reports a tool invocation finishing, successfully or not.
type ToolResult struct {
	AgentID       string
	Tool          string
	IsError       bool
	CorrelationID string
}

// TextToken is an in-progress chunk of agent output text.
type TextToken struct {
	Author string
	Text   string
}

func (AuthorSignal) signal()   {}
func (ToolInvocation) signal() {}
func (ToolResult) signal()     {}
func (TextToken) signal()      {}
