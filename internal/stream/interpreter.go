package stream

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/marketmind-ai/marketmind/sdk/engine"
)

// Resolver matches tool names against the known-agent registry. A tool name
// may or may not coincide with an agent id; unresolved names are not agent
// events.
type Resolver interface {
	ResolveTool(name string) (agentID string, ok bool)
}

// Interpreter parses frame payloads into signals.
type Interpreter struct {
	resolver Resolver
	logger   *engine.Logger
}

// NewInterpreter creates an interpreter backed by the given resolver.
func NewInterpreter(resolver Resolver) *Interpreter {
	return &Interpreter{
		resolver: resolver,
		logger:   engine.GetLogger(),
	}
}

// SetLogger overrides the interpreter's logger.
func (i *Interpreter) SetLogger(l *engine.Logger) {
	if l != nil {
		i.logger = l
	}
}

// Interpret parses one frame's payload and extracts its signals, in order:
// author signal, tool invocations, tool results, text. A payload that is not
// valid JSON is skipped; one corrupt frame must never kill the whole turn.
//
// Text only surfaces from partial frames. A non-partial frame carrying text
// is the backend's accumulated echo of content already streamed and is
// discarded, not re-appended.
func (i *Interpreter) Interpret(frame engine.Frame) []Signal {
	var ev engine.Event
	if err := json.Unmarshal([]byte(frame), &ev); err != nil {
		i.logger.Warn("skipping malformed frame", "error", err)
		return nil
	}

	var signals []Signal

	if ev.Author != "" {
		signals = append(signals, AuthorSignal{Author: ev.Author, Partial: ev.Partial})
	}

	for _, part := range ev.Content.Parts {
		if part.FunctionCall == nil {
			continue
		}
		agentID, ok := i.resolver.ResolveTool(part.FunctionCall.Name)
		if !ok {
			continue
		}
		signals = append(signals, ToolInvocation{
			AgentID:       agentID,
			Tool:          part.FunctionCall.Name,
			Args:          decodeArgs(part.FunctionCall.Args),
			CorrelationID: part.FunctionCall.ID,
		})
	}

	for _, part := range ev.Content.Parts {
		if part.FunctionResponse == nil {
			continue
		}
		agentID, ok := i.resolver.ResolveTool(part.FunctionResponse.Name)
		if !ok {
			continue
		}
		signals = append(signals, ToolResult{
			AgentID:       agentID,
			Tool:          part.FunctionResponse.Name,
			IsError:       gjson.GetBytes(part.FunctionResponse.Response, "error").Exists(),
			CorrelationID: part.FunctionResponse.ID,
		})
	}

	if ev.Partial {
		if text := ev.Text(); text != "" {
			signals = append(signals, TextToken{Author: ev.Author, Text: text})
		}
	}

	return signals
}

// decodeArgs parses invocation arguments. Some runtimes double-encode args as
// a JSON string; those are opportunistically re-parsed, and anything that
// does not end up an object defaults to empty args.
func decodeArgs(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}

	v := gjson.ParseBytes(raw)
	if v.Type == gjson.String {
		v = gjson.Parse(v.String())
	}
	if !v.IsObject() {
		return map[string]any{}
	}

	args, _ := v.Value().(map[string]any)
	if args == nil {
		args = map[string]any{}
	}
	return args
}
