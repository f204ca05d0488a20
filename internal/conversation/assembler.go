package conversation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Assembler accumulates text tokens into a growing message and maintains the
// ordered message list. At most one message is streaming at any instant; a
// Begin while another message is still streaming finalizes the older one
// first.
type Assembler struct {
	mu        sync.RWMutex
	messages  []ChatMessage
	index     map[string]int
	streaming string
	clock     func() time.Time
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithClock substitutes the time source, for tests.
func WithClock(clock func() time.Time) AssemblerOption {
	return func(a *Assembler) {
		a.clock = clock
	}
}

// NewAssembler creates an empty assembler.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		index: make(map[string]int),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddUser appends a complete user message.
func (a *Assembler) AddUser(text string) ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	msg := ChatMessage{
		ID:        uuid.NewString(),
		Content:   text,
		Role:      RoleUser,
		Timestamp: a.clock(),
	}
	a.appendLocked(msg)
	return msg
}

// AddAssistant appends a complete assistant message. Used for locally
// generated notices (error messages in particular) that never stream and are
// never sent to the backend.
func (a *Assembler) AddAssistant(text, agentID string) ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	msg := ChatMessage{
		ID:        uuid.NewString(),
		Content:   text,
		Role:      RoleAssistant,
		AgentID:   agentID,
		Timestamp: a.clock(),
	}
	a.appendLocked(msg)
	return msg
}

// Begin creates an empty streaming message and returns its id.
func (a *Assembler) Begin(role Role, agentID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.streaming != "" {
		a.finalizeLocked(a.streaming)
	}

	msg := ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		AgentID:   agentID,
		Timestamp: a.clock(),
		Streaming: true,
	}
	a.appendLocked(msg)
	a.streaming = msg.ID
	return msg.ID
}

// AppendToken concatenates text onto the identified message. The message
// must exist and still be streaming.
func (a *Assembler) AppendToken(id, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	i, ok := a.index[id]
	if !ok {
		return fmt.Errorf("append to unknown message %s", id)
	}
	if !a.messages[i].Streaming {
		return fmt.Errorf("append to finalized message %s", id)
	}
	a.messages[i].Content += text
	return nil
}

// Finalize flips the message out of streaming; its content is immutable
// afterward. Finalizing an unknown or already-final message is a no-op.
func (a *Assembler) Finalize(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finalizeLocked(id)
}

// SetContent replaces a streaming message's content wholesale. Used for
// locally generated error messages that never streamed token-by-token.
func (a *Assembler) SetContent(id, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i, ok := a.index[id]; ok && a.messages[i].Streaming {
		a.messages[i].Content = text
	}
}

// Load replaces the message list with a reconstructed history.
func (a *Assembler) Load(msgs []ChatMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.messages = make([]ChatMessage, len(msgs))
	copy(a.messages, msgs)
	a.index = make(map[string]int, len(msgs))
	a.streaming = ""
	for i := range a.messages {
		if a.messages[i].ID == "" {
			a.messages[i].ID = uuid.NewString()
		}
		a.messages[i].Streaming = false
		a.index[a.messages[i].ID] = i
	}
}

// Clear drops every message.
func (a *Assembler) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = nil
	a.index = make(map[string]int)
	a.streaming = ""
}

// Messages returns a copy of the current message list.
func (a *Assembler) Messages() []ChatMessage {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]ChatMessage, len(a.messages))
	copy(out, a.messages)
	return out
}

// StreamingID returns the id of the in-flight message, or "".
func (a *Assembler) StreamingID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.streaming
}

func (a *Assembler) appendLocked(msg ChatMessage) {
	a.index[msg.ID] = len(a.messages)
	a.messages = append(a.messages, msg)
}

func (a *Assembler) finalizeLocked(id string) {
	if i, ok := a.index[id]; ok {
		a.messages[i].Streaming = false
	}
	if a.streaming == id {
		a.streaming = ""
	}
}
