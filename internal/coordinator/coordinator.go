// Package coordinator owns the lifecycle of one user turn: ensure a session
// exists, send the turn, open the stream, and route interpreter output into
// the agent state machine and the message assembler. It is the single entry
// point the rendering layer drives.
package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/marketmind-ai/marketmind/internal/agents"
	"github.com/marketmind-ai/marketmind/internal/conversation"
	"github.com/marketmind-ai/marketmind/internal/session"
	"github.com/marketmind-ai/marketmind/internal/stream"
	"github.com/marketmind-ai/marketmind/sdk/engine"
)

// DefaultDebounce is the minimum spacing between submissions.
const DefaultDebounce = 750 * time.Millisecond

// displayNameLimit caps derived session titles.
const displayNameLimit = 64

// promptPrefix is the quick-command prefix the input widget prepends; it is
// stripped before a title is derived from the turn text.
const promptPrefix = "Analyze:"

var (
	// ErrTooSoon rejects a submission inside the debounce window.
	ErrTooSoon = errors.New("submission debounced")
	// ErrBusy rejects a submission while a session load is in progress.
	ErrBusy = errors.New("session load in progress")
	// ErrRecoveryExhausted reports that bounded session recovery gave up.
	ErrRecoveryExhausted = errors.New("session recovery exhausted")
)

// Coordinator wires the streaming pipeline together for one conversation at
// a time. All collaborators are injected at construction; there is no
// ambient global state.
type Coordinator struct {
	client    *engine.Client
	registry  *agents.Registry
	machine   *agents.Machine
	assembler *conversation.Assembler
	interp    *stream.Interpreter
	logger    *engine.Logger

	userID   string
	debounce time.Duration
	clock    func() time.Time
	onUpdate func()

	mu         sync.Mutex
	active     *engine.Session
	sessions   []engine.Session
	lastSubmit time.Time
	loading    bool
	hintAgent  string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDebounce overrides the submission spacing window.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) {
		c.debounce = d
	}
}

// WithClock substitutes the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithLogger overrides the logger.
func WithLogger(l *engine.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnUpdate registers a callback fired whenever observable state changes
// (new tokens, agent transitions). The rendering layer uses it to repaint.
func WithOnUpdate(fn func()) Option {
	return func(c *Coordinator) {
		c.onUpdate = fn
	}
}

// New creates a coordinator for one user against one backend.
func New(client *engine.Client, registry *agents.Registry, userID string, opts ...Option) *Coordinator {
	c := &Coordinator{
		client:    client,
		registry:  registry,
		machine:   agents.NewMachine(registry),
		assembler: conversation.NewAssembler(),
		userID:    userID,
		debounce:  DefaultDebounce,
		clock:     time.Now,
		onUpdate:  func() {},
		logger:    engine.GetLogger(),
		hintAgent: registry.Root().ID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.interp = stream.NewInterpreter(registry)
	c.interp.SetLogger(c.logger)
	return c
}

// AgentsSnapshot exposes the live agent view to the rendering layer.
func (c *Coordinator) AgentsSnapshot() agents.Snapshot {
	return c.machine.Snapshot()
}

// Messages exposes the conversation to the rendering layer.
func (c *Coordinator) Messages() []conversation.ChatMessage {
	return c.assembler.Messages()
}

// HintAgent returns the keyword-selected agent for the latest turn. It is a
// display hint only; the backend decides actual routing.
func (c *Coordinator) HintAgent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hintAgent
}

// Sessions returns the cached session list.
func (c *Coordinator) Sessions() []engine.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]engine.Session, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// ActiveSessionID returns the id of the active session, or "".
func (c *Coordinator) ActiveSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ""
	}
	return engine.SessionID(c.active.Name)
}

// SendTurn runs one complete user turn: debounce check, agent reset, user
// message, session ensure, stream open, and signal routing. It blocks until
// the stream ends; the rendering layer runs it on its own goroutine and
// repaints from the OnUpdate callback.
func (c *Coordinator) SendTurn(ctx context.Context, text string) error {
	c.mu.Lock()
	now := c.clock()
	if !c.lastSubmit.IsZero() && now.Sub(c.lastSubmit) < c.debounce {
		c.mu.Unlock()
		return ErrTooSoon
	}
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.lastSubmit = now
	c.hintAgent = c.registry.Hint(text)
	c.mu.Unlock()

	c.machine.ResetAll()
	c.assembler.AddUser(text)
	c.notify()

	sess, err := c.ensureSession(ctx, text)
	if err != nil {
		// No stream was opened and no assistant message created; the turn
		// ends here with a classified local notice.
		c.machine.MarkAllError()
		c.assembler.AddAssistant(classifyError(err), "")
		c.notify()
		return err
	}

	msgID := c.assembler.Begin(conversation.RoleAssistant, c.registry.Root().ID)
	c.notify()

	frames, errCh, err := c.client.StreamQuery(ctx, &engine.StreamRequest{
		UserID:    c.userID,
		SessionID: engine.SessionID(sess.Name),
		Message:   text,
	})
	if err != nil {
		c.failTurn(msgID, err)
		return err
	}

	for frame := range frames {
		for _, sig := range c.interp.Interpret(frame) {
			c.machine.Apply(sig)
			if tok, ok := sig.(stream.TextToken); ok {
				if err := c.assembler.AppendToken(msgID, tok.Text); err != nil {
					c.logger.Warn("dropped token", "error", err)
				}
			}
		}
		c.notify()
	}

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		c.failTurn(msgID, err)
		return err
	}

	c.assembler.Finalize(msgID)
	c.machine.ResetAll()
	c.notify()
	return nil
}

// StartNewConversation drops the active session and clears live state. The
// next turn creates a fresh session.
func (c *Coordinator) StartNewConversation() {
	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()
	c.machine.ResetAll()
	c.assembler.Clear()
	c.notify()
}

// LoadConversation fetches a session by id, running the bounded recovery
// protocol on bad data, and reconstructs its history. A gone session
// silently becomes a fresh conversation.
func (c *Coordinator) LoadConversation(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.loading = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	rec := session.NewRecovery(id, func(ctx context.Context) (*engine.Session, error) {
		return c.client.GetSession(ctx, c.userID, id)
	}, session.WithRecoveryLogger(c.logger))

	sess, state := rec.Run(ctx)
	switch state {
	case session.RecoveryRecovered:
		c.mu.Lock()
		c.active = sess
		c.mu.Unlock()
		c.machine.ResetAll()
		c.assembler.Load(conversation.ReconstructHistory(sess, c.registry))
		c.notify()
		return nil
	case session.RecoveryAbandoned:
		c.StartNewConversation()
		return nil
	default:
		c.assembler.AddAssistant(msgRecoveryExhausted, "")
		c.notify()
		return ErrRecoveryExhausted
	}
}

// RefreshSessions reloads the cached session list.
func (c *Coordinator) RefreshSessions(ctx context.Context) error {
	page, err := c.client.ListSessions(ctx, c.userID, 0, "")
	if err != nil {
		return err
	}
	for i := range page.Sessions {
		if page.Sessions[i].DisplayName == "" {
			page.Sessions[i].DisplayName = session.DefaultDisplayName(engine.SessionID(page.Sessions[i].Name))
		}
	}
	c.mu.Lock()
	c.sessions = page.Sessions
	c.mu.Unlock()
	c.notify()
	return nil
}

// DeleteSession removes a session and drops it from the cache. Deleting the
// active session starts a fresh conversation.
func (c *Coordinator) DeleteSession(ctx context.Context, id string) error {
	if err := c.client.DeleteSession(ctx, c.userID, id); err != nil {
		return err
	}
	if c.ActiveSessionID() == id {
		c.StartNewConversation()
	}
	return c.RefreshSessions(ctx)
}

// ensureSession reuses the active session when it is structurally valid and
// otherwise creates a new one, patching its display name asynchronously from
// the turn text.
func (c *Coordinator) ensureSession(ctx context.Context, text string) (*engine.Session, error) {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active != nil {
		if res := session.Validate(active, ""); res.IsValid {
			return active, nil
		}
		c.logger.Warn("active session invalid, creating a new one")
	}

	created, err := c.client.CreateSession(ctx, &engine.CreateSessionRequest{UserID: c.userID})
	if err != nil {
		return nil, err
	}
	if res := session.Validate(created, ""); !res.IsValid {
		fixed, ok := session.Sanitize(created, res.SessionID)
		if !ok {
			return nil, errors.New("created session is unusable")
		}
		created = fixed
	}

	c.mu.Lock()
	c.active = created
	c.mu.Unlock()

	id := engine.SessionID(created.Name)
	title := DeriveTitle(text)
	go func() {
		patchCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.client.UpdateSessionDisplayName(patchCtx, c.userID, id, title); err != nil {
			c.logger.Warn("display name patch failed", "session_id", id, "error", err)
		}
		if err := c.RefreshSessions(patchCtx); err != nil {
			c.logger.Warn("session list refresh failed", "error", err)
		}
	}()

	return created, nil
}

// failTurn finalizes the in-flight message, marks every agent errored, and
// appends a local classified notice. Stream failures end the turn but never
// crash the session or agent state.
func (c *Coordinator) failTurn(msgID string, err error) {
	c.logger.Error("turn failed", "error", err)
	c.assembler.Finalize(msgID)
	c.machine.MarkAllError()
	c.assembler.AddAssistant(classifyError(err), "")
	c.notify()
}

func (c *Coordinator) notify() {
	c.onUpdate()
}

// DeriveTitle builds a session display name from the first sentence of the
// user's turn, stripped of the quick-command prefix and capped at 64 runes.
func DeriveTitle(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, promptPrefix) {
		text = strings.TrimSpace(strings.TrimPrefix(text, promptPrefix))
	}

	if idx := strings.IndexAny(text, ".!?\n"); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)

	if runes := []rune(text); len(runes) > displayNameLimit {
		text = string(runes[:displayNameLimit])
	}
	if text == "" {
		text = "New conversation"
	}
	return text
}
