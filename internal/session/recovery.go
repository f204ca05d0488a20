package session

import (
	"context"
	"sync"

	"github.com/marketmind-ai/marketmind/sdk/engine"
)

// RecoveryState is the explicit state of the bounded recovery protocol.
type RecoveryState int

const (
	// RecoveryIdle means no recovery has been attempted.
	RecoveryIdle RecoveryState = iota
	// RecoveryLoading means a reload attempt is in flight.
	RecoveryLoading
	// RecoveryRecovered is terminal: a usable session was obtained.
	RecoveryRecovered
	// RecoveryAbandoned is terminal: the session is gone; the client starts
	// a fresh conversation without surfacing an error.
	RecoveryAbandoned
	// RecoveryExhausted is terminal: attempts were used up without
	// resolution; a generic recoverable error is surfaced.
	RecoveryExhausted
)

func (s RecoveryState) String() string {
	switch s {
	case RecoveryIdle:
		return "idle"
	case RecoveryLoading:
		return "loading"
	case RecoveryRecovered:
		return "recovered"
	case RecoveryAbandoned:
		return "abandoned"
	case RecoveryExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the protocol has finished.
func (s RecoveryState) Terminal() bool {
	return s == RecoveryRecovered || s == RecoveryAbandoned || s == RecoveryExhausted
}

// DefaultMaxAttempts bounds reloads before recovery gives up.
const DefaultMaxAttempts = 2

// Loader fetches the session under recovery.
type Loader func(ctx context.Context) (*engine.Session, error)

// Recovery drives the reload-validate-sanitize protocol for one invalid
// active session, with an explicit attempt counter instead of retry
// recursion so the bound is testable on its own.
type Recovery struct {
	mu          sync.Mutex
	loader      Loader
	sessionID   string
	maxAttempts int
	attempts    int
	state       RecoveryState
	logger      *engine.Logger
}

// RecoveryOption configures a Recovery.
type RecoveryOption func(*Recovery)

// WithMaxAttempts overrides the reload bound.
func WithMaxAttempts(n int) RecoveryOption {
	return func(r *Recovery) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithRecoveryLogger overrides the logger.
func WithRecoveryLogger(l *engine.Logger) RecoveryOption {
	return func(r *Recovery) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecovery creates a recovery for the session identified by sessionID,
// reloaded through loader.
func NewRecovery(sessionID string, loader Loader, opts ...RecoveryOption) *Recovery {
	r := &Recovery{
		loader:      loader,
		sessionID:   sessionID,
		maxAttempts: DefaultMaxAttempts,
		state:       RecoveryIdle,
		logger:      engine.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current protocol state.
func (r *Recovery) State() RecoveryState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Attempts returns how many reloads have run.
func (r *Recovery) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// InFlight reports whether a reload is currently running. While true, the
// session must not be re-validated; validation is skipped, not queued, so
// repair can never recurse into itself.
func (r *Recovery) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == RecoveryLoading
}

// Run executes the protocol to a terminal state and returns the recovered
// session when the outcome is RecoveryRecovered. Calling Run while a run is
// in flight, or after a terminal state, returns immediately.
func (r *Recovery) Run(ctx context.Context) (*engine.Session, RecoveryState) {
	r.mu.Lock()
	if r.state == RecoveryLoading || r.state.Terminal() {
		state := r.state
		r.mu.Unlock()
		return nil, state
	}
	r.state = RecoveryLoading
	r.mu.Unlock()

	for {
		r.mu.Lock()
		if r.attempts >= r.maxAttempts {
			r.state = RecoveryExhausted
			r.mu.Unlock()
			r.logger.Warn("session recovery exhausted", "session_id", r.sessionID, "attempts", r.attempts)
			return nil, RecoveryExhausted
		}
		r.attempts++
		r.mu.Unlock()

		sess, err := r.loader(ctx)
		if err != nil {
			if engine.IsGoneClass(err) {
				// The resource is gone; this is a fresh-conversation
				// situation, not a user-visible failure.
				r.setState(RecoveryAbandoned)
				r.logger.Info("session gone, starting fresh", "session_id", r.sessionID)
				return nil, RecoveryAbandoned
			}
			r.logger.Warn("session reload failed", "session_id", r.sessionID, "error", err)
			continue
		}

		if res := Validate(sess, r.sessionID); res.IsValid {
			r.setState(RecoveryRecovered)
			return sess, RecoveryRecovered
		}
		if fixed, ok := Sanitize(sess, r.sessionID); ok {
			r.setState(RecoveryRecovered)
			r.logger.Info("session sanitized", "session_id", r.sessionID)
			return fixed, RecoveryRecovered
		}
	}
}

func (r *Recovery) setState(s RecoveryState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}
