package coordinator

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/marketmind-ai/marketmind/sdk/engine"
)

// User-visible failure notices. These are always delivered as chat-style
// assistant messages, never as exceptions reaching the rendering layer, and
// never sent to the backend.
const (
	msgNetwork = "I couldn't reach the analysis service. Please check your connection and try again."
	msgTimeout = "The analysis service took too long to respond. Please try again in a moment."
	msgSession = "Your conversation could not be restored, so I've started a new one. Your previous question may need to be re-sent."
	msgGeneric = "Something went wrong while processing your request. Please try again."

	msgRecoveryExhausted = "I couldn't restore this conversation right now. Please try again, or start a new one."
)

// classifyError maps a turn failure to its user-visible notice: network,
// timeout, session-related, or generic.
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case isTimeout(err):
		return msgTimeout
	case engine.IsGoneClass(err):
		return msgSession
	case isNetwork(err):
		return msgNetwork
	default:
		return msgGeneric
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetwork(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
