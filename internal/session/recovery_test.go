package session_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmind-ai/marketmind/internal/session"
	"github.com/marketmind-ai/marketmind/sdk/engine"
)

func TestRecoveryFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	rec := session.NewRecovery("abcd1234efgh", func(ctx context.Context) (*engine.Session, error) {
		calls++
		return validSession(), nil
	})

	sess, state := rec.Run(context.Background())
	assert.Equal(t, session.RecoveryRecovered, state)
	require.NotNil(t, sess)
	assert.Equal(t, 1, calls)
	assert.Equal(t, session.RecoveryRecovered, rec.State())
	assert.True(t, rec.State().Terminal())
}

func TestRecoverySanitizesPartialSession(t *testing.T) {
	rec := session.NewRecovery("abcd1234efgh", func(ctx context.Context) (*engine.Session, error) {
		// Structurally broken but identifiable: recovery repairs instead of
		// retrying.
		return &engine.Session{}, nil
	})

	sess, state := rec.Run(context.Background())
	assert.Equal(t, session.RecoveryRecovered, state)
	require.NotNil(t, sess)
	assert.Equal(t, engine.SessionName("abcd1234efgh"), sess.Name)
	assert.Equal(t, 1, rec.Attempts())
}

func TestRecoveryGoneSessionAbandonsSilently(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone, http.StatusBadRequest} {
		rec := session.NewRecovery("abcd1234efgh", func(ctx context.Context) (*engine.Session, error) {
			return nil, &engine.APIError{StatusCode: status}
		})

		sess, state := rec.Run(context.Background())
		assert.Equalf(t, session.RecoveryAbandoned, state, "status %d", status)
		assert.Nil(t, sess)
		assert.Equal(t, 1, rec.Attempts())
	}
}

func TestRecoveryExhaustsAfterBoundedAttempts(t *testing.T) {
	calls := 0
	rec := session.NewRecovery("abcd1234efgh", func(ctx context.Context) (*engine.Session, error) {
		calls++
		return nil, errors.New("transient network failure")
	})

	sess, state := rec.Run(context.Background())
	assert.Equal(t, session.RecoveryExhausted, state)
	assert.Nil(t, sess)
	assert.Equal(t, session.DefaultMaxAttempts, calls)
}

func TestRecoveryCustomAttemptBound(t *testing.T) {
	calls := 0
	rec := session.NewRecovery("abcd1234efgh", func(ctx context.Context) (*engine.Session, error) {
		calls++
		return nil, errors.New("still failing")
	}, session.WithMaxAttempts(5))

	_, state := rec.Run(context.Background())
	assert.Equal(t, session.RecoveryExhausted, state)
	assert.Equal(t, 5, calls)
}

func TestRecoveryTerminalStateSticks(t *testing.T) {
	rec := session.NewRecovery("abcd1234efgh", func(ctx context.Context) (*engine.Session, error) {
		return validSession(), nil
	})

	_, state := rec.Run(context.Background())
	require.Equal(t, session.RecoveryRecovered, state)

	// A second run never reloads.
	sess, state := rec.Run(context.Background())
	assert.Equal(t, session.RecoveryRecovered, state)
	assert.Nil(t, sess)
	assert.Equal(t, 1, rec.Attempts())
}

func TestRecoveryRetriesThenRecovers(t *testing.T) {
	calls := 0
	rec := session.NewRecovery("abcd1234efgh", func(ctx context.Context) (*engine.Session, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("flaky")
		}
		return validSession(), nil
	})

	sess, state := rec.Run(context.Background())
	assert.Equal(t, session.RecoveryRecovered, state)
	require.NotNil(t, sess)
	assert.Equal(t, 2, calls)
}

func TestRecoveryStateStrings(t *testing.T) {
	assert.Equal(t, "idle", session.RecoveryIdle.String())
	assert.Equal(t, "recovered", session.RecoveryRecovered.String())
	assert.False(t, session.RecoveryLoading.Terminal())
	assert.True(t, session.RecoveryAbandoned.Terminal())
}
