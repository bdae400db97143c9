package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newPairingService(t *testing.T, window time.Duration) *PairingService {
	t.Helper()
	return &PairingService{
		Tokens: &TokenService{Store: newTestStore(t), TTL: time.Hour},
		Window: window,
	}
}

func TestPairingHappyPath(t *testing.T) {
	t.Parallel()

	svc := newPairingService(t, 120*time.Second)
	ctx := context.Background()

	session, err := svc.StartPairing()
	require.NoError(t, err)
	require.Len(t, session.Code, 6)
	require.True(t, svc.Active())

	record, err := svc.Complete(ctx, session.Code, "abc", "Chrome")
	require.NoError(t, err)
	require.NotEmpty(t, record.Token)

	got, err := svc.Tokens.Validate(ctx, record.Token)
	require.NoError(t, err)
	require.Equal(t, "abc", got.ClientFingerprint)
}

func TestPairingSessionConsumedOnSuccess(t *testing.T) {
	t.Parallel()

	svc := newPairingService(t, 120*time.Second)
	ctx := context.Background()

	session, err := svc.StartPairing()
	require.NoError(t, err)

	_, err = svc.Complete(ctx, session.Code, "abc", "Chrome")
	require.NoError(t, err)
	require.False(t, svc.Active())

	// Replaying the consumed code must fail.
	_, err = svc.Complete(ctx, session.Code, "abc", "Chrome")
	require.ErrorIs(t, err, ErrNoActiveSession)
}

func TestPairingWrongCodeKeepsSession(t *testing.T) {
	t.Parallel()

	svc := newPairingService(t, 120*time.Second)
	ctx := context.Background()

	session, err := svc.StartPairing()
	require.NoError(t, err)

	wrong := "000000"
	if session.Code == wrong {
		wrong = "000001"
	}

	_, err = svc.Complete(ctx, wrong, "abc", "Chrome")
	require.ErrorIs(t, err, ErrInvalidCode)

	// A typo must not burn the session.
	_, err = svc.Complete(ctx, session.Code, "abc", "Chrome")
	require.NoError(t, err)
}

func TestPairingNoSession(t *testing.T) {
	t.Parallel()

	svc := newPairingService(t, 120*time.Second)

	_, err := svc.Complete(context.Background(), "123456", "abc", "Chrome")
	require.ErrorIs(t, err, ErrNoActiveSession)
}

func TestPairingExpiredWindow(t *testing.T) {
	t.Parallel()

	svc := newPairingService(t, -time.Second)

	session, err := svc.StartPairing()
	require.NoError(t, err)
	require.False(t, svc.Active())

	_, err = svc.Complete(context.Background(), session.Code, "abc", "Chrome")
	require.ErrorIs(t, err, ErrNoActiveSession)
}

func TestPairingRestartReplacesSession(t *testing.T) {
	t.Parallel()

	svc := newPairingService(t, 120*time.Second)
	ctx := context.Background()

	first, err := svc.StartPairing()
	require.NoError(t, err)
	second, err := svc.StartPairing()
	require.NoError(t, err)

	if first.Code != second.Code {
		_, err = svc.Complete(ctx, first.Code, "abc", "Chrome")
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	_, err = svc.Complete(ctx, second.Code, "abc", "Chrome")
	require.NoError(t, err)
}
