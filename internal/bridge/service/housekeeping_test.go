package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/domain"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/store"

	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleansExpiredTokens(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, st.Tokens().PutToken(ctx, domain.TokenRecord{
		Token:     "stale",
		IssuedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, st.Tokens().PutToken(ctx, domain.TokenRecord{
		Token:     "live",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}))

	approvals := NewApprovalService(st, slog.New(slog.DiscardHandler))
	hk := NewHousekeepingService(st, approvals, slog.New(slog.DiscardHandler), time.Hour, time.Hour)

	hk.Start()
	hk.Stop()

	_, err := st.Tokens().GetToken(ctx, "stale")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Tokens().GetToken(ctx, "live")
	require.NoError(t, err)
}

func TestHousekeepingDefaults(t *testing.T) {
	t.Parallel()

	hk := NewHousekeepingService(newTestStore(t), nil, slog.New(slog.DiscardHandler), 0, 0)
	require.Equal(t, time.Hour, hk.Interval)
	require.Equal(t, 24*time.Hour, hk.ResponseMaxAge)
}
