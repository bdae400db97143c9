package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ArcheWizard/Password-Manager/internal/vault"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "vault.db")
	s, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestStoreCredentialRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.StoreCredential(ctx, vault.Credential{
		Website:           "github.com",
		Username:          "alice",
		EncryptedPassword: []byte("sealed"),
		Category:          "Web",
		Notes:             "work account",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	creds, err := s.ListCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 1)

	got := creds[0]
	require.Equal(t, id, got.ID)
	require.Equal(t, "github.com", got.Website)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, []byte("sealed"), got.EncryptedPassword)
	require.Equal(t, "Web", got.Category)
	require.Equal(t, "work account", got.Notes)
	require.False(t, got.CreatedAt.IsZero())
	require.False(t, got.Favorite)
}

func TestListCredentialsOrdering(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for _, c := range []vault.Credential{
		{Website: "zebra.example", Username: "z", EncryptedPassword: []byte("a")},
		{Website: "apple.example", Username: "b", EncryptedPassword: []byte("a")},
		{Website: "apple.example", Username: "a", EncryptedPassword: []byte("a")},
	} {
		_, err := s.StoreCredential(ctx, c)
		require.NoError(t, err)
	}

	creds, err := s.ListCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 3)
	require.Equal(t, "apple.example", creds[0].Website)
	require.Equal(t, "a", creds[0].Username)
	require.Equal(t, "b", creds[1].Username)
	require.Equal(t, "zebra.example", creds[2].Website)
}

func TestDeleteCredential(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.StoreCredential(ctx, vault.Credential{
		Website:           "example.com",
		Username:          "bob",
		EncryptedPassword: []byte("x"),
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCredential(ctx, id))

	creds, err := s.ListCredentials(ctx)
	require.NoError(t, err)
	require.Empty(t, creds)

	err = s.DeleteCredential(ctx, id)
	require.ErrorIs(t, err, vault.ErrNotFound)
}

func TestMigrationsIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
}
