package filerepo_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/filerepo"
	"github.com/stretchr/testify/require"
)

func TestFileRepo(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := filerepo.New(path, filerepo.WithNowFunc(func() time.Time { return now }))

	t.Run("missing file reads as empty", func(t *testing.T) {
		_, err := repo.Get(ctx, "token")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, map[string]string{"token": "access", "refreshToken": "refresh"}, 0))

		v, err := repo.Get(ctx, "refreshToken")
		require.NoError(t, err)
		require.Equal(t, "refresh", v)

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("survives a new instance", func(t *testing.T) {
		other := filerepo.New(path)
		v, err := other.Get(ctx, "token")
		require.NoError(t, err)
		require.Equal(t, "access", v)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, map[string]string{"consent": "true"}, time.Hour))
		_, err := repo.Get(ctx, "consent")
		require.NoError(t, err)

		now = now.Add(time.Hour)
		_, err = repo.Get(ctx, "consent")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "token", "refreshToken"))
		_, err := repo.Get(ctx, "token")
		require.ErrorIs(t, err, storage.ErrNotFound)
		_, err = repo.Get(ctx, "refreshToken")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("corrupt file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
		_, err := repo.Get(ctx, "token")
		require.Error(t, err)
		require.NotErrorIs(t, err, storage.ErrNotFound)
	})
}
