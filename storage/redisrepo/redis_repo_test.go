package redisrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/redisrepo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisRepo(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := redisrepo.New(client, redisrepo.WithPrefix("test:"))

	_, err := repo.Get(ctx, "token")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repo.Put(ctx, map[string]string{"token": "access", "refreshToken": "refresh"}, 0))
	require.True(t, mr.Exists("test:token"))
	require.True(t, mr.Exists("test:refreshToken"))

	v, err := repo.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, "access", v)

	require.NoError(t, repo.Put(ctx, map[string]string{"consent": "true"}, time.Minute))
	require.Equal(t, time.Minute, mr.TTL("test:consent"))

	mr.FastForward(time.Minute)
	_, err = repo.Get(ctx, "consent")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "token", "refreshToken"))
	require.False(t, mr.Exists("test:token"))
	require.False(t, mr.Exists("test:refreshToken"))
}

func TestRedisRepo_Unavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := redisrepo.New(client)
	mr.Close()

	_, err := repo.Get(context.Background(), "token")
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrNotFound)
}
