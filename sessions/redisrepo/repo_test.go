package redisrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/sessions/redisrepo"
	"github.com/jrsteele09/go-session-auth/sessions/sessionstest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T, clock *sessionstest.Clock) (*redisrepo.Repo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	repo, err := redisrepo.New(rdb, "test:", sessionstest.TTL, redisrepo.WithNowTime(clock.Now))
	require.NoError(t, err)
	return repo, mr
}

func TestRedisRepo(t *testing.T) {
	sessionstest.Run(t, func(t *testing.T, clock *sessionstest.Clock) (sessions.Repo, func(time.Duration)) {
		repo, mr := newRepo(t, clock)
		return repo, mr.FastForward
	})
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := redisrepo.New(nil, "", time.Minute)
	require.Error(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	_, err = redisrepo.New(rdb, "", 0)
	require.Error(t, err)
}

func TestKeyLayoutAndTTL(t *testing.T) {
	repo, mr := newRepo(t, sessionstest.NewClock())
	ctx := context.Background()

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rec))

	key := "test:session:" + rec.ID
	require.True(t, mr.Exists(key))
	require.Greater(t, mr.TTL(key), sessionstest.TTL)
}

func TestCorruptValueIsMissing(t *testing.T) {
	repo, mr := newRepo(t, sessionstest.NewClock())

	require.NoError(t, mr.Set("test:session:abc", "{ not json"))
	_, err := repo.Get(context.Background(), "abc")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestUnavailableRedisIsStorageFailure(t *testing.T) {
	repo, mr := newRepo(t, sessionstest.NewClock())
	mr.Close()

	_, err := repo.Get(context.Background(), "abc")
	require.ErrorIs(t, err, apperrors.ErrStorageIO)

	err = repo.Save(context.Background(), sessions.NewRecord("abc", time.Now()))
	require.ErrorIs(t, err, apperrors.ErrStorageIO)
}
