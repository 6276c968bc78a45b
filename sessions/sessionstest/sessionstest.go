// Package sessionstest holds the behaviour every sessions.Repo implementation must
// share. Backend packages run it from their own tests.
package sessionstest

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/stretchr/testify/require"
)

// TTL is the session lifetime the factory must configure.
const TTL = 30 * time.Minute

// Clock is a settable time source shared between a test and the repo under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Factory builds an empty repo using TTL and clock.Now as its time source. advance is
// called whenever the test moves the clock, for backends with their own expiry.
type Factory func(t *testing.T, clock *Clock) (repo sessions.Repo, advance func(time.Duration))

// Run executes the shared repo behaviour against newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateSaveGet", func(t *testing.T) { testCreateSaveGet(t, newRepo) })
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newRepo) })
	t.Run("DeleteIdempotent", func(t *testing.T) { testDeleteIdempotent(t, newRepo) })
	t.Run("Expiry", func(t *testing.T) { testExpiry(t, newRepo) })
	t.Run("UnsafeIDs", func(t *testing.T) { testUnsafeIDs(t, newRepo) })
	t.Run("VersionConflict", func(t *testing.T) { testVersionConflict(t, newRepo) })
	t.Run("DeleteExpired", func(t *testing.T) { testDeleteExpired(t, newRepo) })
	t.Run("StaleSaveAfterRemoval", func(t *testing.T) { testStaleSaveAfterRemoval(t, newRepo) })
}

func testCreateSaveGet(t *testing.T, newRepo Factory) {
	repo, _ := newRepo(t, NewClock())
	ctx := context.Background()

	ids := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		rec, err := repo.Create(ctx)
		require.NoError(t, err)
		require.True(t, sessions.ValidID(rec.ID))
		require.False(t, rec.Authenticated)
		require.NoError(t, repo.Save(ctx, rec))

		got, err := repo.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.Equal(t, 1, got.VisitCount)
		require.Equal(t, rec.ID, got.ID)

		ids[rec.ID] = struct{}{}
	}
	require.Len(t, ids, 5)
}

func testRoundTrip(t *testing.T, newRepo Factory) {
	clock := NewClock()
	repo, _ := newRepo(t, clock)
	ctx := context.Background()

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	rec.CreatedAt = clock.Now().Add(-time.Hour)
	rec.LastVisit = clock.Now()
	rec.VisitCount = 12
	rec.Bind("Ålice-日本", "7c9e6679-7425-40de-944b-e07fc1f90ae7", clock.Now().Add(-time.Minute))
	rec.ShowRegister = true

	require.NoError(t, repo.Save(ctx, rec))
	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec, got)
	require.Equal(t, "Ålice-日本", utils.Value(got.Username))
}

func testDeleteIdempotent(t *testing.T, newRepo Factory) {
	repo, _ := newRepo(t, NewClock())
	ctx := context.Background()

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rec))

	require.NoError(t, repo.Delete(ctx, rec.ID))
	require.NoError(t, repo.Delete(ctx, rec.ID))
	require.NoError(t, repo.Delete(ctx, "never-created"))
	require.NoError(t, repo.Delete(ctx, "../escape"))

	_, err = repo.Get(ctx, rec.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func testExpiry(t *testing.T, newRepo Factory) {
	clock := NewClock()
	repo, advance := newRepo(t, clock)
	ctx := context.Background()

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rec))

	clock.Advance(TTL)
	advance(TTL)
	_, err = repo.Get(ctx, rec.ID)
	require.NoError(t, err, "a session exactly TTL old is still live")

	clock.Advance(time.Second)
	advance(time.Second)
	_, err = repo.Get(ctx, rec.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func testUnsafeIDs(t *testing.T, newRepo Factory) {
	repo, _ := newRepo(t, NewClock())
	ctx := context.Background()

	for _, id := range []string{"", "../../etc/passwd", "a/b", "a.b", "id with space"} {
		_, err := repo.Get(ctx, id)
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound, id)
	}

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	rec.ID = "../evil"
	require.ErrorIs(t, repo.Save(ctx, rec), apperrors.ErrInvalidSessionID)
}

func testVersionConflict(t *testing.T, newRepo Factory) {
	repo, _ := newRepo(t, NewClock())
	ctx := context.Background()

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rec))

	first, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	second, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)

	first.VisitCount++
	require.NoError(t, repo.Save(ctx, first))

	second.VisitCount++
	require.ErrorIs(t, repo.Save(ctx, second), apperrors.ErrConflict)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.VisitCount)
	require.Equal(t, first.Version, got.Version)

	got.VisitCount++
	require.NoError(t, repo.Save(ctx, got))
}

func testDeleteExpired(t *testing.T, newRepo Factory) {
	clock := NewClock()
	repo, advance := newRepo(t, clock)
	ctx := context.Background()

	old, err := repo.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, old))

	clock.Advance(TTL - time.Minute)
	advance(TTL - time.Minute)

	fresh, err := repo.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, fresh))

	clock.Advance(2 * time.Minute)
	advance(2 * time.Minute)

	removed, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	require.LessOrEqual(t, removed, 1)

	_, err = repo.Get(ctx, old.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	_, err = repo.Get(ctx, fresh.ID)
	require.NoError(t, err)
}

// A holder of a record that was deleted or expired in the meantime must not be able to
// write it back.
func testStaleSaveAfterRemoval(t *testing.T, newRepo Factory) {
	clock := NewClock()
	repo, advance := newRepo(t, clock)
	ctx := context.Background()

	deleted, err := repo.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, deleted))
	require.NoError(t, repo.Delete(ctx, deleted.ID))

	deleted.VisitCount++
	require.ErrorIs(t, repo.Save(ctx, deleted), apperrors.ErrConflict)
	_, err = repo.Get(ctx, deleted.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	expired, err := repo.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, expired))

	clock.Advance(TTL + time.Second)
	advance(TTL + time.Second)

	expired.VisitCount++
	require.ErrorIs(t, repo.Save(ctx, expired), apperrors.ErrConflict)
	_, err = repo.Get(ctx, expired.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}
