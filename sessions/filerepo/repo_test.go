package filerepo_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/sessions/filerepo"
	"github.com/jrsteele09/go-session-auth/sessions/sessionstest"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T, clock *sessionstest.Clock) (*filerepo.Repo, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := filerepo.New(dir, sessionstest.TTL, filerepo.WithNowTime(clock.Now))
	require.NoError(t, err)
	return repo, dir
}

func TestFileRepo(t *testing.T) {
	sessionstest.Run(t, func(t *testing.T, clock *sessionstest.Clock) (sessions.Repo, func(time.Duration)) {
		repo, _ := newRepo(t, clock)
		return repo, func(time.Duration) {}
	})
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := filerepo.New("", time.Minute)
	require.Error(t, err)
	_, err = filerepo.New(t.TempDir(), 0)
	require.Error(t, err)
}

func TestPersistedFormat(t *testing.T) {
	clock := sessionstest.NewClock()
	repo, dir := newRepo(t, clock)
	ctx := context.Background()

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rec))

	raw, err := os.ReadFile(filepath.Join(dir, "session_"+rec.ID+".json"))
	require.NoError(t, err)

	var payload struct {
		Data      map[string]any `json:"data"`
		Timestamp float64        `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Equal(t, float64(clock.Now().Unix()), payload.Timestamp)
	require.Equal(t, rec.ID, payload.Data["session_id"])
	require.Equal(t, float64(1), payload.Data["visit_count"])
	require.Equal(t, false, payload.Data["logged_in"])
}

func TestCorruptFileIsMissing(t *testing.T) {
	repo, dir := newRepo(t, sessionstest.NewClock())
	ctx := context.Background()

	id, err := sessions.NewID()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session_"+id+".json"), []byte("{ not json"), 0o600))

	_, err = repo.Get(ctx, id)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	// A fresh record may take over the id.
	rec := sessions.NewRecord(id, time.Now().UTC())
	require.NoError(t, repo.Save(ctx, rec))
	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Version)
}

func TestExpiredFileIsPurgedOnRead(t *testing.T) {
	clock := sessionstest.NewClock()
	repo, dir := newRepo(t, clock)
	ctx := context.Background()

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rec))

	clock.Advance(sessionstest.TTL + time.Second)
	_, err = repo.Get(ctx, rec.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	_, err = os.Stat(filepath.Join(dir, "session_"+rec.ID+".json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestUnsafeIDNeverTouchesDisk(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "sessions")
	repo, err := filerepo.New(dir, time.Hour)
	require.NoError(t, err)

	outside := filepath.Join(parent, "session_x.json")
	require.NoError(t, os.WriteFile(outside, []byte(`{"data":{},"timestamp":9999999999}`), 0o600))

	_, err = repo.Get(context.Background(), "../session_x")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	require.NoError(t, repo.Delete(context.Background(), "../session_x"))
	_, err = os.Stat(outside)
	require.NoError(t, err)
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	repo, dir := newRepo(t, sessionstest.NewClock())
	ctx := context.Background()

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		rec.VisitCount++
		require.NoError(t, repo.Save(ctx, rec))
	}

	temps, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, temps)
}

func TestDeleteExpiredRemovesStaleTemps(t *testing.T) {
	clock := sessionstest.NewClock()
	repo, dir := newRepo(t, clock)

	stale := filepath.Join(dir, "session_abc.json.123.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0o600))
	old := clock.Now().Add(-2 * sessionstest.TTL)
	require.NoError(t, os.Chtimes(stale, old, old))

	_, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	_, err = os.Stat(stale)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestConcurrentSavesNeverCorrupt(t *testing.T) {
	repo, _ := newRepo(t, sessionstest.NewClock())
	ctx := context.Background()

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rec))

	const workers = 8
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			loaded, err := repo.Get(ctx, rec.ID)
			if err != nil {
				results <- err
				return
			}
			loaded.VisitCount++
			results <- repo.Save(ctx, loaded)
		}()
	}

	saved := 0
	for i := 0; i < workers; i++ {
		err := <-results
		if err == nil {
			saved++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrConflict)
	}
	require.GreaterOrEqual(t, saved, 1)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1+saved), got.Version)
	require.Equal(t, 1+saved, got.VisitCount)
}
