package boltrepo_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/jrsteele09/go-session-auth/users/boltrepo"
	"github.com/jrsteele09/go-session-auth/users/userstest"
	"github.com/stretchr/testify/require"
)

func openRepo(t *testing.T, path string) *boltrepo.Repo {
	t.Helper()
	repo, err := boltrepo.Open(path)
	require.NoError(t, err)
	return repo
}

func TestBoltRepo(t *testing.T) {
	userstest.Run(t, func(t *testing.T) users.Repo {
		return openRepo(t, filepath.Join(t.TempDir(), "users.db"))
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := boltrepo.Open("")
	require.Error(t, err)
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "users.db")
	ctx := context.Background()

	repo := openRepo(t, path)
	require.NoError(t, repo.Insert(ctx, &users.Credential{
		Username:     "alice",
		PasswordHash: "$2a$10$hash",
		UserID:       "id-a",
		CreatedAt:    time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC),
	}))

	repo = openRepo(t, path)
	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "id-a", got.UserID)
	require.Equal(t, "alice", got.Username)
}

// Each handle stands in for a separate short-lived process on the same file.
func TestOverlappingHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	ctx := context.Background()

	first := openRepo(t, path)
	second := openRepo(t, path)

	require.NoError(t, first.Insert(ctx, &users.Credential{Username: "alice", PasswordHash: "$2a$10$hash", UserID: "id-a"}))
	got, err := second.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "id-a", got.UserID)
	require.ErrorIs(t, second.Insert(ctx, &users.Credential{Username: "alice", PasswordHash: "$2a$10$hash", UserID: "id-b"}), apperrors.ErrDuplicateUser)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, 2*workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo, err := boltrepo.Open(path, boltrepo.WithLockTimeout(10*time.Second))
			if err != nil {
				errs <- err
				return
			}
			if _, err := repo.Get(ctx, "alice"); err != nil {
				errs <- err
			}
			errs <- repo.Insert(ctx, &users.Credential{Username: fmt.Sprintf("user%d", i), PasswordHash: "$2a$10$hash", UserID: fmt.Sprintf("id-%d", i)})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := first.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, workers+1)
}
