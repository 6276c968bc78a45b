// Package userstest holds the behaviour every users.Repo must share.
package userstest

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty repo.
type Factory func(t *testing.T) users.Repo

func fixture(username, userID string) *users.Credential {
	return &users.Credential{
		Username:     username,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuuABCDEFGHIJKLMNOPQRSTUVWXYZ01234",
		UserID:       userID,
		CreatedAt:    time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC),
	}
}

// Run exercises repo against the users.Repo contract.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	t.Run("InsertGet", func(t *testing.T) {
		repo := newRepo(t)
		want := fixture("alice", "3f0a1c52-41b6-4d27-9a57-2b1d0e6c7a11")
		require.NoError(t, repo.Insert(ctx, want))

		got, err := repo.Get(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, "nobody")
		require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("Duplicate", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, fixture("alice", "id-1")))
		require.ErrorIs(t, repo.Insert(ctx, fixture("alice", "id-2")), apperrors.ErrDuplicateUser)

		got, err := repo.Get(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, "id-1", got.UserID)
	})

	t.Run("NonASCII", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, fixture("zoë", "id-z")))
		got, err := repo.Get(ctx, "zoë")
		require.NoError(t, err)
		require.Equal(t, "zoë", got.Username)
	})

	t.Run("ListSorted", func(t *testing.T) {
		repo := newRepo(t)
		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Empty(t, list)

		require.NoError(t, repo.Insert(ctx, fixture("carol", "id-c")))
		require.NoError(t, repo.Insert(ctx, fixture("alice", "id-a")))
		require.NoError(t, repo.Insert(ctx, fixture("bob", "id-b")))

		list, err = repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		require.Equal(t, "alice", list[0].Username)
		require.Equal(t, "bob", list[1].Username)
		require.Equal(t, "carol", list[2].Username)
	})

	t.Run("ConcurrentDuplicate", func(t *testing.T) {
		repo := newRepo(t)
		const writers = 8

		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.Insert(ctx, fixture("race", "id-race"))
			}()
		}
		wg.Wait()
		close(errs)

		var ok int
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			require.ErrorIs(t, err, apperrors.ErrDuplicateUser)
		}
		require.Equal(t, 1, ok)
	})
}
