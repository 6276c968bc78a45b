package filerepo_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/jrsteele09/go-session-auth/users/filerepo"
	"github.com/jrsteele09/go-session-auth/users/userstest"
	"github.com/stretchr/testify/require"
)

const testHash = "$2a$10$abcdefghijklmnopqrstuuABCDEFGHIJKLMNOPQRSTUVWXYZ01234"

func TestFileRepo(t *testing.T) {
	userstest.Run(t, func(t *testing.T) users.Repo {
		repo, err := filerepo.New(filepath.Join(t.TempDir(), "users.json"))
		require.NoError(t, err)
		return repo
	})
}

func TestNewRequiresPath(t *testing.T) {
	_, err := filerepo.New("")
	require.Error(t, err)
}

func TestPersistedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	repo, err := filerepo.New(path)
	require.NoError(t, err)

	created := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(context.Background(), &users.Credential{
		Username:     "alice",
		PasswordHash: testHash,
		UserID:       "id-a",
		CreatedAt:    created,
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var payload map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Equal(t, map[string]any{
		"passwordHash": testHash,
		"userId":       "id-a",
		"createdAt":    "2026-05-04T12:00:00Z",
	}, payload["alice"])
}

func TestCorruptFileIsStorageFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	repo, err := filerepo.New(path)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.Get(ctx, "alice")
	require.ErrorIs(t, err, apperrors.ErrStorageIO)

	err = repo.Insert(ctx, &users.Credential{Username: "alice", PasswordHash: "h", UserID: "id"})
	require.ErrorIs(t, err, apperrors.ErrStorageIO)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{not json", string(raw))
}

func TestEmptyFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	repo, err := filerepo.New(path)
	require.NoError(t, err)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestUnhashedPasswordsAreRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	plain := `{"alice": {"password": "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8", "user_id": "id-a"}}`
	require.NoError(t, os.WriteFile(path, []byte(plain), 0o600))
	repo, err := filerepo.New(path)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.Get(ctx, "alice")
	require.ErrorIs(t, err, apperrors.ErrStorageIO)
	require.ErrorContains(t, err, "alice")

	err = repo.Insert(ctx, &users.Credential{Username: "bob", PasswordHash: testHash, UserID: "id-b"})
	require.ErrorIs(t, err, apperrors.ErrStorageIO)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, plain, string(raw))
}
