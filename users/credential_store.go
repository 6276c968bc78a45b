package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

// CredentialStore registers and authenticates users over a Repo.
type CredentialStore struct {
	repo    Repo
	policy  Policy
	nowTime func() time.Time
}

// CredentialStoreOption configures a CredentialStore.
type CredentialStoreOption func(*CredentialStore)

// WithPolicy replaces the default registration policy.
func WithPolicy(p Policy) CredentialStoreOption {
	return func(cs *CredentialStore) {
		cs.policy = p
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CredentialStoreOption {
	return func(cs *CredentialStore) {
		cs.nowTime = nowFunc
	}
}

func NewCredentialStore(repo Repo, options ...CredentialStoreOption) (*CredentialStore, error) {
	if repo == nil {
		return nil, errors.New("[NewCredentialStore] repo is required")
	}
	cs := &CredentialStore{
		repo:    repo,
		policy:  DefaultPolicy(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(cs)
	}
	return cs, nil
}

// Policy returns the registration policy in force.
func (cs *CredentialStore) Policy() Policy {
	return cs.policy
}

// Register stores a bcrypt hash of password under username and returns the new user
// id. Usernames are trimmed of surrounding whitespace.
func (cs *CredentialStore) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if err := cs.policy.CheckUsername(username); err != nil {
		return "", apperrors.Wrapf(apperrors.ErrPasswordPolicy, "[CredentialStore.Register] %v", err)
	}
	if err := cs.policy.CheckPassword(password); err != nil {
		return "", apperrors.Wrapf(err, "[CredentialStore.Register]")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", apperrors.Wrapf(apperrors.ErrPasswordPolicy, "[CredentialStore.Register] hash: %v", err)
	}

	credential := &Credential{
		Username:     username,
		PasswordHash: hash,
		UserID:       uuid.New().String(),
		CreatedAt:    cs.nowTime().UTC(),
	}
	if err := cs.repo.Insert(ctx, credential); err != nil {
		return "", apperrors.Wrapf(err, "[CredentialStore.Register] %s", username)
	}
	return credential.UserID, nil
}

// Authenticate returns the user id for a matching username and password. Unknown
// users and wrong passwords both yield ErrInvalidCredentials.
func (cs *CredentialStore) Authenticate(ctx context.Context, username, password string) (string, error) {
	credential, err := cs.repo.Get(ctx, strings.TrimSpace(username))
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		CheckPasswordHash(password, dummyHash())
		return "", apperrors.ErrInvalidCredentials
	case err != nil:
		return "", apperrors.Wrapf(err, "[CredentialStore.Authenticate]")
	}

	if !CheckPasswordHash(password, credential.PasswordHash) {
		return "", apperrors.ErrInvalidCredentials
	}
	return credential.UserID, nil
}

// Exists reports whether username is registered.
func (cs *CredentialStore) Exists(ctx context.Context, username string) (bool, error) {
	_, err := cs.repo.Get(ctx, strings.TrimSpace(username))
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return false, nil
	case err != nil:
		return false, apperrors.Wrapf(err, "[CredentialStore.Exists]")
	}
	return true, nil
}

// List returns all registered credentials.
func (cs *CredentialStore) List(ctx context.Context) ([]*Credential, error) {
	return cs.repo.List(ctx)
}
