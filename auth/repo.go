package auth

import (
	"context"

	"github.com/jrsteele09/go-session-auth/sessions"
)

// CredentialStore is the part of users.CredentialStore the engine needs.
type CredentialStore interface {
	Register(ctx context.Context, username, password string) (string, error)
	Authenticate(ctx context.Context, username, password string) (string, error)
	Exists(ctx context.Context, username string) (bool, error)
}

// Repos holds all repository dependencies for the Engine
type Repos struct {
	Sessions    sessions.Repo   // Session persistence
	Credentials CredentialStore // Registration and password checks
}
