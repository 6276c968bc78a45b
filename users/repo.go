package users

import "context"

// Repo persists credentials. Insert must check and insert atomically.
type Repo interface {
	// Get returns ErrUserNotFound when username is not registered.
	Get(ctx context.Context, username string) (*Credential, error)

	// Insert stores a new credential, failing with ErrDuplicateUser when the
	// username is taken.
	Insert(ctx context.Context, credential *Credential) error

	// List returns every credential ordered by username.
	List(ctx context.Context) ([]*Credential, error)
}
