package sessions

import (
	"context"
	"time"
)

// Repo defines the session store. Implementations must make Save atomic so that no
// reader observes a partially written record.
type Repo interface {
	// Get returns ErrSessionNotFound for unsafe ids, missing or unreadable records and
	// records older than the TTL. Expired records may be purged as a side effect.
	Get(ctx context.Context, sessionID string) (*Record, error)

	// Create returns a fresh anonymous record with an unguessable id. It is not
	// persisted until Save.
	Create(ctx context.Context) (*Record, error)

	// Save persists the record and advances record.Version. It fails with ErrConflict
	// when the stored version moved since the record was loaded.
	Save(ctx context.Context, record *Record) error

	// Delete removes a session. Deleting a missing id is not an error.
	Delete(ctx context.Context, sessionID string) error

	// DeleteExpired purges every record older than the TTL and reports how many went.
	DeleteExpired(ctx context.Context) (int, error)
}

// Expired reports whether a record last written at written is past ttl at now.
func Expired(written, now time.Time, ttl time.Duration) bool {
	return now.Sub(written) > ttl
}
