// Package filerepo stores one JSON file per session under a directory.
//
// Writes go to a temporary file in the same directory and are renamed over the
// target, so readers never see partial content. Saves take a directory-wide advisory
// lock only for the version check and rename.
package filerepo

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/atomicfile"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/filelock"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/rs/zerolog"
)

const (
	filePrefix     = "session_"
	fileSuffix     = ".json"
	lockFileName   = ".lock"
	defaultLockTTL = 2 * time.Second
)

var _ sessions.Repo = (*Repo)(nil)

type Repo struct {
	dir         string
	ttl         time.Duration
	lockTimeout time.Duration
	nowTime     func() time.Time
	logger      zerolog.Logger
}

// Option configures a Repo.
type Option func(*Repo)

// WithNowTime sets the time source (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Repo) {
		r.nowTime = nowFunc
	}
}

// WithLogger sets the logger used for opportunistic clean-up failures.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Repo) {
		r.logger = l
	}
}

// WithLockTimeout bounds how long a save waits for the directory lock when the caller's
// context has no deadline of its own.
func WithLockTimeout(d time.Duration) Option {
	return func(r *Repo) {
		if d > 0 {
			r.lockTimeout = d
		}
	}
}

// New creates dir if needed and returns a repo whose records live for ttl after their
// last write.
func New(dir string, ttl time.Duration, options ...Option) (*Repo, error) {
	if dir == "" {
		return nil, errors.New("[filerepo.New] dir is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[filerepo.New] ttl must be positive")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, apperrors.Storage(err, "[filerepo.New] create %s", dir)
	}

	r := &Repo{
		dir:         dir,
		ttl:         ttl,
		lockTimeout: defaultLockTTL,
		nowTime:     time.Now,
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

func (r *Repo) path(sessionID string) string {
	return filepath.Join(r.dir, filePrefix+sessionID+fileSuffix)
}

func (r *Repo) Get(ctx context.Context, sessionID string) (*sessions.Record, error) {
	if !sessions.ValidID(sessionID) {
		return nil, apperrors.ErrSessionNotFound
	}

	env, err := r.read(sessionID)
	if err != nil {
		return nil, err
	}
	if sessions.Expired(env.Written(), r.nowTime(), r.ttl) {
		r.purgeIfExpired(ctx, sessionID)
		return nil, apperrors.ErrSessionNotFound
	}
	return env.Data, nil
}

// read returns ErrSessionNotFound for missing and undecodable files alike; only a real
// I/O failure is reported as a storage error.
func (r *Repo) read(sessionID string) (*sessions.Envelope, error) {
	raw, err := os.ReadFile(r.path(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, apperrors.Storage(err, "[filerepo.Get] read %s", sessionID)
	}

	env, err := sessions.Decode(raw)
	if err != nil {
		r.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Ignoring unreadable session file")
		return nil, apperrors.ErrSessionNotFound
	}
	return env, nil
}

func (r *Repo) Create(_ context.Context) (*sessions.Record, error) {
	id, err := sessions.NewID()
	if err != nil {
		return nil, apperrors.Storage(err, "[filerepo.Create]")
	}
	return sessions.NewRecord(id, r.nowTime().UTC()), nil
}

func (r *Repo) Save(ctx context.Context, record *sessions.Record) error {
	if !sessions.ValidID(record.ID) {
		return apperrors.ErrInvalidSessionID
	}

	unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := r.storedVersion(record.ID)
	if err != nil {
		return err
	}
	if current != record.Version {
		return apperrors.Wrapf(apperrors.ErrConflict, "[filerepo.Save] %s at version %d, have %d", record.ID, current, record.Version)
	}

	data, err := sessions.Encode(record, current+1, r.nowTime())
	if err != nil {
		return apperrors.Storage(err, "[filerepo.Save]")
	}
	if err := atomicfile.Write(r.path(record.ID), data); err != nil {
		return apperrors.Storage(err, "[filerepo.Save] %s", record.ID)
	}

	record.Version = current + 1
	return nil
}

// storedVersion returns 0 when nothing usable is stored, so an expired or corrupt file
// can be overwritten by a fresh record.
func (r *Repo) storedVersion(sessionID string) (int64, error) {
	env, err := r.read(sessionID)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if sessions.Expired(env.Written(), r.nowTime(), r.ttl) {
		return 0, nil
	}
	return env.Version, nil
}

// Delete takes the store lock so it cannot interleave with a Save's version check.
func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	if !sessions.ValidID(sessionID) {
		return nil
	}
	unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(r.path(sessionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.Storage(err, "[filerepo.Delete] %s", sessionID)
	}
	return nil
}

func (r *Repo) DeleteExpired(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, apperrors.Storage(err, "[filerepo.DeleteExpired] read dir")
	}

	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		sessionID := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if !sessions.ValidID(sessionID) {
			continue
		}
		if r.purgeIfExpired(ctx, sessionID) {
			removed++
		}
	}
	atomicfile.RemoveStale(r.dir, filePrefix, r.nowTime().Add(-r.ttl))
	return removed, nil
}

// purgeIfExpired re-checks under the lock so a concurrent save refreshing the record
// is never undone. Corrupt files are purged too.
func (r *Repo) purgeIfExpired(ctx context.Context, sessionID string) bool {
	unlock, err := r.lock(ctx)
	if err != nil {
		r.logger.Debug().Err(err).Str("session_id", sessionID).Msg("Skipping expired session purge")
		return false
	}
	defer unlock()

	raw, err := os.ReadFile(r.path(sessionID))
	if err != nil {
		return false
	}
	if env, err := sessions.Decode(raw); err == nil && !sessions.Expired(env.Written(), r.nowTime(), r.ttl) {
		return false
	}
	if err := os.Remove(r.path(sessionID)); err != nil {
		r.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to purge expired session")
		return false
	}
	return true
}

func (r *Repo) lock(ctx context.Context) (func(), error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.lockTimeout)
		defer cancel()
	}
	l, err := filelock.Acquire(ctx, filepath.Join(r.dir, lockFileName))
	if err != nil {
		return nil, apperrors.Storage(err, "[filerepo.lock]")
	}
	return func() {
		if err := l.Unlock(); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to release session store lock")
		}
	}, nil
}
