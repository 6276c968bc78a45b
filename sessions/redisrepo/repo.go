// Package redisrepo stores sessions in Redis using the same JSON envelope as the file
// store. The envelope timestamp decides expiry; the key TTL only garbage collects.
package redisrepo

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keySpace    = "session:"
	expiryGrace = time.Minute
	scanBatch   = 100
)

var _ sessions.Repo = (*Repo)(nil)

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type Repo struct {
	rdb     redis.UniversalClient
	prefix  string
	ttl     time.Duration
	nowTime func() time.Time
	logger  zerolog.Logger
}

// Option configures a Repo.
type Option func(*Repo)

// WithNowTime sets the time source (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Repo) {
		r.nowTime = nowFunc
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Repo) {
		r.logger = l
	}
}

// New returns a repo keeping sessions under prefix+"session:<id>".
func New(rdb redis.UniversalClient, prefix string, ttl time.Duration, options ...Option) (*Repo, error) {
	if rdb == nil {
		return nil, errors.New("[redisrepo.New] redis client is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[redisrepo.New] ttl must be positive")
	}
	r := &Repo{
		rdb:     rdb,
		prefix:  prefix,
		ttl:     ttl,
		nowTime: time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

func (r *Repo) key(sessionID string) string {
	return r.prefix + keySpace + sessionID
}

func (r *Repo) Get(ctx context.Context, sessionID string) (*sessions.Record, error) {
	if !sessions.ValidID(sessionID) {
		return nil, apperrors.ErrSessionNotFound
	}

	env, err := r.load(ctx, r.rdb, sessionID)
	if err != nil {
		return nil, err
	}
	if sessions.Expired(env.Written(), r.nowTime(), r.ttl) {
		if err := r.rdb.Del(ctx, r.key(sessionID)).Err(); err != nil {
			r.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to purge expired session")
		}
		return nil, apperrors.ErrSessionNotFound
	}
	return env.Data, nil
}

func (r *Repo) load(ctx context.Context, c getter, sessionID string) (*sessions.Envelope, error) {
	raw, err := c.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, apperrors.Storage(err, "[redisrepo.Get] %s", sessionID)
	}
	env, err := sessions.Decode(raw)
	if err != nil {
		r.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Ignoring unreadable session")
		return nil, apperrors.ErrSessionNotFound
	}
	return env, nil
}

func (r *Repo) Create(_ context.Context) (*sessions.Record, error) {
	id, err := sessions.NewID()
	if err != nil {
		return nil, apperrors.Storage(err, "[redisrepo.Create]")
	}
	return sessions.NewRecord(id, r.nowTime().UTC()), nil
}

// Save compares versions inside WATCH/MULTI; a concurrent writer aborts the
// transaction and surfaces as ErrConflict.
func (r *Repo) Save(ctx context.Context, record *sessions.Record) error {
	if !sessions.ValidID(record.ID) {
		return apperrors.ErrInvalidSessionID
	}
	key := r.key(record.ID)

	var next int64
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		var current int64
		env, err := r.load(ctx, tx, record.ID)
		switch {
		case errors.Is(err, apperrors.ErrSessionNotFound):
		case err != nil:
			return err
		case !sessions.Expired(env.Written(), r.nowTime(), r.ttl):
			current = env.Version
		}
		if current != record.Version {
			return apperrors.Wrapf(apperrors.ErrConflict, "[redisrepo.Save] %s at version %d, have %d", record.ID, current, record.Version)
		}

		next = current + 1
		data, err := sessions.Encode(record, next, r.nowTime())
		if err != nil {
			return apperrors.Storage(err, "[redisrepo.Save]")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl+expiryGrace)
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return apperrors.Wrapf(apperrors.ErrConflict, "[redisrepo.Save] %s changed during save", record.ID)
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrStorageIO):
		return err
	case err != nil:
		return apperrors.Storage(err, "[redisrepo.Save] %s", record.ID)
	}
	record.Version = next
	return nil
}

func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	if !sessions.ValidID(sessionID) {
		return nil
	}
	if err := r.rdb.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return apperrors.Storage(err, "[redisrepo.Delete] %s", sessionID)
	}
	return nil
}

func (r *Repo) DeleteExpired(ctx context.Context) (int, error) {
	removed := 0
	iter := r.rdb.Scan(ctx, 0, r.key("*"), scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		sessionID := key[len(r.key("")):]
		env, err := r.load(ctx, r.rdb, sessionID)
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if !sessions.Expired(env.Written(), r.nowTime(), r.ttl) {
			continue
		}
		n, err := r.rdb.Del(ctx, key).Result()
		if err != nil {
			return removed, apperrors.Storage(err, "[redisrepo.DeleteExpired] %s", sessionID)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, apperrors.Storage(err, "[redisrepo.DeleteExpired] scan")
	}
	return removed, nil
}
