// Package app builds the stores and engine from configuration. Every binary wires
// itself through here so backends are selected the same way everywhere.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/cookies"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/sessions"
	sessionfile "github.com/jrsteele09/go-session-auth/sessions/filerepo"
	"github.com/jrsteele09/go-session-auth/sessions/redisrepo"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/jrsteele09/go-session-auth/users/boltrepo"
	userfile "github.com/jrsteele09/go-session-auth/users/filerepo"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendBolt  = "bolt"
)

const redisPingTimeout = 2 * time.Second

// Stores holds the opened persistence layers. Close releases them.
type Stores struct {
	Sessions    sessions.Repo
	Credentials *users.CredentialStore

	closers []io.Closer
}

func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}

// Policy returns the password policy configured in c.
func Policy(c config.SecurityConfig) users.Policy {
	return users.Policy{MinPasswordLength: c.GetMinPasswordLength()}
}

// OpenStores opens the session and credential backends selected by c.
func OpenStores(ctx context.Context, c config.Config, logger zerolog.Logger) (*Stores, error) {
	s := &Stores{}

	sessionRepo, err := s.openSessions(ctx, c, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Sessions = sessionRepo

	userRepo, err := s.openUsers(c)
	if err != nil {
		s.Close()
		return nil, err
	}
	credentials, err := users.NewCredentialStore(userRepo, users.WithPolicy(Policy(c)))
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Credentials = credentials
	return s, nil
}

func (s *Stores) openSessions(ctx context.Context, c config.Config, logger zerolog.Logger) (sessions.Repo, error) {
	switch backend := c.GetSessionBackend(); backend {
	case BackendFile:
		repo, err := sessionfile.New(c.GetSessionDir(), c.GetSessionTTL(), sessionfile.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("[app.OpenStores] session files: %w", err)
		}
		return repo, nil

	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: c.GetRedisAddress()})
		s.closers = append(s.closers, rdb)

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("[app.OpenStores] redis %s: %w", c.GetRedisAddress(), err)
		}
		repo, err := redisrepo.New(rdb, c.GetRedisPrefix(), c.GetSessionTTL(), redisrepo.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("[app.OpenStores] redis sessions: %w", err)
		}
		return repo, nil

	default:
		return nil, fmt.Errorf("[app.OpenStores] unknown session backend %q", backend)
	}
}

func (s *Stores) openUsers(c config.StorageConfig) (users.Repo, error) {
	switch backend := c.GetCredentialBackend(); backend {
	case BackendFile:
		repo, err := userfile.New(c.GetUsersFile())
		if err != nil {
			return nil, fmt.Errorf("[app.OpenStores] users file: %w", err)
		}
		return repo, nil

	case BackendBolt:
		repo, err := boltrepo.Open(c.GetUsersDB())
		if err != nil {
			return nil, fmt.Errorf("[app.OpenStores] users db: %w", err)
		}
		return repo, nil

	default:
		return nil, fmt.Errorf("[app.OpenStores] unknown credential backend %q", backend)
	}
}

// NewEngine builds the auth engine over stores using the session settings in c.
func NewEngine(c config.Config, stores *Stores, logger zerolog.Logger) (*auth.Engine, error) {
	return auth.NewEngine(auth.Repos{
		Sessions:    stores.Sessions,
		Credentials: stores.Credentials,
	},
		auth.WithPolicy(Policy(c)),
		auth.WithCookieName(c.GetCookieName()),
		auth.WithCookieOptions(cookies.Options{
			Path:     "/",
			MaxAge:   utils.Ptr(c.GetCookieMaxAge()),
			Secure:   c.GetCookieSecure(),
			HTTPOnly: true,
			SameSite: cookies.SameSiteLax,
		}),
		auth.WithLegacyCookies(c.GetLegacyCookies()...),
		auth.WithLogger(logger),
	)
}
