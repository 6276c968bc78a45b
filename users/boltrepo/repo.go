// Package boltrepo stores credentials in a bbolt database, one key per username.
//
// The database file is opened per call: bbolt locks the whole file while it is open,
// and several short-lived processes share it. Reads open it read-only so they can run
// side by side; writers wait for the exclusive lock up to the configured timeout.
package boltrepo

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	bolt "go.etcd.io/bbolt"
)

const defaultLockTimeout = 2 * time.Second

var bucketName = []byte("credentials")

var errDuplicate = errors.New("duplicate")

var _ users.Repo = (*Repo)(nil)

type Repo struct {
	path        string
	lockTimeout time.Duration
}

type Option func(*Repo)

// WithLockTimeout bounds how long a call waits for the database file lock.
func WithLockTimeout(d time.Duration) Option {
	return func(r *Repo) {
		if d > 0 {
			r.lockTimeout = d
		}
	}
}

// Open creates the database at path if needed and ensures the credentials bucket
// exists. It holds no lock once it returns.
func Open(path string, options ...Option) (*Repo, error) {
	if path == "" {
		return nil, errors.New("[boltrepo.Open] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, apperrors.Storage(err, "[boltrepo.Open] create dir")
	}

	r := &Repo{path: path, lockTimeout: defaultLockTimeout}
	for _, option := range options {
		option(r)
	}

	err := r.update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, apperrors.Storage(err, "[boltrepo.Open] %s", filepath.Base(path))
	}
	return r, nil
}

func (r *Repo) open(readOnly bool) (*bolt.DB, error) {
	return bolt.Open(r.path, 0o600, &bolt.Options{Timeout: r.lockTimeout, ReadOnly: readOnly})
}

func (r *Repo) view(fn func(*bolt.Bucket) error) error {
	db, err := r.open(true)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		return fn(b)
	})
}

func (r *Repo) update(fn func(*bolt.Tx) error) error {
	db, err := r.open(false)
	if err != nil {
		return err
	}
	if err := db.Update(fn); err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

func (r *Repo) Get(_ context.Context, username string) (*users.Credential, error) {
	var credential *users.Credential
	err := r.view(func(b *bolt.Bucket) error {
		v := b.Get([]byte(username))
		if v == nil {
			return nil
		}
		c, err := decode(username, v)
		credential = c
		return err
	})
	if err != nil {
		return nil, apperrors.Storage(err, "[boltrepo.Get]")
	}
	if credential == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return credential, nil
}

// Insert checks and writes inside a single read-write transaction; bbolt serializes
// writers so two registrations of the same name cannot both succeed.
func (r *Repo) Insert(_ context.Context, credential *users.Credential) error {
	payload, err := json.Marshal(credential)
	if err != nil {
		return apperrors.Storage(err, "[boltrepo.Insert] encode")
	}
	key := []byte(credential.Username)

	err = r.update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		if b.Get(key) != nil {
			return errDuplicate
		}
		return b.Put(key, payload)
	})
	switch {
	case errors.Is(err, errDuplicate):
		return apperrors.ErrDuplicateUser
	case err != nil:
		return apperrors.Storage(err, "[boltrepo.Insert]")
	}
	return nil
}

// List walks the bucket in key order, which is username order.
func (r *Repo) List(_ context.Context) ([]*users.Credential, error) {
	list := make([]*users.Credential, 0)
	err := r.view(func(b *bolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			credential, err := decode(string(k), v)
			if err != nil {
				return err
			}
			list = append(list, credential)
			return nil
		})
	})
	if err != nil {
		return nil, apperrors.Storage(err, "[boltrepo.List]")
	}
	return list, nil
}

func decode(username string, v []byte) (*users.Credential, error) {
	var credential users.Credential
	if err := json.Unmarshal(v, &credential); err != nil {
		return nil, err
	}
	credential.Username = username
	return &credential, nil
}
