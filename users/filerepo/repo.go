// Package filerepo keeps every credential in a single JSON object keyed by username.
package filerepo

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/atomicfile"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/filelock"
	"github.com/jrsteele09/go-session-auth/users"
)

const defaultLockTimeout = 2 * time.Second

var _ users.Repo = (*Repo)(nil)

var errNotHashed = errors.New("password is not a bcrypt hash")

type Repo struct {
	path        string
	lockTimeout time.Duration
}

// Option configures a Repo.
type Option func(*Repo)

// WithLockTimeout bounds how long an insert waits for the file lock when the caller's
// context has no deadline.
func WithLockTimeout(d time.Duration) Option {
	return func(r *Repo) {
		if d > 0 {
			r.lockTimeout = d
		}
	}
}

// New returns a repo backed by path. The file is created on first insert; its
// directory must exist.
func New(path string, options ...Option) (*Repo, error) {
	if path == "" {
		return nil, errors.New("[filerepo.New] path is required")
	}
	r := &Repo{
		path:        path,
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

func (r *Repo) Get(_ context.Context, username string) (*users.Credential, error) {
	all, err := r.load()
	if err != nil {
		return nil, err
	}
	credential, ok := all[username]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return credential, nil
}

func (r *Repo) Insert(ctx context.Context, credential *users.Credential) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.lockTimeout)
		defer cancel()
	}
	lock, err := filelock.Acquire(ctx, r.path+".lock")
	if err != nil {
		return apperrors.Storage(err, "[filerepo.Insert]")
	}
	defer lock.Unlock()

	all, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := all[credential.Username]; ok {
		return apperrors.ErrDuplicateUser
	}
	stored := *credential
	all[credential.Username] = &stored

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return apperrors.Storage(err, "[filerepo.Insert] encode")
	}
	if err := atomicfile.Write(r.path, data); err != nil {
		return apperrors.Storage(err, "[filerepo.Insert] %s", filepath.Base(r.path))
	}
	return nil
}

func (r *Repo) List(_ context.Context) ([]*users.Credential, error) {
	all, err := r.load()
	if err != nil {
		return nil, err
	}
	list := make([]*users.Credential, 0, len(all))
	for _, credential := range all {
		list = append(list, credential)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Username < list[j].Username
	})
	return list, nil
}

// load treats a missing file as empty. A file that cannot be decoded, or that holds a
// password which is not a bcrypt hash, is a storage failure and is left untouched.
func (r *Repo) load() (map[string]*users.Credential, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]*users.Credential), nil
	}
	if err != nil {
		return nil, apperrors.Storage(err, "[filerepo.load] read")
	}

	all := make(map[string]*users.Credential)
	if len(raw) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, apperrors.Storage(err, "[filerepo.load] decode %s", filepath.Base(r.path))
	}
	for username, credential := range all {
		if credential == nil {
			delete(all, username)
			continue
		}
		if !users.IsHashed(credential.PasswordHash) {
			return nil, apperrors.Storage(errNotHashed, "[filerepo.load] %s: user %q", filepath.Base(r.path), username)
		}
		credential.Username = username
	}
	return all, nil
}
