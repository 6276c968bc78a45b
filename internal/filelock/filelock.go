// Package filelock provides an advisory, inter-process exclusive lock on a file.
//
// Acquisition never blocks indefinitely: it polls until the lock is free or the
// context is done.
package filelock

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const retryInterval = 10 * time.Millisecond

// Lock is a held lock. Unlock releases it.
type Lock struct {
	f *flock.Flock
}

// Acquire takes an exclusive lock on path, creating the file if needed.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	f := flock.New(path)
	locked, err := f.TryLockContext(ctx, retryInterval)
	if err != nil {
		return nil, fmt.Errorf("[filelock.Acquire] waiting for %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("[filelock.Acquire] %s not acquired", path)
	}
	return &Lock{f: f}, nil
}

// Unlock releases the lock and closes the underlying file.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := l.f.Unlock()
	l.f = nil
	return err
}
