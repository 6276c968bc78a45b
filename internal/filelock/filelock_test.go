package filelock_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/filelock"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	l, err := filelock.Acquire(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, l.Unlock())

	l, err = filelock.Acquire(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, l.Unlock())
	require.NoError(t, l.Unlock())
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	held, err := filelock.Acquire(context.Background(), path)
	require.NoError(t, err)
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = filelock.Acquire(ctx, path)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquireWaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	held, err := filelock.Acquire(context.Background(), path)
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		held.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	l, err := filelock.Acquire(ctx, path)
	require.NoError(t, err)
	require.NoError(t, l.Unlock())
}
