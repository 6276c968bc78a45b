package sessions_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/stretchr/testify/require"
)

func TestRecordTransitions(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := sessions.NewRecord("id", t0)
	require.Equal(t, 1, rec.VisitCount)
	require.False(t, rec.Authenticated)
	require.Empty(t, rec.UsernameValue())

	rec.ShowRegister = true
	rec.Bind("alice", "u-1", t0.Add(time.Second))
	require.True(t, rec.Authenticated)
	require.Equal(t, "alice", rec.UsernameValue())
	require.Equal(t, "u-1", rec.UserIDValue())
	require.False(t, rec.ShowRegister)

	rec.Touch(t0.Add(time.Minute))
	require.Equal(t, 2, rec.VisitCount)
	require.Equal(t, t0.Add(time.Minute), rec.LastVisit)
}

func TestCloneIsDeep(t *testing.T) {
	rec := sessions.NewRecord("id", time.Now())
	rec.Bind("alice", "u-1", time.Now())

	c := rec.Clone()
	*c.Username = "mallory"
	require.Equal(t, "alice", rec.UsernameValue())
	require.Nil(t, (*sessions.Record)(nil).Clone())
}

func TestExpired(t *testing.T) {
	t0 := time.Unix(1000, 0)
	require.False(t, sessions.Expired(t0, t0.Add(30*time.Minute), 30*time.Minute))
	require.True(t, sessions.Expired(t0, t0.Add(30*time.Minute+time.Second), 30*time.Minute))
}
