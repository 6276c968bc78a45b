package fakesessionrepo_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/sessions"
	fakesessionrepo "github.com/jrsteele09/go-session-auth/sessions/repofakes"
	"github.com/jrsteele09/go-session-auth/sessions/sessionstest"
)

func TestFakeSessionRepo(t *testing.T) {
	sessionstest.Run(t, func(t *testing.T, clock *sessionstest.Clock) (sessions.Repo, func(time.Duration)) {
		return fakesessionrepo.NewFakeSessionRepo(sessionstest.TTL, clock.Now), func(time.Duration) {}
	})
}
