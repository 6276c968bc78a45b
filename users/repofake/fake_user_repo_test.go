package fakeuserrepo_test

import (
	"testing"

	"github.com/jrsteele09/go-session-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
	"github.com/jrsteele09/go-session-auth/users/userstest"
)

func TestFakeUserRepo(t *testing.T) {
	userstest.Run(t, func(t *testing.T) users.Repo {
		return fakeuserrepo.NewFakeUserRepo()
	})
}
