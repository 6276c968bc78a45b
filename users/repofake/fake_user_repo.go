package fakeuserrepo

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users map[string]users.Credential
	lock  sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[string]users.Credential),
	}
}

func (ur *FakeUserRepo) Get(_ context.Context, username string) (*users.Credential, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	credential, ok := ur.users[username]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &credential, nil
}

func (ur *FakeUserRepo) Insert(_ context.Context, credential *users.Credential) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.users[credential.Username]; ok {
		return apperrors.ErrDuplicateUser
	}
	ur.users[credential.Username] = *credential
	return nil
}

func (ur *FakeUserRepo) List(_ context.Context) ([]*users.Credential, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	list := make([]*users.Credential, 0, len(ur.users))
	for _, v := range ur.users {
		credential := v
		list = append(list, &credential)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Username < list[j].Username
	})
	return list, nil
}
