package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type storedSession struct {
	record  *sessions.Record
	written time.Time
}

// FakeSessionRepo keeps sessions in memory with the same TTL and version semantics as
// the persistent stores.
type FakeSessionRepo struct {
	sessions map[string]storedSession
	ttl      time.Duration
	nowTime  func() time.Time
	lock     sync.RWMutex
}

func NewFakeSessionRepo(ttl time.Duration, nowTime func() time.Time) *FakeSessionRepo {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &FakeSessionRepo{
		sessions: make(map[string]storedSession),
		ttl:      ttl,
		nowTime:  nowTime,
	}
}

func (sr *FakeSessionRepo) Get(_ context.Context, sessionID string) (*sessions.Record, error) {
	if !sessions.ValidID(sessionID) {
		return nil, apperrors.ErrSessionNotFound
	}

	sr.lock.RLock()
	stored, ok := sr.sessions[sessionID]
	sr.lock.RUnlock()
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	if sessions.Expired(stored.written, sr.nowTime(), sr.ttl) {
		sr.lock.Lock()
		delete(sr.sessions, sessionID)
		sr.lock.Unlock()
		return nil, apperrors.ErrSessionNotFound
	}
	return stored.record.Clone(), nil
}

func (sr *FakeSessionRepo) Create(_ context.Context) (*sessions.Record, error) {
	id, err := sessions.NewID()
	if err != nil {
		return nil, err
	}
	return sessions.NewRecord(id, sr.nowTime().UTC()), nil
}

func (sr *FakeSessionRepo) Save(_ context.Context, record *sessions.Record) error {
	if !sessions.ValidID(record.ID) {
		return apperrors.ErrInvalidSessionID
	}

	sr.lock.Lock()
	defer sr.lock.Unlock()

	var current int64
	if stored, ok := sr.sessions[record.ID]; ok && !sessions.Expired(stored.written, sr.nowTime(), sr.ttl) {
		current = stored.record.Version
	}
	if current != record.Version {
		return apperrors.ErrConflict
	}

	record.Version = current + 1
	sr.sessions[record.ID] = storedSession{record: record.Clone(), written: sr.nowTime()}
	return nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	delete(sr.sessions, sessionID)
	return nil
}

func (sr *FakeSessionRepo) DeleteExpired(_ context.Context) (int, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	now := sr.nowTime()
	removed := 0
	for sessionID, stored := range sr.sessions {
		if sessions.Expired(stored.written, now, sr.ttl) {
			delete(sr.sessions, sessionID)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired or not.
func (sr *FakeSessionRepo) Len() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
