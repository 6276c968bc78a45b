package sessions

import (
	"time"

	"github.com/jrsteele09/go-session-auth/internal/utils"
)

// Record is the durable state bound to one browser's session cookie.
// A record whose last write is older than the store TTL is treated as absent.
type Record struct {
	ID            string     `json:"session_id"`              // Opaque base64url token
	CreatedAt     time.Time  `json:"created_at"`              // When the session was created
	LastVisit     time.Time  `json:"last_visit"`              // Updated on every request
	VisitCount    int        `json:"visit_count"`             // Requests seen, starting at 1
	Authenticated bool       `json:"logged_in"`               // Set by a successful login
	Username      *string    `json:"username,omitempty"`      // Bound on login
	UserID        *string    `json:"user_id,omitempty"`       // Bound on login
	LoginTime     *time.Time `json:"login_time,omitempty"`    // When the current login happened
	ShowRegister  bool       `json:"show_register,omitempty"` // UI flag: render the registration form

	// Version is the persisted revision this record was loaded at. Stores reject a save
	// whose Version no longer matches what is on disk.
	Version int64 `json:"-"`
}

// NewRecord returns an anonymous record for id, already counting the current visit.
func NewRecord(id string, now time.Time) *Record {
	return &Record{
		ID:         id,
		CreatedAt:  now,
		LastVisit:  now,
		VisitCount: 1,
	}
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Username != nil {
		c.Username = utils.Ptr(*r.Username)
	}
	if r.UserID != nil {
		c.UserID = utils.Ptr(*r.UserID)
	}
	if r.LoginTime != nil {
		c.LoginTime = utils.Ptr(*r.LoginTime)
	}
	return &c
}

// Bind marks the record authenticated as username/userID.
func (r *Record) Bind(username, userID string, at time.Time) {
	r.Authenticated = true
	r.Username = utils.Ptr(username)
	r.UserID = utils.Ptr(userID)
	r.LoginTime = utils.Ptr(at)
	r.ShowRegister = false
}

// Touch counts a visit.
func (r *Record) Touch(now time.Time) {
	r.VisitCount++
	r.LastVisit = now
}

// UsernameValue returns the bound username or "".
func (r *Record) UsernameValue() string {
	return utils.Value(r.Username)
}

// UserIDValue returns the bound user id or "".
func (r *Record) UserIDValue() string {
	return utils.Value(r.UserID)
}
