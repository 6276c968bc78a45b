package users

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Credential binds a username to a password hash. It is created by registration and
// never deleted automatically.
type Credential struct {
	Username     string    `json:"-"`            // Unique key; the map key in the credential file
	PasswordHash string    `json:"passwordHash"` // bcrypt hash, never the password itself
	UserID       string    `json:"userId"`       // UUID assigned at registration
	CreatedAt    time.Time `json:"createdAt"`    // Registration time
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// dummyHash is compared against when the username is unknown so that a failed lookup
// costs the same as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	h, err := HashPassword("not-a-real-password")
	if err != nil {
		panic("users: cannot build dummy hash: " + err.Error())
	}
	return h
})

// IsHashed reports whether hash looks like a bcrypt hash. Credential files holding
// anything else are refused.
func IsHashed(hash string) bool {
	_, err := bcrypt.Cost([]byte(hash))
	return err == nil
}

var errEmptyUsername = errors.New("username is required")
