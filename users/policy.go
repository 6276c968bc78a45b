package users

import (
	"fmt"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

const (
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes   = 72
	MaxUsernameLength  = 64
	DefaultMinPassword = 4
)

// Policy holds the registration rules.
type Policy struct {
	MinPasswordLength int
}

func DefaultPolicy() Policy {
	return Policy{MinPasswordLength: DefaultMinPassword}
}

// CheckPassword returns ErrPasswordPolicy when password is too short or too long
// for bcrypt.
func (p Policy) CheckPassword(password string) error {
	if utf8.RuneCountInString(password) < p.MinPasswordLength {
		return apperrors.Wrapf(apperrors.ErrPasswordPolicy, "password must be at least %d characters long", p.MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return apperrors.Wrapf(apperrors.ErrPasswordPolicy, "password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// CheckUsername requires a non-empty username of at most MaxUsernameLength characters.
func (p Policy) CheckUsername(username string) error {
	if username == "" {
		return errEmptyUsername
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("username must be at most %d characters long", MaxUsernameLength)
	}
	return nil
}
