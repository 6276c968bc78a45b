package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session and credential stores
var (
	// Request errors
	ErrMalformedInput = errors.New("malformed input")

	// Session errors
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrSessionNotFound  = errors.New("session not found")
	ErrConflict         = errors.New("session modified concurrently")

	// Credential errors
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordPolicy     = errors.New("password policy violation")

	// General errors
	ErrStorageIO      = errors.New("storage failure")
	ErrAlreadyWritten = errors.New("response already written")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Storage marks err as a storage failure while keeping the original cause in the chain.
func Storage(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: "+format+": %w", append(append([]interface{}{ErrStorageIO}, args...), err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}
