package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	idEntropyBytes = 32
	maxIDLength    = 128
)

// NewID returns 256 random bits encoded as unpadded base64url, whose alphabet is
// exactly the set accepted by ValidID.
func NewID() (string, error) {
	b := make([]byte, idEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("[sessions.NewID] rand.Read: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidID reports whether id only holds [A-Za-z0-9_-], so it can never escape the
// store directory when used in a file name.
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
