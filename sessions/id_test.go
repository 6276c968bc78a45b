package sessions_test

import (
	"strings"
	"testing"

	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsValidAndUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id, err := sessions.NewID()
		require.NoError(t, err)
		require.True(t, sessions.ValidID(id), id)
		require.Len(t, id, 43)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"abc123", true},
		{"A-b_C", true},
		{"", false},
		{"../etc/passwd", false},
		{"abc/def", false},
		{"abc.json", false},
		{"abc def", false},
		{"abc\x00", false},
		{"sessé", false},
		{strings.Repeat("a", 128), true},
		{strings.Repeat("a", 129), false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.valid, sessions.ValidID(tt.id), "%q", tt.id)
	}
}
