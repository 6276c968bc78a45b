package cookies_test

import (
	"testing"

	"github.com/jrsteele09/go-session-auth/cookies"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   cookies.Jar
	}{
		{name: "empty header", header: "", want: cookies.Jar{}},
		{name: "single", header: "SESSIONID=abc123", want: cookies.Jar{"SESSIONID": "abc123"}},
		{
			name:   "several with whitespace",
			header: " a=1 ;b = 2;  c=3 ",
			want:   cookies.Jar{"a": "1", "b": "2", "c": "3"},
		},
		{name: "segment without equals ignored", header: "flag; a=1", want: cookies.Jar{"a": "1"}},
		{name: "split on first equals", header: "token=a=b==", want: cookies.Jar{"token": "a=b=="}},
		{name: "later duplicate wins", header: "a=1; a=2", want: cookies.Jar{"a": "2"}},
		{name: "empty value kept", header: "a=", want: cookies.Jar{"a": ""}},
		{name: "empty name ignored", header: "=x; b=1", want: cookies.Jar{"b": "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, cookies.Parse(tt.header))
		})
	}
}

func TestSerialize(t *testing.T) {
	require.Equal(t, "SESSIONID=abc123; Path=/", cookies.Serialize("SESSIONID", "abc123", cookies.Options{}))

	got := cookies.Serialize("SESSIONID", "abc123", cookies.Options{
		Path:     "/app",
		MaxAge:   utils.Ptr(3600),
		Secure:   true,
		HTTPOnly: true,
		SameSite: cookies.SameSiteLax,
	})
	require.Equal(t, "SESSIONID=abc123; Path=/app; Max-Age=3600; Secure; HttpOnly; SameSite=Lax", got)
}

func TestRoundTrip(t *testing.T) {
	require.Equal(t, cookies.Jar{"SESSIONID": "abc123"}, cookies.Parse(cookies.Serialize("SESSIONID", "abc123", cookies.Options{})))

	line := cookies.Serialize("SESSIONID", "abc123", cookies.Options{
		MaxAge:   utils.Ptr(60),
		Secure:   true,
		HTTPOnly: true,
		SameSite: cookies.SameSiteStrict,
	})
	require.Equal(t, cookies.Jar{"SESSIONID": "abc123"}, cookies.Parse(line))
}

func TestExpire(t *testing.T) {
	require.Equal(t, "temp_data=; Path=/; Max-Age=0", cookies.Expire("temp_data", "/").String())
}
