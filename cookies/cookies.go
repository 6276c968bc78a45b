// Package cookies parses the request Cookie header and formats Set-Cookie values.
package cookies

import (
	"strconv"
	"strings"
)

// Jar is the name to value view of one request's Cookie header.
type Jar map[string]string

// Get returns the named cookie value and whether it was present.
func (j Jar) Get(name string) (string, bool) {
	v, ok := j[name]
	return v, ok
}

// attributes are Set-Cookie attribute names. Browsers never send them as cookie names,
// so Parse drops them; this lets a serialized Set-Cookie value parse back to its pair.
var attributes = map[string]struct{}{
	"path": {}, "domain": {}, "expires": {}, "max-age": {}, "samesite": {},
}

// Parse splits a Cookie header ("a=1; b=2") into a Jar. Segments without "=" are
// ignored and a later duplicate name overwrites an earlier one.
func Parse(header string) Jar {
	jar := Jar{}
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := attributes[strings.ToLower(name)]; ok {
			continue
		}
		jar[name] = strings.TrimSpace(value)
	}
	return jar
}

// SameSite values accepted by Cookie.SameSite.
const (
	SameSiteLax    = "Lax"
	SameSiteStrict = "Strict"
	SameSiteNone   = "None"
)

// Options are the attributes attached to an outgoing cookie.
type Options struct {
	Path     string
	MaxAge   *int // seconds; nil omits the attribute, 0 expires the cookie
	Secure   bool
	HTTPOnly bool
	SameSite string
}

// Cookie is one outgoing Set-Cookie directive.
type Cookie struct {
	Name  string
	Value string
	Options
}

// String renders the Set-Cookie header value, e.g. "SESSIONID=abc; Path=/; Max-Age=3600".
func (c Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)

	path := c.Path
	if path == "" {
		path = "/"
	}
	b.WriteString("; Path=")
	b.WriteString(path)

	if c.MaxAge != nil {
		maxAge := *c.MaxAge
		if maxAge < 0 {
			maxAge = 0
		}
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(maxAge))
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if c.SameSite != "" {
		b.WriteString("; SameSite=")
		b.WriteString(c.SameSite)
	}
	return b.String()
}

// Serialize renders a single Set-Cookie value. Several cookies need several header
// lines; values are never comma-joined.
func Serialize(name, value string, opts Options) string {
	return Cookie{Name: name, Value: value, Options: opts}.String()
}

// Expire returns a directive that removes name from the client.
func Expire(name, path string) Cookie {
	zero := 0
	return Cookie{Name: name, Options: Options{Path: path, MaxAge: &zero}}
}
