// Package request builds an immutable per-request snapshot from a CGI style
// environment and the request body stream.
package request

import (
	"bytes"
	"io"
	"mime"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-session-auth/cookies"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/oklog/ulid/v2"
)

// Environment keys read from the gateway.
const (
	EnvRequestMethod = "REQUEST_METHOD"
	EnvContentLength = "CONTENT_LENGTH"
	EnvContentType   = "CONTENT_TYPE"
	EnvHTTPCookie    = "HTTP_COOKIE"
	EnvQueryString   = "QUERY_STRING"
)

const (
	DefaultMaxBodyBytes = 1 << 20
	formContentType     = "application/x-www-form-urlencoded"
)

// Context is the per-request snapshot. It is never mutated after Build.
type Context struct {
	id            string
	method        string
	contentType   string
	contentLength int64
	body          []byte
	queryString   string
	cookies       cookies.Jar
}

type options struct {
	maxBodyBytes int64
}

// Option configures Build.
type Option func(*options)

// WithMaxBodyBytes caps the accepted CONTENT_LENGTH. Larger declarations are treated
// as malformed.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// Build reads exactly CONTENT_LENGTH bytes from body and snapshots env.
//
// The returned Context is always usable. A malformed CONTENT_LENGTH is recovered as 0
// and reported through the error, which wraps ErrMalformedInput. A body that ends
// early produces a short body without an error.
func Build(env map[string]string, body io.Reader, opts ...Option) (*Context, error) {
	o := options{maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&o)
	}

	rc := &Context{
		id:          ulid.Make().String(),
		method:      strings.ToUpper(strings.TrimSpace(env[EnvRequestMethod])),
		contentType: env[EnvContentType],
		queryString: env[EnvQueryString],
		cookies:     cookies.Parse(env[EnvHTTPCookie]),
	}
	if rc.method == "" {
		rc.method = "GET"
	}

	length, lengthErr := ParseContentLength(env[EnvContentLength])
	if lengthErr == nil && length > o.maxBodyBytes {
		lengthErr = apperrors.Wrapf(apperrors.ErrMalformedInput, "[request.Build] content length %d exceeds %d", length, o.maxBodyBytes)
		length = 0
	}
	rc.contentLength = length

	if length > 0 && body != nil {
		buf := make([]byte, length)
		n, err := io.ReadFull(io.LimitReader(body, length), buf)
		rc.body = buf[:n]
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return rc, apperrors.Wrapf(apperrors.ErrMalformedInput, "[request.Build] reading body: %v", err)
		}
	}
	return rc, lengthErr
}

// ParseContentLength returns 0 for an absent value and ErrMalformedInput (with 0) for
// anything that is not a non-negative integer.
func ParseContentLength(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, apperrors.Wrapf(apperrors.ErrMalformedInput, "[request.ParseContentLength] %q", raw)
	}
	return n, nil
}

// Environ converts os.Environ style "KEY=value" entries into a map.
func Environ(entries []string) map[string]string {
	env := make(map[string]string, len(entries))
	for _, e := range entries {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}
	return env
}

// ID is a ULID assigned at Build, used to correlate log lines.
func (rc *Context) ID() string { return rc.id }

func (rc *Context) Method() string { return rc.method }

func (rc *Context) ContentType() string { return rc.contentType }

// ContentLength is the declared length after validation, not len(Body()).
func (rc *Context) ContentLength() int64 { return rc.contentLength }

// Body returns a copy of the body bytes.
func (rc *Context) Body() []byte { return bytes.Clone(rc.body) }

func (rc *Context) QueryString() string { return rc.queryString }

// Cookie returns the named request cookie.
func (rc *Context) Cookie(name string) (string, bool) { return rc.cookies.Get(name) }

// Cookies returns a copy of the request cookie jar.
func (rc *Context) Cookies() cookies.Jar {
	jar := make(cookies.Jar, len(rc.cookies))
	for k, v := range rc.cookies {
		jar[k] = v
	}
	return jar
}

// IsPost reports whether the request method is POST.
func (rc *Context) IsPost() bool { return rc.method == "POST" }

// Form returns the url-encoded POST fields, first value per key. Other methods and
// content types yield an empty map.
func (rc *Context) Form() map[string]string {
	if !rc.IsPost() || !rc.isFormBody() {
		return map[string]string{}
	}
	return parseValues(string(rc.body))
}

// Query returns the QUERY_STRING fields, first value per key.
func (rc *Context) Query() map[string]string {
	return parseValues(rc.queryString)
}

func (rc *Context) isFormBody() bool {
	if strings.TrimSpace(rc.contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(rc.contentType)
	return err == nil && mediaType == formContentType
}

// parseValues keeps whatever url.ParseQuery managed to decode; malformed pairs are
// dropped rather than failing the request.
func parseValues(raw string) map[string]string {
	values, _ := url.ParseQuery(raw)
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		} else {
			out[k] = ""
		}
	}
	return out
}
