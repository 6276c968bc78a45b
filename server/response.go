package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-session-auth/cookies"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

const (
	HeaderContentType = "Content-Type"
	HeaderSetCookie   = "Set-Cookie"
	HeaderStatus      = "Status"

	ContentTypeHTML = "text/html; charset=utf-8"
)

type header struct {
	key   string
	value string
}

// Response is a CGI style response: header lines, one blank line, then the body.
// It can be written once.
type Response struct {
	Status  int
	Cookies []cookies.Cookie
	Body    []byte

	headers []header
	written bool
}

// NewResponse returns a response with the given status and content type.
func NewResponse(status int, contentType string, body []byte) *Response {
	r := &Response{Status: status, Body: body}
	r.SetHeader(HeaderContentType, contentType)
	return r
}

// SetHeader replaces key, keeping its original position, or appends it.
func (r *Response) SetHeader(key, value string) {
	key, value = sanitize(key), sanitize(value)
	for i := range r.headers {
		if strings.EqualFold(r.headers[i].key, key) {
			r.headers[i].value = value
			return
		}
	}
	r.headers = append(r.headers, header{key: key, value: value})
}

// Header returns the value of key.
func (r *Response) Header(key string) (string, bool) {
	for _, h := range r.headers {
		if strings.EqualFold(h.key, key) {
			return h.value, true
		}
	}
	return "", false
}

// Headers returns the headers in emission order, excluding Status and Set-Cookie.
func (r *Response) Headers() [][2]string {
	out := make([][2]string, 0, len(r.headers))
	for _, h := range r.headers {
		out = append(out, [2]string{h.key, h.value})
	}
	return out
}

// WriteTo emits Status (when set), the headers, one Set-Cookie line per cookie, a
// blank line and the body. A second call writes nothing and returns ErrAlreadyWritten.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	if r.written {
		return 0, apperrors.ErrAlreadyWritten
	}
	r.written = true

	if _, ok := r.Header(HeaderContentType); !ok {
		r.SetHeader(HeaderContentType, ContentTypeHTML)
	}

	var buf bytes.Buffer
	if r.Status != 0 {
		fmt.Fprintf(&buf, "%s: %s\r\n", HeaderStatus, statusLine(r.Status))
	}
	for _, h := range r.headers {
		if strings.EqualFold(h.key, HeaderStatus) || strings.EqualFold(h.key, HeaderSetCookie) {
			continue
		}
		fmt.Fprintf(&buf, "%s: %s\r\n", h.key, h.value)
	}
	for _, c := range r.Cookies {
		fmt.Fprintf(&buf, "%s: %s\r\n", HeaderSetCookie, sanitize(c.String()))
	}
	buf.WriteString("\r\n")
	buf.Write(r.Body)

	return buf.WriteTo(w)
}

// Written reports whether WriteTo has been called.
func (r *Response) Written() bool {
	return r.written
}

func statusLine(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code) + " " + text
}

// sanitize drops CR and LF so a value can never end the header block early.
func sanitize(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
