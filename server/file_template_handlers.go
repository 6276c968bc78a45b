package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/sessions"
)

const (
	pageTemplate  = "page.html"
	errorTemplate = "error.html"

	shownIDChars = 8
)

var templateFuncs = template.FuncMap{
	"shortID": shortID,
}

// shortID keeps enough of a session id to tell sessions apart without exposing a
// usable credential in the page.
func shortID(id string) string {
	if len(id) <= shownIDChars {
		return id
	}
	return id[:shownIDChars] + "…"
}

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Funcs(templateFuncs).Parse(string(content))
}

// PageData is what the templates render.
type PageData struct {
	Title     string
	Action    string // Form target
	Message   string
	Kind      auth.MessageKind
	Session   *sessions.Record
	RequestID string
}

// Renderer turns results into HTML.
type Renderer struct {
	title     string
	page      *template.Template
	errorPage *template.Template
}

func NewRenderer(title string) (*Renderer, error) {
	page, err := ParseTemplate(pageTemplate)
	if err != nil {
		return nil, err
	}
	errPage, err := ParseTemplate(errorTemplate)
	if err != nil {
		return nil, err
	}
	return &Renderer{title: title, page: page, errorPage: errPage}, nil
}

// Page renders the session page for res.
func (r *Renderer) Page(res *auth.Result, action, requestID string) ([]byte, error) {
	return r.execute(r.page, PageData{
		Title:     r.title,
		Action:    action,
		Message:   res.Message,
		Kind:      res.Kind,
		Session:   res.Session,
		RequestID: requestID,
	})
}

// Error renders the generic failure page. It reveals nothing about the cause.
func (r *Renderer) Error(requestID string) ([]byte, error) {
	return r.execute(r.errorPage, PageData{Title: r.title, RequestID: requestID})
}

func (r *Renderer) execute(t *template.Template, data PageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
