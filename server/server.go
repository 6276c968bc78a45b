package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-session-auth/request"
	"github.com/rs/zerolog"
)

// Server exposes a Handler over net/http. Each request is translated into the same
// environment a CGI gateway would provide.
type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	handler *Handler
	logger  zerolog.Logger
}

func New(env string, handler *Handler, logger zerolog.Logger) (*Server, error) {
	if handler == nil {
		return nil, fmt.Errorf("[Server New] handler is required")
	}
	s := &Server{
		env:     env,
		mux:     http.NewServeMux(),
		handler: handler,
		logger:  logger,
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex, ChainMiddleware(s.PageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteIndex, ChainMiddleware(s.PageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteHealth, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		s.logger.Debug().Str("method", method).Str("path", path).Msg("Route registered")
	}
}

// PageHandler runs the session page for one HTTP request.
func (s *Server) PageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := Env(r)
		var body io.Reader = r.Body
		if r.ContentLength < 0 {
			// Chunked: buffer up to one byte past the limit so an oversized body is
			// still reported as such.
			buf, err := io.ReadAll(io.LimitReader(r.Body, s.handler.maxBodyBytes+1))
			if err != nil {
				s.logger.Warn().Err(err).Msg("Failed to read request body")
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			env[request.EnvContentLength] = strconv.Itoa(len(buf))
			body = bytes.NewReader(buf)
		}
		WriteHTTP(w, s.handler.Respond(r.Context(), env, body))
	}
}

// Env builds the CGI environment for r.
func Env(r *http.Request) map[string]string {
	env := map[string]string{
		request.EnvRequestMethod: r.Method,
		request.EnvContentType:   r.Header.Get("Content-Type"),
		request.EnvHTTPCookie:    strings.Join(r.Header.Values("Cookie"), "; "),
		request.EnvQueryString:   r.URL.RawQuery,
		EnvScriptName:            r.URL.Path,
	}
	if r.ContentLength >= 0 {
		env[request.EnvContentLength] = strconv.FormatInt(r.ContentLength, 10)
	}
	return env
}

// WriteHTTP replays resp onto w.
func WriteHTTP(w http.ResponseWriter, resp *Response) {
	for _, h := range resp.Headers() {
		w.Header().Set(h[0], h[1])
	}
	if _, ok := resp.Header(HeaderContentType); !ok {
		w.Header().Set(HeaderContentType, ContentTypeHTML)
	}
	for _, c := range resp.Cookies {
		w.Header().Add(HeaderSetCookie, c.String())
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write(resp.Body)
}
