package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/request"
	"github.com/rs/zerolog"
)

// EnvScriptName is the CGI variable holding the script's URL path.
const EnvScriptName = "SCRIPT_NAME"

// Handler turns one request environment into a Response.
type Handler struct {
	engine       *auth.Engine
	renderer     *Renderer
	maxBodyBytes int64
	logger       zerolog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

func WithLogger(l zerolog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = l
	}
}

func NewHandler(engine *auth.Engine, renderer *Renderer, options ...HandlerOption) (*Handler, error) {
	if engine == nil || renderer == nil {
		return nil, errors.New("[NewHandler] engine and renderer are required")
	}
	h := &Handler{
		engine:       engine,
		renderer:     renderer,
		maxBodyBytes: request.DefaultMaxBodyBytes,
		logger:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(h)
	}
	return h, nil
}

// Respond runs the request and always returns a writable Response. Failures are
// logged and rendered as a generic 500 page.
func (h *Handler) Respond(ctx context.Context, env map[string]string, body io.Reader) *Response {
	req, err := request.Build(env, body, request.WithMaxBodyBytes(h.maxBodyBytes))
	logger := h.logger.With().Str("request_id", req.ID()).Str("method", req.Method()).Logger()
	if err != nil {
		logger.Warn().Err(err).Msg("Malformed request input, continuing with an empty body")
	}

	res, err := h.engine.Handle(ctx, req)
	if err != nil {
		logger.Error().Err(err).Bool("storage", errors.Is(err, apperrors.ErrStorageIO)).Msg("Request failed")
		return h.failure(logger, req.ID())
	}

	page, err := h.renderer.Page(res, env[EnvScriptName], req.ID())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to render page")
		return h.failure(logger, req.ID())
	}

	resp := NewResponse(http.StatusOK, ContentTypeHTML, page)
	resp.SetHeader("Cache-Control", "no-store")
	resp.Cookies = res.Cookies
	logger.Info().Str("session_id", res.Session.ID).Str("kind", string(res.Kind)).Msg("Request served")
	return resp
}

func (h *Handler) failure(logger zerolog.Logger, requestID string) *Response {
	body, err := h.renderer.Error(requestID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to render error page")
		return NewResponse(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("Internal Server Error\n"))
	}
	resp := NewResponse(http.StatusInternalServerError, ContentTypeHTML, body)
	resp.SetHeader("Cache-Control", "no-store")
	return resp
}

// CGIHandler serves a single request from a CGI environment.
type CGIHandler struct {
	handler *Handler
}

func NewCGIHandler(handler *Handler) *CGIHandler {
	return &CGIHandler{handler: handler}
}

// Serve reads the request from env and stdin and writes the whole response to stdout.
func (c *CGIHandler) Serve(ctx context.Context, env map[string]string, stdin io.Reader, stdout io.Writer) error {
	resp := c.handler.Respond(ctx, env, stdin)
	if _, err := resp.WriteTo(stdout); err != nil {
		return apperrors.Wrapf(err, "[CGIHandler.Serve] write response")
	}
	return nil
}
