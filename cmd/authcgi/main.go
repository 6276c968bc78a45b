// Command authcgi serves one session/login page request under a CGI gateway.
//
// The request comes from the environment and stdin, the response goes to stdout, and
// logs go to stderr. Failures are rendered as a 500 page, so the exit status is
// non-zero only when nothing could be written.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/app"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/logger"
	"github.com/jrsteele09/go-session-auth/request"
	"github.com/jrsteele09/go-session-auth/server"
	"github.com/rs/zerolog"
)

// requestTimeout bounds store locking and Redis calls; the gateway enforces its own
// deadline on the whole process.
const requestTimeout = 10 * time.Second

func main() {
	c := config.New()
	l := logger.Init(c.GetLogLevel(), c.GetLogFormat(), os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := serve(ctx, c, l); err != nil {
		l.Error().Err(err).Msg("authcgi failed")
		cancel()
		os.Exit(1)
	}
}

func serve(ctx context.Context, c config.Config, l zerolog.Logger) error {
	renderer, err := server.NewRenderer(c.GetAppName())
	if err != nil {
		return err
	}

	stores, err := app.OpenStores(ctx, c, l)
	if err != nil {
		l.Error().Err(err).Msg("Failed to open stores")
		return unavailable(renderer)
	}
	defer stores.Close()

	engine, err := app.NewEngine(c, stores, l)
	if err != nil {
		return err
	}
	handler, err := server.NewHandler(engine, renderer, server.WithMaxBodyBytes(c.GetMaxBodyBytes()), server.WithLogger(l))
	if err != nil {
		return err
	}
	return server.NewCGIHandler(handler).Serve(ctx, request.Environ(os.Environ()), os.Stdin, os.Stdout)
}

// unavailable writes the generic error page when no store could be opened.
func unavailable(renderer *server.Renderer) error {
	body, err := renderer.Error("")
	if err != nil {
		return err
	}
	_, err = server.NewResponse(http.StatusInternalServerError, server.ContentTypeHTML, body).WriteTo(os.Stdout)
	return err
}
