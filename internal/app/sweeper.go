package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const sweepTimeout = time.Minute

// Sweeper periodically removes expired sessions. Reads already purge lazily; the sweep
// reclaims records nobody asks for again.
type Sweeper struct {
	repo   sessions.Repo
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewSweeper schedules a sweep of repo on schedule, e.g. "@every 10m".
func NewSweeper(repo sessions.Repo, schedule string, logger zerolog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		repo:   repo,
		cron:   cron.New(),
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		s.Sweep(ctx)
	}); err != nil {
		return nil, fmt.Errorf("[app.NewSweeper] schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Sweep runs one pass and returns how many sessions were removed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	removed, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error().Err(err).Int("removed", removed).Msg("Session sweep failed")
		return removed
	}
	s.logger.Info().Int("removed", removed).Msg("Session sweep finished")
	return removed
}

// Start launches the scheduler.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}
