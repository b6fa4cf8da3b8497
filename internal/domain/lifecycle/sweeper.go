package lifecycle

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically expires overdue requests. Run it in its own
// goroutine; it stops when the context is cancelled.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweeper(svc *Service, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, logger: logger}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.svc.SweepExpired(ctx)
			if err != nil {
				s.logger.Error().Err(err).Msg("expiry sweep failed")
				continue
			}
			if n > 0 {
				s.logger.Info().Int("expired", n).Msg("expiry sweep")
			}
		}
	}
}
