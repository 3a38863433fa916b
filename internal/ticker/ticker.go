package ticker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Tickable is anything that advances on a wall-clock tick
type Tickable interface {
	Tick(now time.Time)
}

// Ticker calls Tick on its target at a fixed interval
type Ticker struct {
	target   Tickable
	interval time.Duration
	logger   zerolog.Logger
}

// NewTicker creates a new Ticker
func NewTicker(target Tickable, interval time.Duration, logger zerolog.Logger) *Ticker {
	return &Ticker{
		target:   target,
		interval: interval,
		logger:   logger.With().Str("component", "ticker").Logger(),
	}
}

// Start blocks, ticking the target until ctx is cancelled
func (t *Ticker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info().Dur("interval", t.interval).Msg("ticker started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("ticker stopped")
			return

		case now := <-ticker.C:
			t.target.Tick(now)
		}
	}
}
