package sweeper

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/strivelabs/tenantkv/metrics"
	"github.com/strivelabs/tenantkv/storage"
)

// DefaultInterval is how often the sweeper runs unless configured otherwise.
const DefaultInterval = 60 * time.Second

type Config struct {
	// For time.Ticker ticks
	TickCh <-chan time.Time
	// Closed by the caller to stop the loop
	StopCh <-chan struct{}
	// Store to sweep
	Store storage.RecordStore
	// Metrics sink for sweep counters
	Metrics *metrics.Metrics
}

// Run conducts a single sweep pass at the given time and returns how many
// entries it flagged. The pass is idempotent: running it again with no newly
// lapsed entries flips nothing. A request-path expiry flip and a sweep can
// race harmlessly, since both converge on the same flag.
func Run(c *Config, now time.Time) (int, error) {
	marked, err := c.Store.MarkExpired(now)
	if err != nil {
		return 0, err
	}
	c.Metrics.SweepRunsTotal.Inc()
	c.Metrics.SweepMarkedTotal.Add(float64(marked))
	return marked, nil
}

// StartLoop sweeps on every tick until StopCh closes. Every failure is
// logged and dropped; the next tick retries from scratch. Blocks, so run it
// in a goroutine.
func StartLoop(c *Config) {
	for {
		select {
		case <-c.StopCh:
			log.Info().Msg("stopping the expiration sweeper")
			return
		case now := <-c.TickCh:
			runID := uuid.NewString()
			marked, err := Run(c, now)
			if err != nil {
				c.Metrics.SweepFailuresTotal.Inc()
				log.Warn().
					Str("runId", runID).
					Err(err).
					Msg("sweep pass failed, waiting for the next tick")
				continue
			}
			log.Debug().
				Str("runId", runID).
				Int("marked", marked).
				Msg("finished a sweep pass")
		}
	}
}
