package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Consolidator runs the portfolio refresh sweep across all users.
type Consolidator interface {
	ConsolidateAll(ctx context.Context) error
}

// CadenceSource reports how often portfolios should refresh right now.
// The market status stream implements it: a short interval while any
// tracked exchange is open, a long one overnight and on weekends.
type CadenceSource interface {
	RefreshInterval(now time.Time) time.Duration
}

// RefreshJob re-consolidates every user's portfolio on a market-aware
// cadence. The job itself ticks every minute; each tick compares the time
// since the last sweep against the current refresh interval and only runs
// when one is due, so the cadence follows exchange status without
// rescheduling the cron entry.
type RefreshJob struct {
	consolidator Consolidator
	cadence      CadenceSource
	sweepTimeout time.Duration
	log          zerolog.Logger

	mu       sync.Mutex
	lastRun  time.Time
	sweeping bool
}

// RefreshJobConfig holds the refresh job dependencies.
type RefreshJobConfig struct {
	Consolidator Consolidator
	Cadence      CadenceSource
	SweepTimeout time.Duration
	Logger       zerolog.Logger
}

// NewRefreshJob creates the portfolio refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = 10 * time.Minute
	}
	return &RefreshJob{
		consolidator: cfg.Consolidator,
		cadence:      cfg.Cadence,
		sweepTimeout: cfg.SweepTimeout,
		log:          cfg.Logger.With().Str("job", "portfolio_refresh").Logger(),
	}
}

// Run executes one tick of the refresh job.
func (j *RefreshJob) Run() error {
	return j.runAt(time.Now().UTC())
}

// Name returns the job name for scheduling and logging.
func (j *RefreshJob) Name() string {
	return "portfolio_refresh"
}

// runAt decides whether a sweep is due at now and runs it. A sweep still in
// flight from a previous tick suppresses the next one instead of stacking.
func (j *RefreshJob) runAt(now time.Time) error {
	interval := j.cadence.RefreshInterval(now)

	j.mu.Lock()
	if j.sweeping {
		j.mu.Unlock()
		j.log.Debug().Msg("Previous sweep still running, skipping tick")
		return nil
	}
	if !j.lastRun.IsZero() && now.Sub(j.lastRun) < interval {
		j.mu.Unlock()
		return nil
	}
	j.sweeping = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.sweeping = false
		j.mu.Unlock()
	}()

	j.log.Info().Dur("interval", interval).Msg("Refresh sweep due")

	ctx, cancel := context.WithTimeout(context.Background(), j.sweepTimeout)
	defer cancel()

	err := j.consolidator.ConsolidateAll(ctx)

	j.mu.Lock()
	j.lastRun = now
	j.mu.Unlock()

	return err
}

// LastRun returns when the job last completed a sweep.
func (j *RefreshJob) LastRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}
