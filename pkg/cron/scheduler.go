// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSpec runs the cache sweep every minute.
const DefaultSweepSpec = "@every 1m"

// Sweeper drops expired entries and reports how many were removed.
type Sweeper interface {
	CleanExpired() int
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	logger  *slog.Logger
}

// NewScheduler creates a scheduler that sweeps sweeper on spec.
// An empty spec uses DefaultSweepSpec.
func NewScheduler(sweeper Sweeper, spec string, logger *slog.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:    c,
		sweeper: sweeper,
		spec:    spec,
		logger:  logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.sweep)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("sweep_spec", s.spec),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs the sweep synchronously and returns the number of removed entries.
func (s *Scheduler) RunNow() int {
	return s.clean()
}

func (s *Scheduler) sweep() {
	s.clean()
}

func (s *Scheduler) clean() int {
	removed := s.sweeper.CleanExpired()
	if removed > 0 {
		s.logger.Debug("swept expired cache entries", slog.Int("removed", removed))
	}
	return removed
}
