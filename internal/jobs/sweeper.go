package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
)

// Sweeper fails processing jobs that have stopped making progress, so a
// crashed worker never leaves a job stuck in processing forever.
type Sweeper struct {
	storage    interfaces.JobStorage
	logger     arbor.ILogger
	cron       *cron.Cron
	staleAfter time.Duration
	schedule   string
}

// NewSweeper creates a stale-job sweeper from the jobs configuration
func NewSweeper(config *common.JobsConfig, storage interfaces.JobStorage, logger arbor.ILogger) (*Sweeper, error) {
	staleAfter, err := time.ParseDuration(config.StaleAfter)
	if err != nil {
		return nil, fmt.Errorf("invalid stale_after duration '%s': %w", config.StaleAfter, err)
	}

	return &Sweeper{
		storage:    storage,
		logger:     logger,
		cron:       cron.New(),
		staleAfter: staleAfter,
		schedule:   config.SweepSchedule,
	}, nil
}

// Start registers the sweep schedule and runs an immediate sweep to fail
// jobs orphaned by a previous shutdown
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.Sweep); err != nil {
		return fmt.Errorf("invalid sweep schedule '%s': %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.schedule).
		Dur("stale_after", s.staleAfter).
		Msg("Stale job sweeper started")

	go s.Sweep()
	return nil
}

// Stop halts the sweep schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Stale job sweeper stopped")
}

// Sweep fails every processing job whose last update is older than the
// configured threshold
func (s *Sweeper) Sweep() {
	ctx := context.Background()

	stale, err := s.storage.GetStaleJobs(ctx, s.staleAfter)
	if err != nil {
		s.logger.Error().Err(err).Msg("Stale job query failed")
		return
	}
	if len(stale) == 0 {
		return
	}

	for _, job := range stale {
		message := fmt.Sprintf("job stalled: no progress for %s", s.staleAfter)
		if err := s.storage.UpdateJobStatus(ctx, job.ID, models.JobStatusFailed, message); err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to fail stale job")
			continue
		}
		s.logger.Warn().
			Str("job_id", job.ID).
			Str("last_update", job.UpdatedAt.Format(time.RFC3339)).
			Msg("Failed stale processing job")
	}
}
