package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"groupgate/internal/jobs"
	"groupgate/internal/logger"
)

// Scheduler manages cron job scheduling.
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner.
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// UTC with seconds precision, matching the config's cron specs.
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	_, err := s.cron.AddFunc(cfg.DeleteExpiredCodes, s.jobs.DeleteExpiredCodes)
	if err != nil {
		logger.Error("Failed to register DeleteExpiredCodes job", "error", err)
	}

	_, err = s.cron.AddFunc(cfg.ReportCodeStats, s.jobs.ReportCodeStats)
	if err != nil {
		logger.Error("Failed to register ReportCodeStats job", "error", err)
	}

	logger.Info("Cron jobs registered")
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if jobs are registered.
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
