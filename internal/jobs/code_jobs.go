package jobs

import (
	"context"
	"errors"
	"time"

	"groupgate/internal/config"
	"groupgate/internal/logger"
	"groupgate/internal/repository"
)

// JobRunner coordinates the scheduled code-store maintenance jobs.
type JobRunner struct {
	codeRepo repository.CodeRepository
	config   *config.Config
}

func NewJobRunner(codeRepo repository.CodeRepository, cfg *config.Config) *JobRunner {
	return &JobRunner{
		codeRepo: codeRepo,
		config:   cfg,
	}
}

// Config exposes the runner's configuration to the scheduler.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// DeleteExpiredCodes removes expired codes that were never redeemed.
// Redeemed codes are kept; they are the audit trail of who got in how.
func (jr *JobRunner) DeleteExpiredCodes() {
	jr.runWithRecovery("DeleteExpiredCodes", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		deleted, err := jr.codeRepo.DeleteExpired(ctx, time.Now())
		if errors.Is(err, repository.ErrUnsupported) {
			logger.Debug("Retention skipped; code store is remote")
			return
		}
		if err != nil {
			logger.Error("Failed to delete expired codes", "error", err)
			return
		}
		logger.Info("Deleted expired codes", "count", deleted)
	})
}

// ReportCodeStats logs the code inventory for every configured group so
// operators notice groups running out of unused codes.
func (jr *JobRunner) ReportCodeStats() {
	jr.runWithRecovery("ReportCodeStats", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		for _, groupID := range jr.config.Scheduler.StatGroups {
			total, unused, err := jr.codeRepo.CountByGroup(ctx, groupID)
			if errors.Is(err, repository.ErrUnsupported) {
				logger.Debug("Stats skipped; code store is remote")
				return
			}
			if err != nil {
				logger.Error("Failed to count codes", "group_id", groupID, "error", err)
				continue
			}
			logger.Info("Code inventory", "group_id", groupID, "total", total, "unused", unused)
		}
	})
}
