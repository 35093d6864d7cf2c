package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
)

const jobTimeout = time.Minute

// Scheduler handles scheduled maintenance jobs
type Scheduler struct {
	cron     *cron.Cron
	userRepo repository.UserRepository
	schedule string
	log      *zap.Logger
}

// NewScheduler creates a scheduler that purges expired refresh tokens on schedule.
// An empty schedule defaults to hourly.
func NewScheduler(userRepo repository.UserRepository, schedule string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if schedule == "" {
		schedule = "@hourly"
	}
	return &Scheduler{
		cron:     cron.New(),
		userRepo: userRepo,
		schedule: schedule,
		log:      log.Named("cron"),
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.log.Debug("running refresh token cleanup")
		s.cleanupRefreshTokens()
	}); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", zap.String("token_cleanup", s.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// cleanupRefreshTokens deletes refresh tokens that have expired.
func (s *Scheduler) cleanupRefreshTokens() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	deleted, err := s.userRepo.DeleteExpiredRefreshTokens(ctx, time.Now())
	if err != nil {
		s.log.Error("refresh token cleanup failed", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		s.log.Info("expired refresh tokens removed", zap.Int64("count", deleted))
	}
	return deleted
}

// ManualTrigger runs a job immediately and reports how many rows it touched.
func (s *Scheduler) ManualTrigger(checkType string) (int64, error) {
	switch checkType {
	case "token_cleanup", "all":
		return s.cleanupRefreshTokens(), nil
	default:
		return 0, fmt.Errorf("unknown job %q", checkType)
	}
}
