package scheduler

import (
	"context"
	"log/slog"
	"time"

	"topstories/internal/domain"
)

// Runner defines the interface for a single pipeline pass.
type Runner interface {
	Run(ctx context.Context) (*domain.RunStats, error)
}

type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Start runs once and returns the run's error when no interval is set.
// Otherwise it runs immediately and then on every tick until ctx is done;
// failed runs are logged and do not stop the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		_, err := s.runner.Run(ctx)
		return err
	}

	s.logger.Info("scheduler started", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("run failed", "error", err)
	}
}
