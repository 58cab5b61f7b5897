// Package scheduler runs background maintenance on a fixed interval.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Pruner evicts stale entries and reports how many were dropped.
type Pruner interface {
	Prune() int
}

type Scheduler struct {
	cron   *gocron.Scheduler
	pruner Pruner
	every  time.Duration
	logger *slog.Logger
}

func New(pruner Pruner, every time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   gocron.NewScheduler(time.UTC),
		pruner: pruner,
		every:  every,
		logger: logger,
	}
}

// Start schedules the prune job and launches the scheduler in the background.
func (s *Scheduler) Start() error {
	_, err := s.cron.Every(s.every).Do(func() {
		if dropped := s.pruner.Prune(); dropped > 0 {
			s.logger.Info("geocode cache pruned", "dropped", dropped)
		}
	})
	if err != nil {
		return err
	}
	s.cron.StartAsync()
	s.logger.Info("scheduler started", "interval", s.every)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
