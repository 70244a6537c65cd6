package poll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron and drives the poll loop.
type Scheduler struct {
	cron   *cron.Cron
	poller *Poller
	spec   string // cron spec, e.g. "@every 6h"
	logger *slog.Logger
}

func NewScheduler(poller *Poller, spec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		poller: poller,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the poll job and starts the scheduler. One cycle runs
// immediately so the pipeline is populated without waiting for the first
// tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.poller.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("poll scheduler started", "spec", s.spec)

	go s.poller.RunOnce(ctx)

	return nil
}

// Stop shuts the scheduler down; running jobs finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("poll scheduler stopped")
}
