// Package scheduler runs periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/reclaim/internal/session"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 2 * time.Minute

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron   *cron.Cron
	logger log.Logger
	now    func() time.Time
}

// New creates a scheduler. Jobs are added with the Add* methods and begin
// running on Start.
func New(logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
		now:    time.Now,
	}
}

// AddSessionPruning removes sessions idle for longer than ttl, checking every
// interval.
func (s *Scheduler) AddSessionPruning(p session.Pruner, ttl, interval time.Duration) error {
	if ttl <= 0 || interval <= 0 {
		return fmt.Errorf("session pruning: ttl and interval must be positive")
	}
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		s.pruneSessions(p, ttl)
	})
	if err != nil {
		return fmt.Errorf("schedule session pruning: %w", err)
	}
	return nil
}

func (s *Scheduler) pruneSessions(p session.Pruner, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := p.PruneIdle(ctx, s.now().Add(-ttl))
	if err != nil {
		s.logger.Error(ctx, err, "session pruning failed")
		return
	}
	if n > 0 {
		s.logger.Info(ctx, "pruned idle sessions", "count", n, "ttl", ttl.String())
	}
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Info(context.Background(), "starting scheduler", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
