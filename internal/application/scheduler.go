package application

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper runs one all-tenants sync.
type Sweeper interface {
	SyncAllTenants(ctx context.Context) (*SweepResult, error)
}

// Scheduler runs the sweep with a fixed delay between the end of one run
// and the start of the next, so sweeps never overlap within a process.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler(sweeper Sweeper, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the loop. The first sweep runs immediately. Calling Start
// on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)

	s.logger.Info().Dur("interval", s.interval).Msg("Sync scheduler started")
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info().Msg("Sync scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.sweep(ctx)
		timer.Reset(s.interval)
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	started := time.Now()
	result, err := s.sweeper.SyncAllTenants(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled sweep failed")
		return
	}
	if result.Skipped {
		return
	}
	s.logger.Info().
		Int("tenants", result.Tenants).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Dur("duration", time.Since(started)).
		Msg("Scheduled sweep finished")
}
