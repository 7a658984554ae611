package application

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	runs    atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
	err     error
}

func (s *countingSweeper) SyncAllTenants(ctx context.Context) (*SweepResult, error) {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.active.Add(-1)
	s.runs.Add(1)

	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
	if s.err != nil {
		return nil, s.err
	}
	return &SweepResult{}, nil
}

func TestScheduler_RunsImmediatelyThenWithFixedDelay(t *testing.T) {
	sweeper := &countingSweeper{delay: 5 * time.Millisecond}
	s := NewScheduler(sweeper, 10*time.Millisecond, zerolog.Nop())

	s.Start(context.Background())
	require.Eventually(t, func() bool { return sweeper.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	assert.False(t, sweeper.overlap.Load(), "sweeps must not overlap")

	runs := sweeper.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, runs, sweeper.runs.Load(), "no sweep after Stop")
}

func TestScheduler_SweepErrorKeepsLoopAlive(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("tenant store unavailable")}
	s := NewScheduler(sweeper, time.Millisecond, zerolog.Nop())

	s.Start(context.Background())
	defer s.Stop()
	require.Eventually(t, func() bool { return sweeper.runs.Load() >= 2 }, 2*time.Second, time.Millisecond)
}

func TestScheduler_StartTwiceAndStopTwice(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewScheduler(sweeper, time.Hour, zerolog.Nop())

	s.Start(context.Background())
	s.Start(context.Background())
	require.Eventually(t, func() bool { return sweeper.runs.Load() == 1 }, time.Second, time.Millisecond)

	s.Stop()
	s.Stop()
	assert.EqualValues(t, 1, sweeper.runs.Load())
}

func TestScheduler_StopsWithParentContext(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewScheduler(sweeper, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return sweeper.runs.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked after the parent context ended")
	}
}
