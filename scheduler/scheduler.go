package scheduler

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs a task every interval while started, and on demand through
// Trigger. Runs never overlap.
type Scheduler struct {
	interval time.Duration
	task     func(context.Context)
	trigger  chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(interval time.Duration, task func(context.Context)) *Scheduler {
	return &Scheduler{
		interval: interval,
		task:     task,
		trigger:  make(chan struct{}, 1),
	}
}

// Start launches the run loop. runNow runs the task once before the first tick.
// Starting a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context, runNow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, runNow, s.done)
}

func (s *Scheduler) loop(ctx context.Context, runNow bool, done chan struct{}) {
	defer close(done)

	if runNow {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.trigger:
			ticker.Reset(s.interval)
		}
		s.run(ctx)
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.task(ctx)
}

// Trigger asks for a run as soon as possible. Requests made while one is
// pending collapse into it, and the interval restarts after a triggered run.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and waits for a run in progress to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return
	}

	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}
