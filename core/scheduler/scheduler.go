// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package scheduler runs cancellable background tasks owned by a component.

A [Scheduler] is created together with its owner and stopped with it:
[Scheduler.Stop] cancels every pending or repeating task and waits for
running ones to return, so no timer outlives the component that set it.
*/
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler owns a set of background tasks.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger zerolog.Logger

	mu      sync.Mutex
	stopped bool
}

// Task is a handle to a scheduled function.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a running scheduler that logs task panics to logger.
func New(logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{ctx: ctx, cancel: cancel, logger: logger}
}

// After runs fn once after delay. The context passed to fn is cancelled when
// the task or the scheduler is stopped.
func (s *Scheduler) After(name string, delay time.Duration, fn func(context.Context)) *Task {
	return s.start(name, func(ctx context.Context, t *Task) {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.run(ctx, t, fn)
	})
}

// Every runs fn every interval until stopped. Runs never overlap: a slow run
// delays the next tick instead of piling up.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(context.Context)) *Task {
	return s.start(name, func(ctx context.Context, t *Task) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx, t, fn)
			}
		}
	})
}

func (s *Scheduler) start(name string, loop func(context.Context, *Task)) *Task {
	t := &Task{name: name, done: make(chan struct{})}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		t.cancel = func() {}
		close(t.done)

		return t
	}

	var ctx context.Context

	ctx, t.cancel = context.WithCancel(s.ctx)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(t.done)
		defer t.cancel()

		loop(ctx, t)
	}()

	return t
}

func (s *Scheduler) run(ctx context.Context, t *Task, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Str("task", t.name).
				Msg("Scheduled task panicked")
		}
	}()

	start := time.Now()

	fn(ctx)

	s.logger.Debug().
		Str("task", t.name).
		Dur("dur", time.Since(start)).
		Msg("Scheduled task finished")
}

// Stop cancels every task and waits for running ones to return.
// It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Stop cancels the task. A run in progress sees its context cancelled
// but is not waited for.
func (t *Task) Stop() {
	t.cancel()
}

// Done is closed once the task will not run again.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
