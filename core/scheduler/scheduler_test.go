// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestAfter(t *testing.T) {
	t.Parallel()

	s := New(zerolog.Nop())
	defer s.Stop()

	var ran atomic.Bool

	task := s.After("once", 10*time.Millisecond, func(context.Context) { ran.Store(true) })

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not finish")
	}

	assert.True(t, ran.Load())
}

func TestAfter_StoppedBeforeFiring(t *testing.T) {
	t.Parallel()

	s := New(zerolog.Nop())
	defer s.Stop()

	var ran atomic.Bool

	task := s.After("never", time.Hour, func(context.Context) { ran.Store(true) })
	task.Stop()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("stopped task did not finish")
	}

	assert.False(t, ran.Load())
}

func TestEvery(t *testing.T) {
	t.Parallel()

	s := New(zerolog.Nop())

	var runs atomic.Int32

	s.Every("tick", 5*time.Millisecond, func(context.Context) { runs.Add(1) })

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)

	s.Stop()

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop returns")
}

func TestStop_CancelsRunningTask(t *testing.T) {
	t.Parallel()

	s := New(zerolog.Nop())

	started := make(chan struct{})

	var cancelled atomic.Bool

	s.After("long", 0, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	})

	<-started
	s.Stop()

	assert.True(t, cancelled.Load(), "Stop waits for the running task")
	s.Stop()
}

func TestStopped_SchedulesNothing(t *testing.T) {
	t.Parallel()

	s := New(zerolog.Nop())
	s.Stop()

	var ran atomic.Bool

	task := s.After("late", 0, func(context.Context) { ran.Store(true) })

	select {
	case <-task.Done():
	default:
		t.Fatal("task on a stopped scheduler should be done immediately")
	}

	assert.False(t, ran.Load())
}

func TestPanicRecovered(t *testing.T) {
	t.Parallel()

	s := New(zerolog.Nop())
	defer s.Stop()

	var runs atomic.Int32

	s.Every("panicky", 5*time.Millisecond, func(context.Context) {
		runs.Add(1)
		panic("boom")
	})

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
}
