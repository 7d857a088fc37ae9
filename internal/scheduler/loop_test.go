package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KirkDiggler/cduello/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *scheduler.Loop {
	t.Helper()
	loop := scheduler.NewLoop(&scheduler.LoopConfig{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		loop.Stop()
	})
	return loop
}

func TestLoop_CallRunsOnLoop(t *testing.T) {
	loop := startLoop(t)

	var ran bool
	err := loop.Call(context.Background(), func() { ran = true })
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestLoop_RunLater(t *testing.T) {
	loop := startLoop(t)

	fired := make(chan struct{})
	loop.RunLater(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("task did not fire")
	}
}

func TestLoop_RunLaterCancelled(t *testing.T) {
	loop := startLoop(t)

	var fired atomic.Bool
	task := loop.RunLater(20*time.Millisecond, func() { fired.Store(true) })
	task.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestLoop_RunTimerTicksUntilCancelled(t *testing.T) {
	loop := startLoop(t)

	var ticks atomic.Int32
	handle := make(chan scheduler.Task, 1)
	done := make(chan struct{})
	task := loop.RunTimer(0, 5*time.Millisecond, func() {
		if ticks.Add(1) == 3 {
			(<-handle).Cancel()
			close(done)
		}
	})
	handle <- task

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not tick three times")
	}

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(3), ticks.Load())
}

func TestLoop_RunAsyncCompletesOnLoop(t *testing.T) {
	loop := startLoop(t)

	result := make(chan error, 1)
	loop.Submit(func() {
		loop.RunAsync(func(ctx context.Context) error {
			return errors.New("disk full")
		}, func(err error) {
			result <- err
		})
	})

	select {
	case err := <-result:
		assert.EqualError(t, err, "disk full")
	case <-time.After(time.Second):
		t.Fatal("completion not delivered")
	}
}

func TestLoop_CallAfterStop(t *testing.T) {
	loop := scheduler.NewLoop(nil)
	loop.Stop()

	err := loop.Call(context.Background(), func() {})
	assert.ErrorIs(t, err, scheduler.ErrStopped)
}

func TestLoop_StopDeliversInFlightCompletions(t *testing.T) {
	loop := scheduler.NewLoop(&scheduler.LoopConfig{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	release := make(chan struct{})
	result := make(chan error, 1)
	err := loop.Call(context.Background(), func() {
		loop.RunAsync(func(ctx context.Context) error {
			<-release
			return nil
		}, func(err error) {
			result <- err
		})
	})
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		loop.Stop()
		close(stopped)
	}()
	close(release)

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("completion dropped on stop")
	}
	<-stopped

	select {
	case <-loop.Done():
	case <-time.After(time.Second):
		t.Fatal("Run did not return after stop")
	}

	var rejected error
	loop.RunAsync(func(ctx context.Context) error { return nil }, func(err error) { rejected = err })
	assert.ErrorIs(t, rejected, scheduler.ErrStopped)
}
