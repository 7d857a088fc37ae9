// Package scheduler provides the single game loop that owns all duel state, plus timers
// and a worker pool whose completions are handed back to the loop.
package scheduler

import (
	"context"
	"time"
)

// Task is a handle to a scheduled callback
type Task interface {
	// Cancel prevents any future run. Safe to call more than once.
	Cancel()
}

// Scheduler runs callbacks on the game loop
type Scheduler interface {
	// RunLater runs fn once on the loop after delay
	RunLater(delay time.Duration, fn func()) Task

	// RunTimer runs fn on the loop after delay and then every period until cancelled
	RunTimer(delay, period time.Duration, fn func()) Task

	// RunAsync runs job on a worker, then calls done with its result on the loop.
	// done may be nil.
	RunAsync(job func(ctx context.Context) error, done func(err error))

	// Now returns the scheduler's clock
	Now() time.Time
}
