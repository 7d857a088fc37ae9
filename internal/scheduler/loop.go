package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultInboxSize = 1024
	defaultWorkers   = 4
	defaultQueueSize = 256
)

// ErrStopped is returned by Call once the loop has stopped
var ErrStopped = errors.New("game loop stopped")

// LoopConfig holds configuration for the game loop
type LoopConfig struct {
	Workers   int                // Optional, defaults to 4
	InboxSize int                // Optional, defaults to 1024
	Logger    logrus.FieldLogger // Optional
}

// Loop is the game-update thread. Every callback submitted to it runs on one goroutine,
// in submission order.
type Loop struct {
	inbox  chan func()
	jobs   chan asyncJob
	quit   chan struct{}
	done   chan struct{}
	log    logrus.FieldLogger
	stop   sync.Once
	jobsMu sync.RWMutex
	closed bool
	group  *errgroup.Group
	gctx   context.Context
	cancel context.CancelFunc
}

type asyncJob struct {
	job  func(ctx context.Context) error
	done func(err error)
}

// NewLoop creates a loop and starts its worker pool. Call Run to start processing.
func NewLoop(cfg *LoopConfig) *Loop {
	if cfg == nil {
		cfg = &LoopConfig{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	inboxSize := cfg.InboxSize
	if inboxSize <= 0 {
		inboxSize = defaultInboxSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	l := &Loop{
		inbox:  make(chan func(), inboxSize),
		jobs:   make(chan asyncJob, defaultQueueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		log:    logger.WithField("component", "scheduler"),
		group:  group,
		gctx:   gctx,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		group.Go(l.work)
	}

	return l
}

// Run processes submitted callbacks until ctx is done or Stop is called. Completions
// of jobs still in flight at that point are run before Run returns.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	stopping := ctx.Done()
	for {
		select {
		case <-stopping:
			stopping = nil
			go l.Stop()
		case <-l.quit:
			l.drain()
			return
		case fn := <-l.inbox:
			l.invoke(fn)
		}
	}
}

// drain runs whatever was queued before the loop stopped
func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.inbox:
			l.invoke(fn)
		default:
			return
		}
	}
}

// Stop refuses new async jobs, waits for the ones in flight to hand their
// completions to the loop, then ends Run
func (l *Loop) Stop() {
	l.stop.Do(func() {
		l.jobsMu.Lock()
		l.closed = true
		close(l.jobs)
		l.jobsMu.Unlock()
		if err := l.group.Wait(); err != nil {
			l.log.WithError(err).Error("Worker pool stopped with error")
		}
		close(l.quit)
		l.cancel()
	})
}

// Done is closed once Run has returned
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Submit queues fn to run on the loop. It returns false once the loop is stopped.
func (l *Loop) Submit(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}

	select {
	case l.inbox <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Call runs fn on the loop and waits for it to return. It must not be called from the loop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Submit(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Now returns wall-clock time
func (l *Loop) Now() time.Time {
	return time.Now()
}

// RunLater runs fn once on the loop after delay
func (l *Loop) RunLater(delay time.Duration, fn func()) Task {
	t := &timerTask{}
	t.timer = time.AfterFunc(delay, func() {
		l.Submit(func() {
			if t.cancelled.Load() {
				return
			}
			fn()
		})
	})
	return t
}

// RunTimer runs fn on the loop after delay, then at a fixed rate of period
func (l *Loop) RunTimer(delay, period time.Duration, fn func()) Task {
	t := &tickerTask{stopped: make(chan struct{})}
	go func() {
		select {
		case <-time.After(delay):
		case <-t.stopped:
			return
		case <-l.quit:
			return
		}

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			l.Submit(func() {
				if t.cancelled.Load() {
					return
				}
				fn()
			})
			select {
			case <-ticker.C:
			case <-t.stopped:
				return
			case <-l.quit:
				return
			}
		}
	}()
	return t
}

// RunAsync hands job to the worker pool. done runs on the loop with the job's error.
func (l *Loop) RunAsync(job func(ctx context.Context) error, done func(err error)) {
	l.jobsMu.RLock()
	defer l.jobsMu.RUnlock()
	if l.closed {
		if done != nil {
			done(ErrStopped)
		}
		return
	}
	l.jobs <- asyncJob{job: job, done: done}
}

func (l *Loop) work() error {
	for j := range l.jobs {
		err := l.runJob(j.job)
		if j.done == nil {
			continue
		}
		callback := j.done
		if !l.Submit(func() { callback(err) }) {
			l.log.WithError(err).Debug("Dropped async completion after stop")
		}
	}
	return nil
}

func (l *Loop) runJob(job func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.WithField("panic", r).Error("Async job panicked")
			err = errors.New("async job panicked")
		}
	}()
	return job(l.gctx)
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.WithField("panic", r).Error("Loop callback panicked")
		}
	}()
	fn()
}

type timerTask struct {
	timer     *time.Timer
	cancelled atomic.Bool
}

func (t *timerTask) Cancel() {
	t.cancelled.Store(true)
	t.timer.Stop()
}

type tickerTask struct {
	cancelled atomic.Bool
	stopped   chan struct{}
	once      sync.Once
}

func (t *tickerTask) Cancel() {
	t.cancelled.Store(true)
	t.once.Do(func() { close(t.stopped) })
}
