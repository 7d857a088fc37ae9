package mockscheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KirkDiggler/cduello/internal/scheduler"
)

// ManualScheduler implements scheduler.Scheduler on a virtual clock. Nothing runs until
// Advance is called; async jobs run inline unless HoldAsync was called.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*manualTask

	asyncCalls int
	holding    bool
	held       []heldJob
}

type heldJob struct {
	job  func(ctx context.Context) error
	done func(err error)
}

type manualTask struct {
	seq       int
	due       time.Time
	period    time.Duration
	fn        func()
	cancelled bool
}

func (t *manualTask) Cancel() {
	t.cancelled = true
}

// NewManualScheduler creates a scheduler whose clock starts at start
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

var _ scheduler.Scheduler = (*ManualScheduler)(nil)

// Now returns the virtual clock
func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// RunLater schedules fn at now+delay
func (m *ManualScheduler) RunLater(delay time.Duration, fn func()) scheduler.Task {
	return m.add(delay, 0, fn)
}

// RunTimer schedules fn at now+delay and every period after
func (m *ManualScheduler) RunTimer(delay, period time.Duration, fn func()) scheduler.Task {
	return m.add(delay, period, fn)
}

// RunAsync runs job and done immediately, or queues them while holding
func (m *ManualScheduler) RunAsync(job func(ctx context.Context) error, done func(err error)) {
	m.mu.Lock()
	m.asyncCalls++
	if m.holding {
		m.held = append(m.held, heldJob{job: job, done: done})
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	err := job(context.Background())
	if done != nil {
		done(err)
	}
}

// HoldAsync queues async jobs until ReleaseAsync, leaving them in flight
func (m *ManualScheduler) HoldAsync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holding = true
}

// ReleaseAsync stops holding and runs every queued job and completion in order
func (m *ManualScheduler) ReleaseAsync() {
	m.mu.Lock()
	m.holding = false
	held := m.held
	m.held = nil
	m.mu.Unlock()

	for _, h := range held {
		err := h.job(context.Background())
		if h.done != nil {
			h.done(err)
		}
	}
}

// HeldAsync returns how many async jobs are queued
func (m *ManualScheduler) HeldAsync() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.held)
}

// AsyncCalls returns how many async jobs have run
func (m *ManualScheduler) AsyncCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.asyncCalls
}

// Pending returns the number of live scheduled tasks
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running every task that falls due in order
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		task := m.nextDue(target)
		if task == nil {
			break
		}
		task.fn()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

func (m *ManualScheduler) add(delay, period time.Duration, fn func()) scheduler.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{seq: m.seq, due: m.now.Add(delay), period: period, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// nextDue pops the earliest due task, moving the clock to its due time
func (m *ManualScheduler) nextDue(target time.Time) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.tasks = live

	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due.Equal(m.tasks[j].due) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].due.Before(m.tasks[j].due)
	})
	if len(m.tasks) == 0 || m.tasks[0].due.After(target) {
		return nil
	}

	t := m.tasks[0]
	m.now = t.due
	if t.period > 0 {
		t.due = t.due.Add(t.period)
		m.seq++
		t.seq = m.seq
	} else {
		m.tasks = m.tasks[1:]
	}
	return t
}
