package mockscheduler_test

import (
	"testing"
	"time"

	mockscheduler "github.com/KirkDiggler/cduello/internal/scheduler/mock"
	"github.com/stretchr/testify/assert"
)

func TestManualScheduler_OrdersByDueTime(t *testing.T) {
	sched := mockscheduler.NewManualScheduler(time.Unix(0, 0))

	var order []string
	sched.RunLater(2*time.Second, func() { order = append(order, "late") })
	sched.RunLater(time.Second, func() { order = append(order, "early") })

	sched.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{"early"}, order)

	sched.Advance(time.Second)
	assert.Equal(t, []string{"early", "late"}, order)
}

func TestManualScheduler_TimerRepeats(t *testing.T) {
	sched := mockscheduler.NewManualScheduler(time.Unix(0, 0))

	count := 0
	task := sched.RunTimer(0, time.Second, func() { count++ })

	sched.Advance(2 * time.Second)
	assert.Equal(t, 3, count)

	task.Cancel()
	sched.Advance(5 * time.Second)
	assert.Equal(t, 3, count)
	assert.Equal(t, 0, sched.Pending())
}
