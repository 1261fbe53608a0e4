package services_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benmeehan/knob-agent/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestPeriodicTask_StartStop tests the lifecycle guards of a PeriodicTask.
func TestPeriodicTask_StartStop(t *testing.T) {
	// Setup
	var calls atomic.Int32
	task := services.NewPeriodicTask("test", 5*time.Millisecond, func(time.Time) { calls.Add(1) }, time.Now, zerolog.Nop())

	// Execute
	err := task.Start()

	// Assert
	assert.NoError(t, err)
	assert.ErrorIs(t, task.Start(), services.ErrAlreadyRunning)

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	assert.NoError(t, task.Stop())
	assert.ErrorIs(t, task.Stop(), services.ErrNotRunning)

	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestPeriodicTask_RejectsZeroInterval(t *testing.T) {
	task := services.NewPeriodicTask("test", 0, func(time.Time) {}, time.Now, zerolog.Nop())

	assert.Error(t, task.Start())
	assert.ErrorIs(t, task.Stop(), services.ErrNotRunning)
}

func TestPeriodicTask_UsesInjectedClock(t *testing.T) {
	seen := make(chan time.Time, 1)
	task := services.NewPeriodicTask("test", time.Millisecond, func(now time.Time) {
		select {
		case seen <- now:
		default:
		}
	}, func() time.Time { return epoch }, zerolog.Nop())

	assert.NoError(t, task.Start())
	defer task.Stop()

	select {
	case now := <-seen:
		assert.Equal(t, epoch, now)
	case <-time.After(time.Second):
		t.Fatal("step was never called")
	}
}
