package services_test

import (
	"testing"
	"time"

	"github.com/benmeehan/knob-agent/internal/constants"
	"github.com/benmeehan/knob-agent/internal/mocks"
	"github.com/benmeehan/knob-agent/internal/models"
	"github.com/benmeehan/knob-agent/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newInputMonitor() (*services.InputMonitor, *mocks.FakeButton, *mocks.FakeEncoder) {
	button := &mocks.FakeButton{}
	encoder := &mocks.FakeEncoder{}
	m := services.NewInputMonitor(button, encoder, constants.LongPressThreshold, zerolog.Nop())
	m.Arm(epoch)
	return m, button, encoder
}

// holdFor presses the button, polls every step for hold, and counts the long presses.
func holdFor(m *services.InputMonitor, button *mocks.FakeButton, start time.Time, hold, step time.Duration) int {
	button.Press()
	fired := 0
	for t := time.Duration(0); t <= hold; t += step {
		if m.PollButton(start.Add(t)) == models.GestureLongPress {
			fired++
		}
	}
	button.Release()
	m.PollButton(start.Add(hold + step))
	return fired
}

func TestInputMonitor_LongPressAtThreshold(t *testing.T) {
	m, button, _ := newInputMonitor()

	fired := holdFor(m, button, epoch, 5000*time.Millisecond, 20*time.Millisecond)

	assert.Equal(t, 1, fired)
}

func TestInputMonitor_LongPressFiresOncePerHold(t *testing.T) {
	m, button, _ := newInputMonitor()

	fired := holdFor(m, button, epoch, 12000*time.Millisecond, 20*time.Millisecond)

	assert.Equal(t, 1, fired)
}

func TestInputMonitor_ShortHoldDoesNotFire(t *testing.T) {
	m, button, _ := newInputMonitor()

	fired := holdFor(m, button, epoch, 4980*time.Millisecond, 20*time.Millisecond)

	assert.Equal(t, 0, fired)
}

func TestInputMonitor_RearmsAfterRelease(t *testing.T) {
	m, button, _ := newInputMonitor()

	first := holdFor(m, button, epoch, 6*time.Second, 20*time.Millisecond)
	second := holdFor(m, button, epoch.Add(10*time.Second), 6*time.Second, 20*time.Millisecond)

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestInputMonitor_HeldAtArmMustBeReleased(t *testing.T) {
	button := &mocks.FakeButton{}
	encoder := &mocks.FakeEncoder{}
	m := services.NewInputMonitor(button, encoder, constants.LongPressThreshold, zerolog.Nop())

	// Still held from the previous session's reset.
	button.Press()
	m.Arm(epoch)

	for d := time.Duration(0); d <= 20*time.Second; d += 20 * time.Millisecond {
		assert.Equal(t, models.GestureNone, m.PollButton(epoch.Add(d)))
	}

	button.Release()
	m.PollButton(epoch.Add(21 * time.Second))

	assert.Equal(t, 1, holdFor(m, button, epoch.Add(22*time.Second), 5*time.Second, 20*time.Millisecond))
}

func TestInputMonitor_PollEncoder(t *testing.T) {
	m, _, encoder := newInputMonitor()

	assert.Equal(t, models.EncoderNone, m.PollEncoder())

	encoder.TurnRight()
	assert.Equal(t, models.EncoderRotateRight, m.PollEncoder())
	assert.Equal(t, models.EncoderNone, m.PollEncoder())

	encoder.TurnLeft()
	assert.Equal(t, models.EncoderRotateLeft, m.PollEncoder())

	encoder.Click()
	assert.Equal(t, models.EncoderClick, m.PollEncoder())
}

func TestInputMonitor_CoincidentGesturesYieldOne(t *testing.T) {
	m, _, encoder := newInputMonitor()

	encoder.TurnRight()
	encoder.TurnLeft()
	encoder.Click()

	assert.Equal(t, models.EncoderRotateRight, m.PollEncoder())
	assert.Equal(t, models.EncoderNone, m.PollEncoder())
}

func TestInputMonitor_ArmDiscardsLatchedGestures(t *testing.T) {
	button := &mocks.FakeButton{}
	encoder := &mocks.FakeEncoder{}
	m := services.NewInputMonitor(button, encoder, constants.LongPressThreshold, zerolog.Nop())

	encoder.Click()
	encoder.TurnLeft()
	m.Arm(epoch)

	assert.Equal(t, models.EncoderNone, m.PollEncoder())
}
