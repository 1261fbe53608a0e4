package services

import (
	"time"

	"github.com/benmeehan/knob-agent/internal/models"
	"github.com/rs/zerolog"
)

// ButtonReader samples the reset button level.
type ButtonReader interface {
	Pressed() bool
}

// EncoderDriver exposes the latched gestures of the encoder driver.
// Each call reports and clears its flag.
type EncoderDriver interface {
	IsRight() bool
	IsLeft() bool
	IsClick() bool
}

// InputMonitor turns the button level and encoder flags into logical gestures.
type InputMonitor struct {
	button    ButtonReader
	encoder   EncoderDriver
	threshold time.Duration
	logger    zerolog.Logger

	pressing   bool
	pressStart time.Time
	fired      bool
}

// NewInputMonitor creates a monitor firing LongPress after threshold of continuous press.
func NewInputMonitor(button ButtonReader, encoder EncoderDriver, threshold time.Duration, logger zerolog.Logger) *InputMonitor {
	return &InputMonitor{
		button:    button,
		encoder:   encoder,
		threshold: threshold,
		logger:    logger.With().Str("component", "input").Logger(),
	}
}

// Arm prepares the monitor for a new boot session.
// Gestures latched before the session are discarded, and a button already held
// must be released before it can trigger again.
func (m *InputMonitor) Arm(now time.Time) {
	m.encoder.IsRight()
	m.encoder.IsLeft()
	m.encoder.IsClick()

	m.pressing = m.button.Pressed()
	m.pressStart = now
	m.fired = m.pressing
	if m.pressing {
		m.logger.Info().Msg("Button held at session start, waiting for release")
	}
}

// PollButton samples the button once. LongPress is returned exactly once per
// press, on the first poll at or past the threshold.
func (m *InputMonitor) PollButton(now time.Time) models.ButtonGesture {
	if !m.button.Pressed() {
		if m.pressing {
			m.logger.Debug().Dur("held", now.Sub(m.pressStart)).Msg("Button released")
		}
		m.pressing = false
		m.fired = false
		return models.GestureNone
	}

	if !m.pressing {
		m.pressing = true
		m.pressStart = now
		m.logger.Debug().Msg("Button pressed")
		return models.GestureNone
	}

	if !m.fired && now.Sub(m.pressStart) >= m.threshold {
		m.fired = true
		m.logger.Info().Dur("held", now.Sub(m.pressStart)).Msg("Long press detected")
		return models.GestureLongPress
	}
	return models.GestureNone
}

// PollEncoder returns at most one gesture. Coincident gestures are not queued.
func (m *InputMonitor) PollEncoder() models.EncoderEvent {
	right := m.encoder.IsRight()
	left := m.encoder.IsLeft()
	click := m.encoder.IsClick()

	var ev models.EncoderEvent
	switch {
	case right:
		ev = models.EncoderRotateRight
	case left:
		ev = models.EncoderRotateLeft
	case click:
		ev = models.EncoderClick
	default:
		return models.EncoderNone
	}

	if btoi(right)+btoi(left)+btoi(click) > 1 {
		m.logger.Debug().Str("kept", ev.String()).Msg("Coincident encoder gestures, dropping the rest")
	}
	return ev
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
