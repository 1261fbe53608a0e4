package gpio

import (
	"github.com/rs/zerolog"
)

// LineReader samples a GPIO line level.
type LineReader interface {
	Value() (int, error)
}

// LineWriter drives a GPIO line level.
type LineWriter interface {
	SetValue(value int) error
}

// Button is a momentary push-button sampled by level.
type Button struct {
	line      LineReader
	activeLow bool
	logger    zerolog.Logger
}

// NewButton wraps line; activeLow buttons read 0 while pressed (pulled-up input).
func NewButton(line LineReader, activeLow bool, logger zerolog.Logger) *Button {
	return &Button{
		line:      line,
		activeLow: activeLow,
		logger:    logger.With().Str("component", "button").Logger(),
	}
}

// Pressed samples the button. A read failure counts as released.
func (b *Button) Pressed() bool {
	v, err := b.line.Value()
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to read button line")
		return false
	}
	if b.activeLow {
		return v == 0
	}
	return v != 0
}
