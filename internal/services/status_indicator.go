package services

import (
	"time"

	"github.com/benmeehan/knob-agent/internal/constants"
	"github.com/benmeehan/knob-agent/internal/models"
	"github.com/rs/zerolog"
)

// Light is the status LED output.
type Light interface {
	Set(on bool) error
}

// Cadence maps the device state to the LED pattern. Provisioning wins over any
// link state, and a missing network wins over a missing broker.
func Cadence(mode models.DeviceMode, health models.LinkHealth) models.BlinkPattern {
	switch {
	case mode == models.ModeProvisioning:
		return models.BlinkPattern{Period: constants.BlinkProvisioning}
	case !health.WifiUp:
		return models.BlinkPattern{Period: constants.BlinkWifiDown}
	case !health.BrokerUp:
		return models.BlinkPattern{Period: constants.BlinkBrokerDown}
	default:
		return models.BlinkPattern{Steady: true}
	}
}

// StatusIndicator drives the LED from the state sampled on each tick.
type StatusIndicator struct {
	led    Light
	logger zerolog.Logger

	started    bool
	pattern    models.BlinkPattern
	lit        bool
	lastToggle time.Time
}

// NewStatusIndicator creates an indicator for led.
func NewStatusIndicator(led Light, logger zerolog.Logger) *StatusIndicator {
	return &StatusIndicator{
		led:    led,
		logger: logger.With().Str("component", "status").Logger(),
	}
}

// Update re-evaluates the pattern and toggles the LED when its period has elapsed.
func (s *StatusIndicator) Update(mode models.DeviceMode, health models.LinkHealth, now time.Time) error {
	p := Cadence(mode, health)

	if !s.started || p != s.pattern {
		s.logger.Debug().Bool("steady", p.Steady).Dur("period", p.Period).Msg("LED pattern changed")
		s.started = true
		s.pattern = p
		s.lastToggle = now
		if p.Steady {
			return s.set(true)
		}
		return s.set(!s.lit)
	}

	if p.Steady {
		return s.set(true)
	}
	if now.Sub(s.lastToggle) >= p.Period {
		s.lastToggle = now
		return s.set(!s.lit)
	}
	return nil
}

// Pattern returns the pattern applied by the last Update.
func (s *StatusIndicator) Pattern() models.BlinkPattern {
	return s.pattern
}

func (s *StatusIndicator) set(on bool) error {
	if err := s.led.Set(on); err != nil {
		return err
	}
	s.lit = on
	return nil
}
