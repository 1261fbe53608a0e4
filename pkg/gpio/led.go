package gpio

import (
	"fmt"
	"sync"
)

// LED is a single status LED on an output line.
type LED struct {
	line LineWriter

	mu sync.Mutex
	on bool
}

// NewLED wraps an output line that starts switched off.
func NewLED(line LineWriter) *LED {
	return &LED{line: line}
}

// Set switches the LED, skipping the write when the level is unchanged.
func (l *LED) Set(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if on == l.on {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("failed to drive led: %w", err)
	}
	l.on = on
	return nil
}

// On reports the last level written.
func (l *LED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
