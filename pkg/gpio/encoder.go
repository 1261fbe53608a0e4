package gpio

import (
	"sync"
	"sync/atomic"
	"time"
)

// Encoder latches debounced rotation and click gestures from a rotary encoder.
// Each gesture is a flag that is cleared when read.
type Encoder struct {
	clickWindow time.Duration

	mu      sync.Mutex
	decoder *QuadratureDecoder
	a, b    int
	pressed bool
	pressAt time.Duration

	right atomic.Bool
	left  atomic.Bool
	click atomic.Bool
}

// NewEncoder creates an encoder fed from the given initial line levels.
// A switch release shorter than clickWindow latches a click.
func NewEncoder(perDetent int, a, b int, clickWindow time.Duration) *Encoder {
	return &Encoder{
		clickWindow: clickWindow,
		decoder:     NewQuadratureDecoder(perDetent, a, b),
		a:           a,
		b:           b,
	}
}

// HandleA records a level change on the first signal line.
func (e *Encoder) HandleA(level int) {
	e.mu.Lock()
	e.a = level
	step := e.decoder.Update(e.a, e.b)
	e.mu.Unlock()
	e.latch(step)
}

// HandleB records a level change on the second signal line.
func (e *Encoder) HandleB(level int) {
	e.mu.Lock()
	e.b = level
	step := e.decoder.Update(e.a, e.b)
	e.mu.Unlock()
	e.latch(step)
}

// HandleSwitch records a press or release of the encoder switch at the given monotonic timestamp.
func (e *Encoder) HandleSwitch(pressed bool, at time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pressed == e.pressed {
		return
	}
	e.pressed = pressed
	if pressed {
		e.pressAt = at
		return
	}
	if at-e.pressAt < e.clickWindow {
		e.click.Store(true)
	}
}

func (e *Encoder) latch(step int) {
	switch step {
	case 1:
		e.right.Store(true)
	case -1:
		e.left.Store(true)
	}
}

// IsRight reports and clears a pending clockwise detent.
func (e *Encoder) IsRight() bool {
	return e.right.Swap(false)
}

// IsLeft reports and clears a pending counter-clockwise detent.
func (e *Encoder) IsLeft() bool {
	return e.left.Swap(false)
}

// IsClick reports and clears a pending short click.
func (e *Encoder) IsClick() bool {
	return e.click.Swap(false)
}
