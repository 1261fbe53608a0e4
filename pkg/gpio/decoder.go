package gpio

// transitions maps (previous<<2 | current) quadrature states to a step.
// Invalid jumps (both lines changing at once) count as zero.
var transitions = [16]int8{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// QuadratureDecoder turns two-line encoder levels into detent steps.
type QuadratureDecoder struct {
	perDetent int
	state     uint8
	acc       int
}

// NewQuadratureDecoder creates a decoder emitting one step every perDetent valid transitions.
// Half-step encoders use 2, full-step encoders use 4.
func NewQuadratureDecoder(perDetent int, a, b int) *QuadratureDecoder {
	if perDetent <= 0 {
		perDetent = 2
	}
	return &QuadratureDecoder{
		perDetent: perDetent,
		state:     levelState(a, b),
	}
}

// Update feeds the current line levels and returns +1 for a clockwise detent,
// -1 for a counter-clockwise detent and 0 otherwise.
func (d *QuadratureDecoder) Update(a, b int) int {
	next := levelState(a, b)
	if next == d.state {
		return 0
	}
	d.acc += int(transitions[d.state<<2|next])
	d.state = next

	switch {
	case d.acc >= d.perDetent:
		d.acc = 0
		return 1
	case d.acc <= -d.perDetent:
		d.acc = 0
		return -1
	default:
		return 0
	}
}

func levelState(a, b int) uint8 {
	var s uint8
	if a != 0 {
		s |= 2
	}
	if b != 0 {
		s |= 1
	}
	return s
}
