package game

// Rand is a 16-bit xorshift generator.
type Rand struct {
	state uint16
}

// NewRand seeds a generator. Zero is a fixed point of xorshift, so it is
// replaced with 1.
func NewRand(seed uint16) *Rand {
	if seed == 0 {
		seed = 1
	}
	return &Rand{state: seed}
}

// Next advances the generator and returns the new state.
func (r *Rand) Next() uint16 {
	x := r.state
	x ^= x << 7
	x ^= x >> 9
	x ^= x << 8
	r.state = x
	return x
}

// Shape draws a uniformly distributed shape. The low three bits select it
// and the eighth value is rejected by drawing again.
func (r *Rand) Shape() Shape {
	for {
		if v := r.Next() & 7; v < NumShapes {
			return Shape(v)
		}
	}
}

// State returns the current generator word.
func (r *Rand) State() uint16 {
	return r.state
}
