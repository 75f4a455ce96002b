// Package input reads the game buttons.
//
// Buttons are wired as a matrix: in each phase one drive line is pulled low
// while the others float, and every sense line, held high by its pull-up,
// reads low when the button joining it to the driven line is pressed. The
// state of the whole matrix fits in one Buttons byte.
package input

import (
	"errors"
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
)

// Buttons is a set of pressed buttons, one bit each.
type Buttons uint8

const (
	Left Buttons = 1 << iota
	Right
	RotateCW
	RotateCCW
	HardDrop
	Hold
	SoftDrop
)

var names = []struct {
	b    Buttons
	name string
}{
	{Left, "Left"},
	{Right, "Right"},
	{RotateCW, "RotateCW"},
	{RotateCCW, "RotateCCW"},
	{HardDrop, "HardDrop"},
	{Hold, "Hold"},
	{SoftDrop, "SoftDrop"},
}

// Has reports whether every button of m is in b.
func (b Buttons) Has(m Buttons) bool {
	return b&m == m
}

func (b Buttons) String() string {
	if b == 0 {
		return "none"
	}
	var parts []string
	for _, n := range names {
		if b&n.b != 0 {
			parts = append(parts, n.name)
			b &^= n.b
		}
	}
	if b != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(b)))
	}
	return strings.Join(parts, "|")
}

// Edges returns the buttons pressed in cur that were released in prev.
func Edges(prev, cur Buttons) Buttons {
	return (cur ^ prev) & cur
}

// Keypad is a source of button states.
type Keypad interface {
	Scan() (Buttons, error)
}

// Matrix scans a button matrix wired to GPIO lines. Button k sits between
// drive line k/len(sense) and sense line k%len(sense) and maps to bit k.
type Matrix struct {
	drive []gpio.PinIO
	sense []gpio.PinIn
}

// NewMatrix configures the sense lines as pulled-up inputs and releases all
// drive lines.
func NewMatrix(drive []gpio.PinIO, sense []gpio.PinIn) (*Matrix, error) {
	if len(drive) == 0 || len(sense) == 0 {
		return nil, errors.New("input: matrix needs drive and sense lines")
	}
	if len(drive)*len(sense) > 8 {
		return nil, fmt.Errorf("input: %dx%d matrix does not fit in 8 buttons", len(drive), len(sense))
	}
	for _, p := range sense {
		if p == nil {
			return nil, errors.New("input: nil sense line")
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("input: %s: %w", p, err)
		}
	}
	for _, p := range drive {
		if p == nil {
			return nil, errors.New("input: nil drive line")
		}
	}
	m := &Matrix{drive: drive, sense: sense}
	if err := m.Halt(); err != nil {
		return nil, err
	}
	return m, nil
}

// Scan drives each phase in turn and returns the pressed buttons.
func (m *Matrix) Scan() (Buttons, error) {
	var b Buttons
	for i := range m.drive {
		if err := m.phase(i); err != nil {
			return 0, err
		}
		for j, p := range m.sense {
			if p.Read() == gpio.Low {
				b |= 1 << uint(i*len(m.sense)+j)
			}
		}
	}
	return b, m.Halt()
}

// phase pulls drive line n low and floats the others.
func (m *Matrix) phase(n int) error {
	for i, p := range m.drive {
		var err error
		if i == n {
			err = p.Out(gpio.Low)
		} else {
			err = p.In(gpio.Float, gpio.NoEdge)
		}
		if err != nil {
			return fmt.Errorf("input: %s: %w", p, err)
		}
	}
	return nil
}

// Halt floats every drive line.
func (m *Matrix) Halt() error {
	for _, p := range m.drive {
		if err := p.In(gpio.Float, gpio.NoEdge); err != nil {
			return fmt.Errorf("input: %s: %w", p, err)
		}
	}
	return nil
}

func (m *Matrix) String() string {
	return fmt.Sprintf("input.Matrix{%dx%d}", len(m.drive), len(m.sense))
}

var _ Keypad = &Matrix{}
