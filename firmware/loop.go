// Package firmware runs the game: it polls the keypad and the tick timer,
// applies the requested moves and gravity to the engine and repaints the
// panel when something changed.
package firmware

import (
	"context"
	"errors"
	"time"

	"github.com/flavioheleno/oledtris/game"
	"github.com/flavioheleno/oledtris/input"
)

// Opts is optional configuration for the loop.
type Opts struct {
	// Idle is the pause between two steps in Run. Defaults to 1ms.
	Idle time.Duration
}

// DefaultOpts is used when nil is passed to New.
var DefaultOpts = Opts{
	Idle: time.Millisecond,
}

// Loop is the single control loop. It is not safe for concurrent use.
type Loop struct {
	engine  *game.Engine
	display game.Display
	keypad  input.Keypad
	timer   Timer
	idle    time.Duration

	prev  input.Buttons
	acc   uint
	drawn bool
	err   error
}

// actions are dispatched in this order when their buttons are pressed in the
// same step.
var actions = []struct {
	b  input.Buttons
	fn func(*game.Engine) error
}{
	{input.Left, (*game.Engine).Left},
	{input.Right, (*game.Engine).Right},
	{input.RotateCW, (*game.Engine).RotateCW},
	{input.RotateCCW, (*game.Engine).RotateCCW},
	{input.HardDrop, (*game.Engine).HardDrop},
	{input.Hold, (*game.Engine).Hold},
}

// New returns a loop driving e, drawing on d.
func New(e *game.Engine, d game.Display, k input.Keypad, t Timer, opts *Opts) (*Loop, error) {
	if e == nil || d == nil || k == nil || t == nil {
		return nil, errors.New("firmware: engine, display, keypad and timer are required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	idle := opts.Idle
	if idle <= 0 {
		idle = DefaultOpts.Idle
	}
	return &Loop{engine: e, display: d, keypad: k, timer: t, idle: idle}, nil
}

// snapshot is the engine state visible on the panel.
type snapshot struct {
	board game.Board
	piece game.Piece
	x, y  int
	next  game.Shape
	held  game.Shape
	hold  bool
}

func (l *Loop) snapshot() snapshot {
	s := snapshot{
		board: l.engine.Board(),
		piece: l.engine.Active(),
		next:  l.engine.Next(),
	}
	s.x, s.y = l.engine.Position()
	s.held, s.hold = l.engine.Held()
	return s
}

// Step runs one iteration: newly pressed buttons are applied, a pending tick
// advances gravity by at most one row, and the panel is repainted if the
// game changed. Any error is terminal and returned by every later call.
func (l *Loop) Step() error {
	if l.err != nil {
		return l.err
	}
	cur, err := l.keypad.Scan()
	if err != nil {
		return l.fail(err)
	}
	edges := input.Edges(l.prev, cur)
	l.prev = cur

	before := l.snapshot()
	for _, a := range actions {
		if edges&a.b == 0 {
			continue
		}
		if err := a.fn(l.engine); err != nil {
			return l.finish(err)
		}
	}

	if l.timer.Expired() {
		l.acc++
		th := Threshold(l.engine.Lines(), cur.Has(input.SoftDrop))
		fall := false
		for l.acc > th {
			l.acc -= th
			fall = true
		}
		if fall {
			if _, err := l.engine.Fall(); err != nil {
				return l.finish(err)
			}
		}
	}

	if l.drawn && l.snapshot() == before {
		return nil
	}
	if err := l.engine.Render(l.display); err != nil {
		return l.fail(err)
	}
	l.drawn = true
	return nil
}

// finish shows the final position when the game ended, then stops on err.
func (l *Loop) finish(err error) error {
	if errors.Is(err, game.ErrGameOver) {
		if rerr := l.engine.Render(l.display); rerr != nil {
			return l.fail(rerr)
		}
	}
	return l.fail(err)
}

func (l *Loop) fail(err error) error {
	l.err = err
	return err
}

// Err returns the error that stopped the loop, if any.
func (l *Loop) Err() error {
	return l.err
}

// Run steps until ctx is done or a step fails.
func (l *Loop) Run(ctx context.Context) error {
	idle := time.NewTicker(l.idle)
	defer idle.Stop()
	for {
		if err := l.Step(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle.C:
		}
	}
}
