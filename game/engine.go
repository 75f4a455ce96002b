package game

import "errors"

// ErrGameOver is returned once a new piece cannot be placed at the spawn
// origin. The engine is terminal from then on.
var ErrGameOver = errors.New("game: game over")

const (
	// SpawnX and SpawnY are the board coordinates of the top-left corner of
	// the 4x4 box every new piece starts in.
	SpawnX = 3
	SpawnY = 0
)

// Engine owns the board, the falling piece, the next and held shapes and the
// line counter. It is not safe for concurrent use.
type Engine struct {
	board  Board
	active Piece
	x, y   int
	next   Shape
	held   Shape
	hold   bool
	rng    *Rand
	lines  uint16
	over   bool
}

// New returns an engine with an empty board. The first draw becomes the
// active piece and the second the next piece.
func New(seed uint16) (*Engine, error) {
	e := &Engine{rng: NewRand(seed)}
	e.active = Piece{Shape: e.rng.Shape()}
	e.next = e.rng.Shape()
	return e, e.spawn()
}

// Fits reports whether p placed with its box at (x, y) stays on the board
// without overlapping occupied cells.
func (e *Engine) Fits(p Piece, x, y int) bool {
	ok := true
	p.Cells(func(col, row int) {
		if !In(x+col, y+row) || e.board.Get(x+col, y+row) {
			ok = false
		}
	})
	return ok
}

// Left moves the active piece one column left if it fits there.
func (e *Engine) Left() error {
	return e.try(e.active, e.x-1, e.y)
}

// Right moves the active piece one column right if it fits there.
func (e *Engine) Right() error {
	return e.try(e.active, e.x+1, e.y)
}

// RotateCW turns the active piece clockwise if the result fits.
func (e *Engine) RotateCW() error {
	return e.try(e.active.CW(), e.x, e.y)
}

// RotateCCW turns the active piece counter-clockwise if the result fits.
func (e *Engine) RotateCCW() error {
	return e.try(e.active.CCW(), e.x, e.y)
}

// try applies a move when it fits. A rejected move is not an error.
func (e *Engine) try(p Piece, x, y int) error {
	if e.over {
		return ErrGameOver
	}
	if e.Fits(p, x, y) {
		e.active, e.x, e.y = p, x, y
	}
	return nil
}

// Fall moves the active piece down one row. When it cannot move, the piece
// is merged into the board, full rows are cleared and the next piece spawns;
// locked is true in that case.
func (e *Engine) Fall() (locked bool, err error) {
	if e.over {
		return false, ErrGameOver
	}
	if e.Fits(e.active, e.x, e.y+1) {
		e.y++
		return false, nil
	}
	e.merge()
	e.ClearLines()
	e.active = Piece{Shape: e.next}
	e.next = e.rng.Shape()
	return true, e.spawn()
}

// HardDrop falls until the active piece locks.
func (e *Engine) HardDrop() error {
	for {
		locked, err := e.Fall()
		if err != nil || locked {
			return err
		}
	}
}

// Hold parks the active shape. The first time, the next piece takes its
// place; afterwards the active and held shapes are swapped. Either way the
// new active piece restarts at the spawn origin in its first orientation.
func (e *Engine) Hold() error {
	if e.over {
		return ErrGameOver
	}
	if !e.hold {
		e.held, e.hold = e.active.Shape, true
		e.active = Piece{Shape: e.next}
		e.next = e.rng.Shape()
	} else {
		e.active, e.held = Piece{Shape: e.held}, e.active.Shape
	}
	return e.spawn()
}

// ClearLines removes every full row, shifting the rows above it down, and
// returns how many were removed. Rows are collapsed one at a time.
func (e *Engine) ClearLines() int {
	n := 0
	for y := BoardHeight - 1; y >= 0; {
		if !e.board.RowFull(y) {
			y--
			continue
		}
		e.board.collapse(y)
		e.lines++
		n++
	}
	return n
}

func (e *Engine) merge() {
	e.active.Cells(func(col, row int) {
		e.board.Set(e.x+col, e.y+row, true)
	})
}

func (e *Engine) spawn() error {
	e.x, e.y = SpawnX, SpawnY
	if !e.Fits(e.active, e.x, e.y) {
		e.over = true
		return ErrGameOver
	}
	return nil
}

// Board returns a copy of the settled cells, without the active piece.
func (e *Engine) Board() Board { return e.board }

// Active returns the falling piece.
func (e *Engine) Active() Piece { return e.active }

// Position returns the board coordinates of the active piece's box.
func (e *Engine) Position() (x, y int) { return e.x, e.y }

// Next returns the shape that spawns after the active piece locks.
func (e *Engine) Next() Shape { return e.next }

// Held returns the parked shape; ok is false until Hold was used.
func (e *Engine) Held() (s Shape, ok bool) { return e.held, e.hold }

// Lines returns the number of rows cleared so far. It wraps at 65536.
func (e *Engine) Lines() uint16 { return e.lines }

// Over reports whether the game has ended.
func (e *Engine) Over() bool { return e.over }
