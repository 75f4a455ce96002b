package game

const (
	// BoardWidth and BoardHeight are the playfield size in cells.
	BoardWidth  = 10
	BoardHeight = 20

	boardBytes = (BoardWidth*BoardHeight + 7) / 8
)

// Board is the 10x20 playfield packed one bit per cell, row-major
// (index y*10+x). Cell (0, 0) is the top-left corner.
type Board struct {
	bits [boardBytes]byte
}

// In reports whether (x, y) lies on the board.
func In(x, y int) bool {
	return x >= 0 && x < BoardWidth && y >= 0 && y < BoardHeight
}

// Get reports whether the cell at (x, y) is occupied. Cells off the board
// read as empty.
func (b Board) Get(x, y int) bool {
	if !In(x, y) {
		return false
	}
	i := y*BoardWidth + x
	return b.bits[i>>3]&(1<<uint(i&7)) != 0
}

// Set changes the cell at (x, y). Cells off the board are ignored.
func (b *Board) Set(x, y int, occupied bool) {
	if !In(x, y) {
		return
	}
	i := y*BoardWidth + x
	if occupied {
		b.bits[i>>3] |= 1 << uint(i&7)
	} else {
		b.bits[i>>3] &^= 1 << uint(i&7)
	}
}

// Toggle flips the cell at (x, y).
func (b *Board) Toggle(x, y int) {
	if !In(x, y) {
		return
	}
	i := y*BoardWidth + x
	b.bits[i>>3] ^= 1 << uint(i&7)
}

// RowFull reports whether every cell of row y is occupied.
func (b Board) RowFull(y int) bool {
	for x := 0; x < BoardWidth; x++ {
		if !b.Get(x, y) {
			return false
		}
	}
	return true
}

// RowEmpty reports whether no cell of row y is occupied.
func (b Board) RowEmpty(y int) bool {
	for x := 0; x < BoardWidth; x++ {
		if b.Get(x, y) {
			return false
		}
	}
	return true
}

// collapse removes row y, moving every row above it down by one and leaving
// row 0 empty.
func (b *Board) collapse(y int) {
	for ; y > 0; y-- {
		for x := 0; x < BoardWidth; x++ {
			b.Set(x, y, b.Get(x, y-1))
		}
	}
	for x := 0; x < BoardWidth; x++ {
		b.Set(x, 0, false)
	}
}

// Count returns the number of occupied cells.
func (b Board) Count() int {
	n := 0
	for y := 0; y < BoardHeight; y++ {
		for x := 0; x < BoardWidth; x++ {
			if b.Get(x, y) {
				n++
			}
		}
	}
	return n
}

// Clear empties the board.
func (b *Board) Clear() {
	b.bits = [boardBytes]byte{}
}
