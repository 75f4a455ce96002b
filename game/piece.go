package game

import "fmt"

// Shape identifies one of the seven tetrominoes.
type Shape uint8

const (
	O Shape = iota
	I
	J
	L
	S
	Z
	T

	// NumShapes is the number of distinct shapes.
	NumShapes = 7
	// NumRotations is the number of orientations stored per shape.
	NumRotations = 4
)

var shapeNames = [NumShapes]string{"O", "I", "J", "L", "S", "Z", "T"}

func (s Shape) String() string {
	if s >= NumShapes {
		return fmt.Sprintf("Shape(%d)", uint8(s))
	}
	return shapeNames[s]
}

// masks holds every orientation as a 4x4 bitmap, row-major, bit 15 being the
// top-left cell. Rotation r+1 is r turned clockwise.
var masks = [NumShapes][NumRotations]uint16{
	O: {0x0660, 0x0660, 0x0660, 0x0660},
	I: {0x8888, 0xF000, 0x1111, 0x000F},
	J: {0x0710, 0x0226, 0x08E0, 0x6220},
	L: {0x0170, 0x0446, 0x0E80, 0x6440},
	S: {0x06C0, 0x4620, 0x0360, 0x0462},
	Z: {0x0C60, 0x2640, 0x0630, 0x0264},
	T: {0x4640, 0x0720, 0x0262, 0x04E0},
}

// Piece is a shape in one of its orientations.
type Piece struct {
	Shape    Shape
	Rotation uint8
}

// Mask returns the 4x4 bitmap of the piece.
func (p Piece) Mask() uint16 {
	return masks[p.Shape%NumShapes][p.Rotation%NumRotations]
}

// CW returns the piece turned clockwise.
func (p Piece) CW() Piece {
	return Piece{Shape: p.Shape, Rotation: (p.Rotation + 1) % NumRotations}
}

// CCW returns the piece turned counter-clockwise.
func (p Piece) CCW() Piece {
	return Piece{Shape: p.Shape, Rotation: (p.Rotation + NumRotations - 1) % NumRotations}
}

// Cell reports whether the piece occupies (col, row) of its 4x4 box.
func (p Piece) Cell(col, row int) bool {
	return cell(p.Mask(), col, row)
}

func cell(mask uint16, col, row int) bool {
	return mask&(0x8000>>uint(row*4+col)) != 0
}

// Cells calls fn with the box coordinates of every occupied cell.
func (p Piece) Cells(fn func(col, row int)) {
	m := p.Mask()
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			if cell(m, col, row) {
				fn(col, row)
			}
		}
	}
}

func (p Piece) String() string {
	return fmt.Sprintf("%s/%d", p.Shape, p.Rotation)
}
