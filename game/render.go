package game

// Display is the part of the panel driver the engine draws through. Bytes
// written after SetWindow fill the window page by page, column first, each
// byte covering 8 pixels of a page with the least significant bit on top.
type Display interface {
	SetWindow(colMin, colMax, pageMin, pageMax int) error
	Write(p []byte) (int, error)
}

// Screen layout. The panel is mounted on its side: board rows run along
// display columns and board columns along pages, column 9 on top.
const (
	cellPixels = 4

	BoardCol0  = 36
	BoardPage0 = 3
	BoardCols  = BoardHeight * cellPixels
	BoardPages = BoardWidth / 2

	PreviewCol0     = 8
	PreviewCols     = 4 * cellPixels
	PreviewPages    = 2
	NextPage0       = 1
	HoldPage0       = 5
	boardWindowSize = BoardCols * BoardPages
	previewSize     = PreviewCols * PreviewPages
)

// nibbles packs two vertically adjacent cells into a page byte.
func nibbles(top, bottom bool) byte {
	var b byte
	if top {
		b |= 0x0F
	}
	if bottom {
		b |= 0xF0
	}
	return b
}

// Render repaints the board with the active piece, then the next and hold
// previews.
func (e *Engine) Render(d Display) error {
	if err := e.renderBoard(d); err != nil {
		return err
	}
	if err := renderPreview(d, NextPage0, e.next, true); err != nil {
		return err
	}
	return renderPreview(d, HoldPage0, e.held, e.hold)
}

func (e *Engine) toggleActive() {
	e.active.Cells(func(col, row int) {
		e.board.Toggle(e.x+col, e.y+row)
	})
}

func (e *Engine) renderBoard(d Display) error {
	e.toggleActive()
	defer e.toggleActive()

	if err := d.SetWindow(BoardCol0, BoardCol0+BoardCols-1, BoardPage0, BoardPage0+BoardPages-1); err != nil {
		return err
	}
	buf := make([]byte, 0, boardWindowSize)
	for x := BoardWidth - 1; x > 0; x -= 2 {
		for y := 0; y < BoardHeight; y++ {
			b := nibbles(e.board.Get(x, y), e.board.Get(x-1, y))
			for i := 0; i < cellPixels; i++ {
				buf = append(buf, b)
			}
		}
	}
	_, err := d.Write(buf)
	return err
}

// renderPreview draws shape s in its spawn orientation, packed the same way
// as the board. A missing shape draws blank.
func renderPreview(d Display, page0 int, s Shape, ok bool) error {
	if err := d.SetWindow(PreviewCol0, PreviewCol0+PreviewCols-1, page0, page0+PreviewPages-1); err != nil {
		return err
	}
	buf := make([]byte, 0, previewSize)
	p := Piece{Shape: s}
	for col := 3; col > 0; col -= 2 {
		for row := 0; row < 4; row++ {
			var b byte
			if ok {
				b = nibbles(p.Cell(col, row), p.Cell(col-1, row))
			}
			for i := 0; i < cellPixels; i++ {
				buf = append(buf, b)
			}
		}
	}
	_, err := d.Write(buf)
	return err
}
