// Package ssd1306sim emulates a SSD1306 panel behind an i2c.Bus.
//
// The panel decodes the command and data streams the ssd1306 driver emits and
// keeps its own copy of display RAM, so tests and the desktop simulator can
// look at the pixels the game actually pushed over the bus.
package ssd1306sim

import (
	"fmt"
	"image"
	"sync"

	"github.com/flavioheleno/oledtris/ssd1306/image1bit"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	width = 128
	pages = 8
)

// argCount maps multi-byte commands to the number of argument bytes they take.
var argCount = map[byte]int{
	0x20: 1, // Memory addressing mode
	0x21: 2, // Column address
	0x22: 2, // Page address
	0x81: 1, // Contrast
	0x8D: 1, // Charge pump
	0xA8: 1, // Multiplex ratio
	0xD3: 1, // Display offset
	0xD5: 1, // Clock divider
	0xD9: 1, // Pre-charge
	0xDA: 1, // COM pins
	0xDB: 1, // VCOMH
}

// Panel is an emulated SSD1306 at a single 7-bit address.
//
// It implements i2c.Bus. All methods are safe for concurrent use, which the
// desktop simulator relies on as it renders from a different goroutine.
type Panel struct {
	Addr uint16

	mu       sync.Mutex
	ram      *image1bit.VerticalLSB
	on       bool
	inverted bool
	contrast byte
	mode     byte
	colMin   int
	colMax   int
	pageMin  int
	pageMax  int
	col      int
	page     int
	txs      int
	pending  []byte // command waiting for its arguments
}

// New returns a powered-off panel with power-on reset register values.
func New(addr uint16) *Panel {
	return &Panel{
		Addr:     addr,
		ram:      image1bit.NewVerticalLSB(image.Rect(0, 0, width, pages*8)),
		contrast: 0x7F,
		mode:     0x02,
		colMax:   width - 1,
		pageMax:  pages - 1,
	}
}

func (p *Panel) String() string {
	return fmt.Sprintf("ssd1306sim(%#x)", p.Addr)
}

// SetSpeed accepts any speed.
func (p *Panel) SetSpeed(f physic.Frequency) error {
	return nil
}

// Tx implements i2c.Bus.
func (p *Panel) Tx(addr uint16, w, r []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if addr != p.Addr {
		return fmt.Errorf("ssd1306sim: no device at address %#x", addr)
	}
	p.txs++
	if len(w) > 0 {
		switch w[0] {
		case 0x00:
			p.pending = p.pending[:0]
			for _, b := range w[1:] {
				p.command(b)
			}
		case 0x40:
			for _, b := range w[1:] {
				p.data(b)
			}
		default:
			return fmt.Errorf("ssd1306sim: unsupported control byte %#02x", w[0])
		}
	}
	for i := range r {
		// Status register: bit 6 reports display off.
		r[i] = 0
		if !p.on {
			r[i] = 0x40
		}
	}
	return nil
}

func (p *Panel) command(b byte) {
	if len(p.pending) == 0 {
		if n, ok := argCount[b]; ok && n > 0 {
			p.pending = append(p.pending, b)
			return
		}
		p.single(b)
		return
	}
	p.pending = append(p.pending, b)
	if len(p.pending)-1 < argCount[p.pending[0]] {
		return
	}
	args := p.pending[1:]
	switch p.pending[0] {
	case 0x20:
		p.mode = args[0] & 0x03
	case 0x21:
		p.colMin, p.colMax = int(args[0]&0x7F), int(args[1]&0x7F)
		p.col = p.colMin
	case 0x22:
		p.pageMin, p.pageMax = int(args[0]&0x07), int(args[1]&0x07)
		p.page = p.pageMin
	case 0x81:
		p.contrast = args[0]
	}
	p.pending = p.pending[:0]
}

func (p *Panel) single(b byte) {
	switch b {
	case 0xAE:
		p.on = false
	case 0xAF:
		p.on = true
	case 0xA6:
		p.inverted = false
	case 0xA7:
		p.inverted = true
	}
}

// data stores one RAM byte and advances the column pointer. Horizontal mode
// moves on to the next page of the window, page mode stays on the same page.
func (p *Panel) data(b byte) {
	p.ram.Pix[p.page*width+p.col] = b
	p.col++
	if p.col > p.colMax {
		p.col = p.colMin
		if p.mode != 0x00 {
			return
		}
		p.page++
		if p.page > p.pageMax {
			p.page = p.pageMin
		}
	}
}

// Image returns a copy of display RAM.
func (p *Panel) Image() *image1bit.VerticalLSB {
	p.mu.Lock()
	defer p.mu.Unlock()
	img := image1bit.NewVerticalLSB(p.ram.Rect)
	copy(img.Pix, p.ram.Pix)
	return img
}

// Page returns a copy of columns colMin..colMax of RAM page n.
func (p *Panel) Page(n, colMin, colMax int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.ram.Page(n)[colMin:colMax+1]...)
}

// On reports whether the display has been switched on.
func (p *Panel) On() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}

// Inverted reports the inverse display flag.
func (p *Panel) Inverted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inverted
}

// Contrast returns the last contrast value set.
func (p *Panel) Contrast() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.contrast
}

// Window returns the current addressing window.
func (p *Panel) Window() (colMin, colMax, pageMin, pageMax int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.colMin, p.colMax, p.pageMin, p.pageMax
}

// Transactions returns the number of framed transactions seen.
func (p *Panel) Transactions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txs
}

var _ i2c.Bus = &Panel{}
