// Package ssd1306 controls a 128x64 monochrome OLED display via a SSD1306 over I²C.
//
// See doc.go for wiring and usage.
package ssd1306

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/flavioheleno/oledtris/ssd1306/image1bit"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

const (
	// Width and Height of the only supported panel.
	Width  = 128
	Height = 64
	// Pages is the number of 8 pixel tall RAM rows.
	Pages = Height / 8

	// DefaultAddr is the 7-bit bus address (0x78 once shifted on the wire).
	DefaultAddr = 0x3C

	// Mode prefixes sent right after the device address.
	modeCommand = 0x00
	modeData    = 0x40
)

var errHalted = errors.New("ssd1306: halted")

// Opts is the configuration for the SSD1306 display.
type Opts struct {
	Addr     uint16 // 7-bit I²C address (default: 0x3C)
	Contrast byte   // Initial contrast, 0 selects the default 0xCF; use SetContrast for 0
	Rotated  bool   // 180° rotation
}

// Dev is the device handle for the SSD1306 display.
type Dev struct {
	c conn.Conn

	rect image.Rectangle

	// Pixel buffers for Draw
	next *image1bit.VerticalLSB // lazily allocated
	last []byte                 // last frame sent through Draw

	halted bool
}

// NewI2C creates a new SSD1306 device connected via I²C and initializes it.
//
// opts can be nil to use defaults.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	o := *opts
	if o.Addr == 0 {
		o.Addr = DefaultAddr
	}
	if o.Addr >= 0x78 {
		return nil, fmt.Errorf("ssd1306: invalid 7-bit address %#x", o.Addr)
	}
	if o.Contrast == 0 {
		o.Contrast = 0xCF
	}

	d := &Dev{
		c:    &i2c.Dev{Bus: b, Addr: o.Addr},
		rect: image.Rect(0, 0, Width, Height),
		last: make([]byte, Width*Pages),
	}
	if err := d.init(&o); err != nil {
		return nil, err
	}
	return d, nil
}

// initCommands returns the controller setup sequence, display on last.
func initCommands(opts *Opts) []byte {
	remap, scan := byte(0xA1), byte(0xC8)
	if opts.Rotated {
		remap, scan = 0xA0, 0xC0
	}
	return []byte{
		0xAE,       // Display OFF
		0xD5, 0x80, // Clock divider and oscillator frequency
		0xA8, Height - 1, // Multiplex ratio
		0xD3, 0x00, // Display offset
		0x40,       // Start line 0
		0x8D, 0x14, // Charge pump enable
		0x20, 0x00, // Horizontal addressing mode
		remap,      // Segment remap
		scan,       // COM scan direction
		0xDA, 0x12, // COM pins configuration
		0x81, opts.Contrast, // Contrast
		0xD9, 0xF1, // Pre-charge period
		0xDB, 0x40, // VCOMH deselect level
		0xA4, // Resume to RAM content
		0xA6, // Normal display mode
		0xAF, // Display ON
	}
}

// init sends the initialization sequence as one transaction and clears RAM.
func (d *Dev) init(opts *Opts) error {
	if err := d.sendCommands(initCommands(opts)...); err != nil {
		return err
	}
	return d.clearRAM()
}

// clearRAM zeroes all of display RAM.
func (d *Dev) clearRAM() error {
	if err := d.SetWindow(0, Width-1, 0, Pages-1); err != nil {
		return err
	}
	_, err := d.Write(make([]byte, Width*Pages))
	return err
}

// sendCommands frames cmds as a single command transaction.
func (d *Dev) sendCommands(cmds ...byte) error {
	buf := make([]byte, 0, len(cmds)+1)
	buf = append(buf, modeCommand)
	buf = append(buf, cmds...)
	if err := d.c.Tx(buf, nil); err != nil {
		return fmt.Errorf("ssd1306: command: %w", err)
	}
	return nil
}

// sendData frames data as a single RAM write transaction.
func (d *Dev) sendData(data []byte) error {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, modeData)
	buf = append(buf, data...)
	if err := d.c.Tx(buf, nil); err != nil {
		return fmt.Errorf("ssd1306: data: %w", err)
	}
	return nil
}

// SetWindow selects the addressing window. Bytes written afterwards fill
// columns left to right, wrapping to the next page inside the window.
func (d *Dev) SetWindow(colMin, colMax, pageMin, pageMax int) error {
	if d.halted {
		return errHalted
	}
	if colMin < 0 || colMin > colMax || colMax >= Width {
		return fmt.Errorf("ssd1306: invalid column range %d-%d", colMin, colMax)
	}
	if pageMin < 0 || pageMin > pageMax || pageMax >= Pages {
		return fmt.Errorf("ssd1306: invalid page range %d-%d", pageMin, pageMax)
	}
	return d.sendCommands(
		0x21, byte(colMin), byte(colMax), // Column address
		0x22, byte(pageMin), byte(pageMax), // Page address
	)
}

// Write streams raw pixel bytes into the current window. Each byte is one
// column of 8 pixels, least significant bit on top.
func (d *Dev) Write(pixels []byte) (int, error) {
	if d.halted {
		return 0, errHalted
	}
	if len(pixels) == 0 {
		return 0, nil
	}
	if err := d.sendData(pixels); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw draws an image onto the display, sending only the smallest
// page-aligned rectangle that changed since the last Draw.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return errHalted
	}

	dst = dst.Intersect(d.rect)
	if dst.Empty() {
		return nil
	}

	if d.next == nil {
		d.next = image1bit.NewVerticalLSB(d.rect)
		copy(d.next.Pix, d.last)
	}

	draw.Draw(d.next, dst, src, sp, draw.Src)

	minCol, maxCol, minPage, maxPage := d.calculateDiff()
	if minCol > maxCol {
		return nil
	}

	if err := d.SetWindow(minCol, maxCol, minPage, maxPage); err != nil {
		return err
	}
	if _, err := d.Write(d.extractRegion(minCol, maxCol, minPage, maxPage)); err != nil {
		return err
	}

	copy(d.last, d.next.Pix)
	return nil
}

// calculateDiff compares the last and next frames. Returns minCol > maxCol
// when nothing changed.
func (d *Dev) calculateDiff() (minCol, maxCol, minPage, maxPage int) {
	minCol, maxCol = Width, -1
	minPage, maxPage = Pages, -1

	for p := 0; p < Pages; p++ {
		for x := 0; x < Width; x++ {
			i := p*Width + x
			if d.last[i] == d.next.Pix[i] {
				continue
			}
			if x < minCol {
				minCol = x
			}
			if x > maxCol {
				maxCol = x
			}
			if p < minPage {
				minPage = p
			}
			if p > maxPage {
				maxPage = p
			}
		}
	}
	return
}

// extractRegion copies the next frame's bytes for a window in RAM order.
func (d *Dev) extractRegion(minCol, maxCol, minPage, maxPage int) []byte {
	w := maxCol - minCol + 1
	out := make([]byte, 0, w*(maxPage-minPage+1))
	for p := minPage; p <= maxPage; p++ {
		start := p*Width + minCol
		out = append(out, d.next.Pix[start:start+w]...)
	}
	return out
}

// SetContrast sets the display contrast (0-255).
func (d *Dev) SetContrast(contrast byte) error {
	if d.halted {
		return errHalted
	}
	return d.sendCommands(0x81, contrast)
}

// Invert inverts the display colors.
func (d *Dev) Invert(invert bool) error {
	if d.halted {
		return errHalted
	}
	mode := byte(0xA6)
	if invert {
		mode = 0xA7
	}
	return d.sendCommands(mode)
}

// Halt turns the display off. The device refuses further commands.
func (d *Dev) Halt() error {
	d.halted = true
	return d.sendCommands(0xAE)
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("ssd1306.Dev{%s, %dx%d}", d.c, d.rect.Dx(), d.rect.Dy())
}

var _ display.Drawer = &Dev{}
