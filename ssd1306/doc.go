// Package ssd1306 controls a 128x64 monochrome OLED display via a SSD1306
// controller on an I²C bus.
//
// The driver implements the display.Drawer interface from periph.io and also
// exposes the controller's addressing window directly, which is what the game
// renderer uses: select a window with SetWindow, then stream column bytes with
// Write. Every command or data burst is one framed bus transaction whose first
// byte after the address is the mode prefix (0x00 command, 0x40 data).
//
// # Hardware Connection
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	SCL         → I²C clock (or any GPIO with the i2cbb package)
//	SDA         → I²C data (or any GPIO with the i2cbb package)
//
// # Basic Usage
//
//	bus, _ := i2creg.Open("")
//	dev, _ := ssd1306.NewI2C(bus, nil)
//	defer dev.Halt()
//
//	// Light the top-left 8x8 block.
//	dev.SetWindow(0, 7, 0, 0)
//	dev.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
//
// # Memory Layout
//
// RAM is 8 pages of 128 columns. A byte covers 8 rows of one column with the
// least significant bit on top. In horizontal addressing mode the column
// pointer wraps to the next page at the window's right edge, and to the
// window's first page after the last one.
//
// # Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/SSD1306.pdf
package ssd1306
