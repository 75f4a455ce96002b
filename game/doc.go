// Package game implements the falling-block puzzle played on the OLED.
//
// An Engine keeps a 10x20 board packed one bit per cell, the falling piece,
// the next and held shapes and a 16-bit xorshift generator that picks shapes.
// Moves that do not fit are ignored. A piece that cannot fall any further is
// merged into the board, full rows are removed and the next piece spawns at
// the top; when it does not fit the engine stops with ErrGameOver.
//
// Render draws the board and both previews through any Display, usually an
// *ssd1306.Dev.
package game
