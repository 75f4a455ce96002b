// Package image1bit provides a 1-bit monochrome image format for the SSD1306 display controller.
//
// The SSD1306 stores its RAM as 8 pages of 128 columns. Each byte holds 8
// vertically stacked pixels of one column, least significant bit on top.
//
// Memory layout example for one column of a page:
//
//	Row:   0 1 2 3 4 5 6 7
//	Value: 1 0 1 1 0 0 0 0
//	Byte:  0x0D
//
// This package provides:
//
// - Bit: A color type representing a lit or dark pixel
// - BitModel: A color model for converting standard Go colors to Bit
// - VerticalLSB: An image.Image implementation laid out like controller RAM
//
// Example usage:
//
//	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
//	img.SetBit(10, 20, image1bit.On)
//	lit := img.BitAt(10, 20)
package image1bit
