// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package statssink

import (
	"image"
	"image/color"
)

// monoBitmap is a 1-bit-per-pixel framebuffer packed into vertical pages of
// 8 rows, LSB first: pix[page*w+x], bit (y%8). This is the exact wire
// layout the SSD1306 family expects and that the teacher's ssd1306 driver
// builds via periph.io/x/devices/v3/ssd1306/image1bit.VerticalLSB.
//
// That package lives in the periph.io/x/devices/v3 module, outside this
// module's dependency set (see DESIGN.md), so the bitmap and its
// image.Image/draw.Image surface are reimplemented locally: small enough
// that golang.org/x/image/font's Drawer can paint basicfont glyphs
// directly onto it.
type monoBitmap struct {
	w, h int
	pix  []byte
}

func newMonoBitmap(w, h int) *monoBitmap {
	pages := (h + 7) / 8
	return &monoBitmap{w: w, h: h, pix: make([]byte, w*pages)}
}

// ColorModel implements image.Image/draw.Image.
func (b *monoBitmap) ColorModel() color.Model { return color.GrayModel }

// Bounds implements image.Image/draw.Image.
func (b *monoBitmap) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: b.w, Y: b.h}}
}

// At implements image.Image.
func (b *monoBitmap) At(x, y int) color.Color {
	if b.bit(x, y) {
		return color.Gray{Y: 255}
	}
	return color.Gray{Y: 0}
}

// Set implements draw.Image.
func (b *monoBitmap) Set(x, y int, c color.Color) {
	gray := color.GrayModel.Convert(c).(color.Gray)
	b.setBit(x, y, gray.Y >= 128)
}

func (b *monoBitmap) bit(x, y int) bool {
	if x < 0 || x >= b.w || y < 0 || y >= b.h {
		return false
	}
	page := y / 8
	mask := byte(1) << uint(y%8)
	return b.pix[page*b.w+x]&mask != 0
}

func (b *monoBitmap) setBit(x, y int, v bool) {
	if x < 0 || x >= b.w || y < 0 || y >= b.h {
		return
	}
	page := y / 8
	mask := byte(1) << uint(y%8)
	if v {
		b.pix[page*b.w+x] |= mask
	} else {
		b.pix[page*b.w+x] &^= mask
	}
}

func (b *monoBitmap) clear() {
	for i := range b.pix {
		b.pix[i] = 0
	}
}
