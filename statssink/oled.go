// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package statssink

import (
	"fmt"
	"image"
	"log"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

const (
	oledI2CCmd      = 0x00
	oledI2CData     = 0x40
	oledDefaultAddr = 0x3c

	oledDefaultWidth  = 128
	oledDefaultHeight = 32
)

// oledInitSequence brings up a 128x32 SSD1306 in horizontal addressing
// mode, adapted line-for-line from the teacher's ssd1306.newDev command
// list (periph-devices), trimmed to the one panel size and orientation
// this backend targets.
var oledInitSequence = []byte{
	0xAE,       // display off
	0xD5, 0x80, // clock divide ratio / oscillator frequency
	0xA8, 0x1F, // multiplex ratio: 32 rows
	0xD3, 0x00, // display offset: none
	0x40,       // display start line 0
	0x8D, 0x14, // charge pump: enable
	0x20, 0x00, // memory addressing mode: horizontal
	0xA1,       // segment remap: column 127 mapped to SEG0
	0xC8,       // COM output scan direction: remapped
	0xDA, 0x02, // COM pins configuration
	0x81, 0x8F, // contrast control
	0xD9, 0xF1, // pre-charge period
	0xDB, 0x40, // VCOMH deselect level
	0xA4, // entire display on: resume to RAM content
	0xA6, // normal display, not inverted
	0xAF, // display on
}

// OLED renders a Snapshot as two lines of text on an SSD1306-family
// monochrome display over I2C, grounded on the teacher's ssd1306 driver
// for the init command sequence and the I2C control-byte/page-write
// protocol. It draws its own text with golang.org/x/image/font and
// basicfont instead of depending on the out-of-module
// periph.io/x/devices/v3/ssd1306/image1bit package ssd1306 itself uses
// (see DESIGN.md) — the same font stack ssd1306's own example_test.go
// shows, commented out, as what real text rendering would use.
type OLED struct {
	conn   conn.Conn
	bmp    *monoBitmap
	width  int
	height int
}

// NewOLED brings up an SSD1306-family display at addr (0 selects the
// common default 0x3C) over bus.
func NewOLED(bus i2c.Bus, addr uint16) (*OLED, error) {
	if addr == 0 {
		addr = oledDefaultAddr
	}
	o := &OLED{
		conn:   &i2c.Dev{Bus: bus, Addr: addr},
		bmp:    newMonoBitmap(oledDefaultWidth, oledDefaultHeight),
		width:  oledDefaultWidth,
		height: oledDefaultHeight,
	}
	if err := o.sendCommand(oledInitSequence); err != nil {
		return nil, fmt.Errorf("statssink: oled init: %w", err)
	}
	return o, nil
}

func (o *OLED) sendCommand(c []byte) error {
	return o.conn.Tx(append([]byte{oledI2CCmd}, c...), nil)
}

func (o *OLED) sendData(c []byte) error {
	return o.conn.Tx(append([]byte{oledI2CData}, c...), nil)
}

// setWindow selects the full-panel column/page address window so the
// following data write lands at (0,0), the same _COLUMNADDR/_PAGEADDR
// pair the teacher's drawInternal issues before each frame.
func (o *OLED) setWindow() error {
	if err := o.sendCommand([]byte{0x21, 0x00, byte(o.width - 1)}); err != nil {
		return err
	}
	return o.sendCommand([]byte{0x22, 0x00, byte(o.height/8 - 1)})
}

// Report implements Sink: it draws two lines of text summarizing the
// snapshot and pushes the whole frame to the panel. Errors are logged
// rather than returned, matching the Sink interface: diagnostics output is
// best-effort and must never block or fail the render/output pipeline.
func (o *OLED) Report(s Snapshot) {
	o.bmp.clear()
	drawLine(o.bmp, 0, fmt.Sprintf("fx%d b%d rpm~", s.CurrentEffect, s.CurrentBrightness))
	drawLine(o.bmp, 16, fmt.Sprintf("skip%d bad%d", s.Skipped, s.TooFast+s.TooSlow+s.RatioLow))

	if err := o.setWindow(); err != nil {
		log.Printf("statssink: oled setWindow: %v", err)
		return
	}
	if err := o.sendData(o.bmp.pix); err != nil {
		log.Printf("statssink: oled send frame: %v", err)
	}
}

// drawLine paints one line of 7x13 basicfont glyphs whose top edge is row
// y (baseline at y+11), using golang.org/x/image/font.Drawer the way any stdlib-image-based
// text rendering does.
func drawLine(dst *monoBitmap, y int, text string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(0, y+11),
	}
	d.DrawString(text)
}
