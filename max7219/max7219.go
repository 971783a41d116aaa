// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package max7219 drives a MAX7219/MAX7221 numeric 7-segment display over
// SPI, CodeB-decoded only. The CORE needs this chip for exactly one thing
// — statssink.SevenSegment's running counter gauge — so unlike the
// teacher's original max7219 package this build drops the matrix/glyph
// raster path entirely: it depended on a glyph table (CP437Glyphs) and a
// reverseGlyphs helper that were never part of this module's retrieved
// source and that nothing in this repo's domain exercises. What remains
// is the numeric half: init, clear, set intensity, write an int.
package max7219

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	registerDecodeMode byte = 0x9
	registerIntensity  byte = 0xa
	registerScanLimit  byte = 0xb
	registerShutdown   byte = 0xc
	registerDispTest   byte = 0xf

	// ClearDigit is the CodeB value that blanks a digit.
	ClearDigit byte = 0x0f
	// MinusSign is the CodeB value for a minus sign.
	MinusSign byte = 0x0a
)

// Dev is a chain of one or more MAX7219/MAX7221 chips wired as a single
// numeric gauge, all chips decoded in CodeB mode.
type Dev struct {
	conn spi.Conn
	// units is the number of 7219 chips daisy-chained together.
	units int
	// digits is the number of digits each chip drives (the scan limit).
	digits byte
}

// NewSPI creates a Dev on the given SPI port. units is the number of
// MAX7219 chips daisy-chained together; numDigits is the digit count each
// one drives (1-8).
func NewSPI(p spi.Port, units, numDigits int) (*Dev, error) {
	if units <= 0 {
		return nil, errors.New("max7219: invalid value for number of cascaded units")
	}
	if numDigits <= 0 || numDigits > 8 {
		return nil, errors.New("max7219: invalid value for number of digits")
	}
	c, err := p.Connect(10*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("max7219: %w", err)
	}
	d := &Dev{conn: c, digits: byte(numDigits), units: units}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// init brings every chained chip up: display test off, shutdown cleared,
// mid intensity, scan limit set to the configured digit count, CodeB
// decode on every digit, then blanked.
func (d *Dev) init() error {
	cmds := [6][2]byte{
		{registerDispTest, 0x0},
		{registerShutdown, 0x00},
		{registerIntensity, 0x08},
		{registerScanLimit, d.digits - 1},
		{registerDecodeMode, 0xff},
		{registerShutdown, 0x01},
	}
	for _, cmd := range cmds {
		if err := d.sendCommand(cmd[0], cmd[1]); err != nil {
			return fmt.Errorf("max7219: init: %w", err)
		}
	}
	return d.Clear()
}

// sendCommand writes one register/data pair, repeated identically across
// every daisy-chained chip in a single SPI transaction.
func (d *Dev) sendCommand(register, data byte) error {
	w := make([]byte, d.units*2)
	for ix := 0; ix < d.units; ix++ {
		w[ix*2] = register
		w[ix*2+1] = data
	}
	return d.conn.Tx(w, nil)
}

// SetIntensity sets display brightness, 0-15.
func (d *Dev) SetIntensity(intensity byte) error {
	return d.sendCommand(registerIntensity, intensity&0x0f)
}

// Clear blanks every digit on every chained chip.
func (d *Dev) Clear() error {
	n := int(d.digits) * d.units
	blank := make([]byte, n)
	for i := range blank {
		blank[i] = ClearDigit
	}
	return d.write(blank)
}

// WriteInt right-aligns value across all chained chips' digits, most
// significant digit first, and writes it out — the only entry point
// statssink.SevenSegment needs, refreshed once per diagnostics report.
func (d *Dev) WriteInt(value int) error {
	return d.write(formatDigits(value, int(d.digits)*d.units))
}

// formatDigits renders value as n CodeB digit values, most significant
// first, ClearDigit-padded, with a leading MinusSign if negative. A value
// too wide for n digits is truncated to its least-significant digits,
// matching how the physical display behaves when handed an overflowing
// number.
func formatDigits(value, n int) []byte {
	neg := value < 0
	if neg {
		value = -value
	}
	digits := make([]byte, n)
	for i := range digits {
		digits[i] = ClearDigit
	}
	pos := n - 1
	if value == 0 {
		digits[pos] = 0
		pos--
	}
	for value > 0 && pos >= 0 {
		digits[pos] = byte(value % 10)
		value /= 10
		pos--
	}
	if neg && pos >= 0 {
		digits[pos] = MinusSign
	}
	return digits
}

// write fans a flat slice of per-digit CodeB values (the whole chain's
// most significant digit first) out across the cascaded chips, one SPI
// transaction per digit position — the standard MAX7219 cascade wiring,
// where chip N's DOUT feeds chip N-1's DIN, so data for the far end of
// the chain must be clocked in first.
func (d *Dev) write(values []byte) error {
	n := int(d.digits) * d.units
	switch {
	case len(values) < n:
		padded := make([]byte, n)
		for i := 0; i < n-len(values); i++ {
			padded[i] = ClearDigit
		}
		copy(padded[n-len(values):], values)
		values = padded
	case len(values) > n:
		values = values[len(values)-n:]
	}
	for digit := byte(0); digit < d.digits; digit++ {
		w := make([]byte, 0, d.units*2)
		for unit := d.units - 1; unit >= 0; unit-- {
			idx := unit*int(d.digits) + int(digit)
			w = append(w, digit+1, values[n-1-idx])
		}
		if err := d.conn.Tx(w, nil); err != nil {
			return err
		}
	}
	return nil
}
