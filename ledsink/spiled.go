// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ledsink

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/windrose/povcore/rendercontext"
)

// SPI drives an APA102-style addressable LED strip over a periph.io SPI
// bus. The wire frame layout (a zero start frame, four bytes per LED, and
// a trailing all-ones frame to flush the last LED's clock) is grounded on
// the teacher's apa102 driver (other_examples), adapted from the
// google/pio spi.Conn API to periph.io/x/conn/v3's, the same Connect/Tx
// idiom nxp74hc595 and max7219 use in this pack.
type SPI struct {
	mu    sync.Mutex
	conn  spi.Conn
	count int
	buf   []byte
}

const (
	apa102StartFrameLen = 4
	apa102BytesPerLED   = 4
	// apa102GlobalMax selects the per-LED 5-bit global brightness field at
	// its maximum (31): per-channel brightness is handled upstream by
	// ledsink.Brightness, so this field stays pinned rather than adding a
	// second, redundant brightness control plane.
	apa102GlobalMax = 0xE0 + 31
)

// NewSPI connects to p and returns a Sink for a strip of count
// APA102-compatible LEDs.
func NewSPI(p spi.Port, count int) (*SPI, error) {
	if count <= 0 {
		return nil, fmt.Errorf("ledsink: invalid LED count %d", count)
	}
	conn, err := p.Connect(10*physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		return nil, fmt.Errorf("ledsink: %w", err)
	}
	tailLen := count/2/8 + 1
	buf := make([]byte, apa102StartFrameLen+apa102BytesPerLED*count+tailLen)
	tail := buf[apa102StartFrameLen+apa102BytesPerLED*count:]
	for i := range tail {
		tail[i] = 0xff
	}
	s := &SPI{conn: conn, count: count, buf: buf}
	return s, nil
}

// String implements conn.Resource.
func (s *SPI) String() string { return "ledsink.SPI" }

// Halt blanks the strip and releases the connection.
func (s *SPI) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < s.count; i++ {
		s.setLocked(i, rendercontext.Black)
	}
	err := s.showLocked()
	s.conn = nil
	return err
}

// SetPixel implements Sink.
func (s *SPI) SetPixel(physicalIndex int, c rendercontext.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if physicalIndex < 0 || physicalIndex >= s.count {
		return fmt.Errorf("ledsink: physical index %d out of range [0,%d)", physicalIndex, s.count)
	}
	s.setLocked(physicalIndex, c)
	return nil
}

func (s *SPI) setLocked(i int, c rendercontext.Color) {
	off := apa102StartFrameLen + i*apa102BytesPerLED
	s.buf[off] = apa102GlobalMax
	s.buf[off+1] = c.B
	s.buf[off+2] = c.G
	s.buf[off+3] = c.R
}

// Show implements Sink, shifting the whole frame buffer out over SPI in a
// single transaction.
func (s *SPI) Show() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showLocked()
}

func (s *SPI) showLocked() error {
	if s.conn == nil {
		return fmt.Errorf("ledsink: SPI sink halted")
	}
	return s.conn.Tx(s.buf, nil)
}

var _ Sink = (*SPI)(nil)
