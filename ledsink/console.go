// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ledsink

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"

	"github.com/windrose/povcore/rendercontext"
)

// Console is a Sink that renders the display to a terminal using ANSI
// 256-color escape codes, grounded on the teacher's screen1d.Dev: "useful
// while you are waiting for your super nice APA-102 LED strip to come by
// mail." Each physical LED becomes one colored block character.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	palette ansi256.Palette
	pixels  []rendercontext.Color
	buf     bytes.Buffer
}

// NewConsole returns a Console sized for PhysicalCount pixels, writing to
// the terminal via go-colorable so ANSI codes render correctly on Windows
// consoles too.
func NewConsole(palette *ansi256.Palette) *Console {
	p := palette
	if p == nil {
		p = ansi256.Default
	}
	return &Console{
		w:       colorable.NewColorableStdout(),
		palette: *p,
		pixels:  make([]rendercontext.Color, PhysicalCount),
	}
}

// Halt implements conn.Resource. It resets the terminal's SGR state.
func (c *Console) Halt() error {
	_, err := c.w.Write([]byte("\n\033[0m"))
	return err
}

// String implements conn.Resource.
func (c *Console) String() string { return "ledsink.Console" }

// SetPixel implements Sink.
func (c *Console) SetPixel(physicalIndex int, col rendercontext.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if physicalIndex < 0 || physicalIndex >= len(c.pixels) {
		return fmt.Errorf("ledsink: physical index %d out of range [0,%d)", physicalIndex, len(c.pixels))
	}
	c.pixels[physicalIndex] = col
	return nil
}

// Show implements Sink, flushing the buffered frame to the terminal in a
// single write, the same way screen1d.Dev.refresh minimizes allocations
// per call.
func (c *Console) Show() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Reset()
	c.buf.WriteString("\r\033[0m")
	for _, px := range c.pixels {
		nrgba := px.NRGBA()
		io.WriteString(&c.buf, c.palette.Block(nrgba))
	}
	c.buf.WriteString("\033[0m ")
	_, err := c.buf.WriteTo(c.w)
	return err
}

var _ Sink = (*Console)(nil)
