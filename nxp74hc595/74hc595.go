// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package nxp74hc595 drives a 74HC595 serial-in/parallel-out shift
// register over SPI. In this module it has exactly one job:
// ledsink.PositionBar claims all 8 of its outputs as a single gpio.Group
// and lights whichever one bit corresponds to the octant arm 0 currently
// occupies — a cheap, color-less "is it actually spinning, and roughly
// where" indicator for installations with no richer diagnostics display.
//
// # Datasheet
//
// https://www.nexperia.com/product/74HC595D
package nxp74hc595

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/spi"
)

const (
	devName = "74HC595"
	// pinCount is fixed by the chip: 8 parallel outputs, which is exactly
	// the octant resolution PositionBar wants from a single device.
	pinCount = 8
)

// ErrNotImplemented is returned by the gpio.Group methods a write-only
// shift register cannot honor (Read, WaitForEdge).
var ErrNotImplemented = errors.New("nxp74hc595: not implemented")

// Dev is an initialized 74HC595, its 8 outputs exposed as individual
// gpio.PinOut values plus, via Group, a single-transaction write surface
// over any subset of them.
type Dev struct {
	pins [pinCount]*Pin

	mu    sync.Mutex
	conn  spi.Conn
	value gpio.GPIOValue
}

// New wires conn as a new Dev. It issues no SPI transaction; the first
// write always goes out, since the cached latch starts at an impossible
// value.
func New(conn spi.Conn) (*Dev, error) {
	dev := &Dev{conn: conn, value: gpio.GPIOValue(1 << 9)} // impossible value: forces the first write through
	for ix := range dev.pins {
		dev.pins[ix] = &Pin{number: ix, name: fmt.Sprintf("%s_GPO%d", devName, ix), dev: dev}
	}
	return dev, nil
}

// write recomputes the device's 8-bit output latch from value/mask and,
// only if it actually changed, shifts it out in one SPI transaction.
func (dev *Dev) write(value, mask gpio.GPIOValue) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	newValue := (dev.value &^ mask) | (value & mask)
	if dev.value == newValue {
		return nil
	}
	if err := dev.conn.Tx([]byte{byte(newValue)}, nil); err != nil {
		return err
	}
	dev.value = newValue
	return nil
}

// Group claims a subset of the device's 8 outputs (by pin number) as a
// gpio.Group that can be driven in one transaction. PositionBar claims
// all 8 at construction time.
func (dev *Dev) Group(pins ...int) (gpio.Group, error) {
	dev.mu.Lock()
	halted := dev.conn == nil
	dev.mu.Unlock()
	if halted {
		return nil, errors.New("nxp74hc595: device halted")
	}
	gr := &Group{dev: dev, pins: make([]*Pin, len(pins))}
	for ix, n := range pins {
		if n < 0 || n >= pinCount {
			return nil, fmt.Errorf("nxp74hc595: pin %d out of range", n)
		}
		gr.pins[ix] = dev.pins[n]
	}
	return gr, nil
}

// Halt implements conn.Resource: the output latch is left as-is (it's
// SPI-shadowed, not reset by the host going away), but the device no
// longer hands out pins.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.conn = nil
	return nil
}

func (dev *Dev) String() string { return devName }

// Group is a set of this device's output pins that can be written in a
// single SPI transaction, implementing gpio.Group.
type Group struct {
	dev  *Dev
	pins []*Pin
}

// Pins returns the group's members in claim order.
func (gr *Group) Pins() []pin.Pin {
	out := make([]pin.Pin, len(gr.pins))
	for ix, p := range gr.pins {
		out[ix] = p
	}
	return out
}

// ByOffset returns the pin at the given position within the group.
func (gr *Group) ByOffset(offset int) pin.Pin {
	if offset < 0 || offset >= len(gr.pins) {
		return nil
	}
	return gr.pins[offset]
}

// ByName returns the group member with the given pin name, or nil.
func (gr *Group) ByName(name string) pin.Pin {
	for _, p := range gr.pins {
		if p.name == name {
			return p
		}
	}
	return nil
}

// ByNumber returns the group member with the given device-wide pin
// number, or nil.
func (gr *Group) ByNumber(number int) pin.Pin {
	for _, p := range gr.pins {
		if p.number == number {
			return p
		}
	}
	return nil
}

// Out writes value to the group's pins in a single SPI transaction. Bits
// of value/mask are indexed by position within the group, not by the
// underlying device pin number; a zero mask means "all of the group's
// pins". This is the only method PositionBar calls.
func (gr *Group) Out(value, mask gpio.GPIOValue) error {
	if mask == 0 {
		mask = gpio.GPIOValue(1<<len(gr.pins)) - 1
	}
	var wrMask, wrValue gpio.GPIOValue
	for ix, p := range gr.pins {
		bit := gpio.GPIOValue(1 << ix)
		if mask&bit != 0 {
			wrMask |= gpio.GPIOValue(1 << p.number)
		}
		if value&bit != 0 {
			wrValue |= gpio.GPIOValue(1 << p.number)
		}
	}
	return gr.dev.write(wrValue, wrMask)
}

// Read is not available: the 74HC595 has no input path.
func (gr *Group) Read(gpio.GPIOValue) (gpio.GPIOValue, error) {
	return 0, ErrNotImplemented
}

// WaitForEdge is not available: the 74HC595 has no input path.
func (gr *Group) WaitForEdge(time.Duration) (int, gpio.Edge, error) {
	return 0, gpio.NoEdge, ErrNotImplemented
}

// Halt releases the group without touching the device's output latch.
func (gr *Group) Halt() error {
	gr.pins = nil
	return nil
}

func (gr *Group) String() string {
	s := gr.dev.String() + "["
	for ix, p := range gr.pins {
		if ix > 0 {
			s += " "
		}
		s += fmt.Sprintf("%d", p.number)
	}
	return s + "]"
}

var (
	_ gpio.PinOut = (*Pin)(nil)
	_ gpio.Group  = (*Group)(nil)
)
