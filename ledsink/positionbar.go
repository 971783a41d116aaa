// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ledsink

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"

	"github.com/windrose/povcore/nxp74hc595"
	"github.com/windrose/povcore/rendercontext"
)

// positionBarOctants is the number of coarse angular buckets the bar can
// show; one 74HC595 exposes 8 parallel outputs (nxp74hc595.Dev has exactly
// 8 GPO pins), and a full 3600-unit circle divides evenly into 8 buckets
// of 450 units each.
const positionBarOctants = 8

// PositionBar is a secondary, auxiliary Sink: a ring of 8 plain on/off
// LEDs driven by a 74HC595 serial-to-parallel shift register, lighting
// whichever octant arm 0 currently occupies. It is not a color bus — the
// 74HC595 has no PWM — so it ignores SetPixel entirely and only reacts to
// SetArmAngles (ArmAwareSink), making it a cheap physical "is it actually
// spinning, and roughly where" indicator for installations without a
// dedicated diagnostics display. Chain it alongside a color Sink with
// Multi.
type PositionBar struct {
	group gpio.Group
	angle int
}

// NewPositionBar wraps an already-initialized nxp74hc595.Dev, claiming all
// 8 of its GPO pins as one write-in-one-transaction group.
func NewPositionBar(dev *nxp74hc595.Dev) (*PositionBar, error) {
	group, err := dev.Group(0, 1, 2, 3, 4, 5, 6, 7)
	if err != nil {
		return nil, fmt.Errorf("ledsink: position bar: %w", err)
	}
	return &PositionBar{group: group}, nil
}

// SetArmAngles implements ArmAwareSink.
func (p *PositionBar) SetArmAngles(angles [3]int) {
	p.angle = angles[0]
}

// SetPixel implements Sink; the bar carries no per-pixel color, so this is
// a no-op.
func (p *PositionBar) SetPixel(int, rendercontext.Color) error { return nil }

// Show implements Sink: it lights the single bit matching the octant arm
// 0 currently occupies.
func (p *PositionBar) Show() error {
	octant := (p.angle % 3600) / (3600 / positionBarOctants)
	bit := gpio.GPIOValue(1) << uint(octant)
	return p.group.Out(bit, 0xff)
}

// Halt implements conn.Resource, blanking the bar.
func (p *PositionBar) Halt() error {
	return p.group.Out(0, 0xff)
}

// String implements conn.Resource.
func (p *PositionBar) String() string { return "ledsink.PositionBar" }

var (
	_ Sink         = (*PositionBar)(nil)
	_ ArmAwareSink = (*PositionBar)(nil)
)
