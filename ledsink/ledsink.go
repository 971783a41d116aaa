// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ledsink defines the CORE's LedSink contract — the external
// collaborator OutputWorker writes physical LED colors into — plus the
// compile-time logical-to-physical index mapping every backend shares,
// and a handful of concrete backends grounded on the teacher's hardware
// drivers.
//
// Every backend satisfies conn.Resource (Halt), the same lifecycle
// contract every periph-devices driver implements.
package ledsink

import (
	"fmt"

	"periph.io/x/conn/v3"

	"github.com/windrose/povcore/rendercontext"
)

// ReservedBlackIndex is physical index 0, wired to the rotor's level
// shifter and never addressed by the CORE; backends must keep it dark.
const ReservedBlackIndex = 0

// PhysicalCount is the total number of addressable physical positions: the
// reserved index plus the 40 logical LEDs across all three arms.
const PhysicalCount = 1 + rendercontext.LedsArm0 + rendercontext.LedsArm1 + rendercontext.LedsArm2

// Sink is the contract an OutputWorker drives. Implementations own the
// wire protocol, bitstream generation, or preview rendering; the CORE
// only ever calls these four methods plus Halt.
type Sink interface {
	conn.Resource

	// SetPixel assigns a color to a physical index in [1, PhysicalCount).
	// Index 0 is reserved and must never be passed.
	SetPixel(physicalIndex int, c rendercontext.Color) error

	// Show latches every pending SetPixel call to the physical bus. The
	// sink holds its own internal buffer from this point, so the CORE's
	// RenderContext can be released back to the pool immediately after.
	Show() error
}

// ArmAwareSink is an optional extension a Sink implements when it needs
// each arm's current angular position to render something plausible, such
// as a polar preview. Translate checks for it with a type assertion, the
// same optional-interface idiom io.Copy uses for io.ReaderFrom/WriterTo.
type ArmAwareSink interface {
	// SetArmAngles receives the three arms' current angles in tenths of a
	// degree, in arm order, before any SetPixel calls for the frame.
	SetArmAngles(angles [3]int)
}

// Map translates a logical (arm, led) position to a physical index,
// honoring a per-arm reversal flag and per-arm offset, the same concept
// the original firmware's vendor-order LED mapping table encodes, just
// expressed as arithmetic instead of a literal array (see
// _examples/periph-devices/nxp74hc595 and max7219 for the teacher's own
// "logical position -> physical register" translation idiom).
type Map struct {
	// Offset[a] is the physical index of led 0 of arm a, before any
	// reversal is applied.
	Offset [3]int
	// Reversed[a], if true, maps led 0 of arm a to the highest physical
	// index in that arm's run instead of the lowest.
	Reversed [3]bool
	// Len[a] is the number of LEDs on arm a.
	Len [3]int
}

// DefaultMap lays the three arms out back-to-back in arm order, starting
// just after the reserved index 0, with no reversal. Installations whose
// wiring daisy-chains the arms in a different order or direction override
// this with their own Map.
func DefaultMap() Map {
	return Map{
		Offset:   [3]int{1, 1 + rendercontext.LedsArm0, 1 + rendercontext.LedsArm0 + rendercontext.LedsArm1},
		Reversed: [3]bool{false, false, false},
		Len:      [3]int{rendercontext.LedsArm0, rendercontext.LedsArm1, rendercontext.LedsArm2},
	}
}

// PhysicalIndex returns the physical index for logical (arm, led).
func (m Map) PhysicalIndex(arm, led int) int {
	if m.Reversed[arm] {
		led = m.Len[arm] - 1 - led
	}
	return m.Offset[arm] + led
}

// Brightness applies an 8-bit brightness scalar (0..255) to a color by
// simple linear scaling per channel, matching the teacher's apa102 ramp
// idiom of precomputing perceptual output from a stored scalar rather
// than reaching for a floating-point color library.
func Brightness(c rendercontext.Color, scalar uint8) rendercontext.Color {
	if scalar == 255 {
		return c
	}
	return rendercontext.Color{
		R: uint8(uint16(c.R) * uint16(scalar) / 255),
		G: uint8(uint16(c.G) * uint16(scalar) / 255),
		B: uint8(uint16(c.B) * uint16(scalar) / 255),
	}
}

// Translate copies every logical pixel of ctx onto sink using m for the
// index mapping and scalar for the runtime brightness scalar. It does not
// call Show; the caller commits the frame separately so the busy-wait for
// target_t can happen between Translate and Show if the backend needs it
// split that way (none of the ones in this package do, but the contract
// allows it).
func Translate(ctx *rendercontext.Context, m Map, scalar uint8, sink Sink) error {
	if aware, ok := sink.(ArmAwareSink); ok {
		aware.SetArmAngles([3]int{ctx.Arms[0].AngleUnits, ctx.Arms[1].AngleUnits, ctx.Arms[2].AngleUnits})
	}
	for arm := 0; arm < 3; arm++ {
		for led, c := range ctx.Arms[arm].Pixels {
			idx := m.PhysicalIndex(arm, led)
			if err := sink.SetPixel(idx, Brightness(c, scalar)); err != nil {
				return fmt.Errorf("ledsink: SetPixel(arm=%d, led=%d, physical=%d): %w", arm, led, idx, err)
			}
		}
	}
	return nil
}
