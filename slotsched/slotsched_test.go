// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package slotsched

import (
	"testing"

	"github.com/windrose/povcore/revtimer"
)

func TestNextAdvancesAndWraps(t *testing.T) {
	snap := revtimer.State{
		LastPulseT:       1_000_000,
		LastRawInterval:  36000,
		SmoothedInterval: 36000,
		SlotWidthUnits:   30, // 120 slots per revolution
	}

	tgt := Next(snap, -1, 1_000_000)
	if tgt.Slot != 0 || tgt.AngleUnits != 0 {
		t.Fatalf("first slot = %+v, want slot 0 angle 0", tgt)
	}

	tgt = Next(snap, 0, 1_000_000)
	if tgt.Slot != 1 || tgt.AngleUnits != 30 {
		t.Fatalf("second slot = %+v, want slot 1 angle 30", tgt)
	}

	last := SlotsPerRevolution(30) - 1
	tgt = Next(snap, last, 1_000_000)
	if tgt.Slot != 0 {
		t.Fatalf("wrap slot = %d, want 0", tgt.Slot)
	}
}

func TestSlotsPerRevolutionDividesExactly(t *testing.T) {
	for _, w := range revtimer.ValidSlotWidths {
		n := SlotsPerRevolution(w)
		if n*w != 3600 {
			t.Fatalf("width %d: %d slots * width != 3600 (got %d)", w, n, n*w)
		}
	}
}

func TestTargetTComputation(t *testing.T) {
	snap := revtimer.State{
		LastPulseT:       0,
		LastRawInterval:  36000,
		SmoothedInterval: 36000,
		SlotWidthUnits:   30,
	}
	// slot 1 -> angle 30 tenths-of-degree -> target_t = 0 + 30*36000/3600 = 300
	tgt := Next(snap, 0, 0)
	if tgt.TargetT != 300 {
		t.Fatalf("target_t = %d, want 300", tgt.TargetT)
	}
}

func TestWrapCompensation(t *testing.T) {
	snap := revtimer.State{
		LastPulseT:       0,
		LastRawInterval:  36000,
		SmoothedInterval: 36000,
		SlotWidthUnits:   30,
	}
	// raw target_t for slot 1 is 300; if "now" is already far past that
	// (more than half the interval, 18000), the target must refer to the
	// next lap: 300 + 36000 = 36300.
	tgt := Next(snap, 0, 30000)
	if tgt.TargetT != 36300 {
		t.Fatalf("target_t = %d, want 36300 (wrapped)", tgt.TargetT)
	}
}

func TestNoWrapWhenOnlySlightlyBehind(t *testing.T) {
	snap := revtimer.State{
		LastPulseT:       0,
		LastRawInterval:  36000,
		SmoothedInterval: 36000,
		SlotWidthUnits:   30,
	}
	// now is only 200 past the raw target_t (300), well under half the
	// interval (18000): no wrap should be applied.
	tgt := Next(snap, 0, 500)
	if tgt.TargetT != 300 {
		t.Fatalf("target_t = %d, want 300 (no wrap)", tgt.TargetT)
	}
}

func TestFallsBackToSmoothedInterval(t *testing.T) {
	snap := revtimer.State{
		LastPulseT:       0,
		LastRawInterval:  0,
		SmoothedInterval: 36000,
		SlotWidthUnits:   30,
	}
	tgt := Next(snap, 0, 0)
	if tgt.TargetT != 300 {
		t.Fatalf("target_t = %d, want 300 using smoothed interval fallback", tgt.TargetT)
	}
}

func TestZeroSlotWidthUsesDefault(t *testing.T) {
	snap := revtimer.State{}
	tgt := Next(snap, -1, 0)
	if tgt.Slot != 0 {
		t.Fatalf("slot = %d, want 0", tgt.Slot)
	}
	if SlotsPerRevolution(0) != 3600/defaultSlotWidth {
		t.Fatalf("default slots per rev mismatch")
	}
}
