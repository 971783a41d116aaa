// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package revtimer

import "testing"

// TestSteadyState exercises scenario S1 from the specification: 20ms pulses
// settle into a stable smoothed interval, and a render/output stage time of
// 400/350us with the default 1.5x safety margin selects the smallest slot
// width whose angular budget covers that stage time at the settled speed.
func TestSteadyState(t *testing.T) {
	tm := New(Config{})

	now := Timestamp(0)
	for i := 0; i < 21; i++ {
		class := tm.AddPulse(now)
		if i > 0 && class != OutlierNone {
			t.Fatalf("pulse %d: unexpected rejection %v", i, class)
		}
		now += 20000
		tm.RecordRenderTime(400)
		tm.RecordOutputTime(350)
	}

	snap := tm.Snapshot()
	if !snap.Rotating {
		t.Fatal("expected rotating=true")
	}
	if !snap.WarmupDone {
		t.Fatal("expected warmup complete after 20 accepted revolutions")
	}
	if snap.SmoothedInterval != 20000 {
		t.Fatalf("smoothed interval = %d, want 20000", snap.SmoothedInterval)
	}
	// us_per_degree = 20000/360 = 55.56; stage_time = 400*1.5 = 600us;
	// min_degrees = 600/55.56 = 10.8 degrees = 108 tenths-of-degree; the
	// smallest table entry >= 108 is 120.
	if snap.SlotWidthUnits != 120 {
		t.Fatalf("slot width = %d, want 120", snap.SlotWidthUnits)
	}
	if 3600%snap.SlotWidthUnits != 0 {
		t.Fatalf("slot width %d does not divide 3600 evenly", snap.SlotWidthUnits)
	}
}

// TestTooFastRejected exercises S2: a spurious pulse well inside the noise
// floor is rejected without moving the reference timestamp.
func TestTooFastRejected(t *testing.T) {
	tm := New(Config{})
	tm.AddPulse(0)
	tm.AddPulse(20000)

	class := tm.AddPulse(20100) // delta = 100 < MinReasonableInterval (2000)
	if class != OutlierTooFast {
		t.Fatalf("class = %v, want OutlierTooFast", class)
	}
	snap := tm.Snapshot()
	if snap.LastPulseT != 20000 {
		t.Fatalf("LastPulseT = %d, want unchanged at 20000", snap.LastPulseT)
	}
	_, tooSlow, _ := tm.OutlierCounts()
	if tooSlow != 0 {
		t.Fatalf("tooSlow = %d, want 0", tooSlow)
	}
}

// TestMissedPulseResyncs exercises S3: a pulse whose ratio exceeds MaxRatio
// is rejected as a likely missed trigger but still resyncs last_pulse_t.
func TestMissedPulseResyncs(t *testing.T) {
	tm := New(Config{})
	// 21 timestamps 20ms apart drive smoothed_interval to exactly 20000 (every
	// accepted delta equals 20000, so the average can't drift).
	for i := 0; i < 21; i++ {
		tm.AddPulse(Timestamp(i) * 20000)
	}
	last := tm.Snapshot().SmoothedInterval
	if last != 20000 {
		t.Fatalf("setup: smoothed interval = %d, want 20000", last)
	}

	class := tm.AddPulse(400000 + 50000) // delta=50000, ratio=2.5 exactly: not > 2.5
	if class != OutlierNone {
		t.Fatalf("ratio==MaxRatio exactly should be accepted, got %v", class)
	}

	lastT := tm.Snapshot().LastPulseT
	class = tm.AddPulse(lastT + 60000) // ratio clearly above MaxRatio
	if class != OutlierTooSlow {
		t.Fatalf("class = %v, want OutlierTooSlow", class)
	}
	snap := tm.Snapshot()
	if snap.LastPulseT != lastT+60000 {
		t.Fatalf("LastPulseT = %d, want resynced to %d", snap.LastPulseT, lastT+60000)
	}
}

// TestRatioLowRejected checks the MinRatio floor independently of the
// absolute MinReasonableInterval floor.
func TestRatioLowRejected(t *testing.T) {
	tm := New(Config{})
	for i := 0; i < 25; i++ {
		tm.AddPulse(Timestamp(i) * 20000)
	}
	last := tm.Snapshot().LastPulseT

	// Smoothed interval is 20000us: pick a delta above MinReasonableInterval
	// whose ratio is below MinRatio (0.4), i.e. ratio-low but not too-fast.
	class := tm.AddPulse(last + 7000) // ratio = 0.35 < 0.4, delta 7000 > 2000 floor
	if class != OutlierRatioLow {
		t.Fatalf("class = %v, want OutlierRatioLow", class)
	}
	if tm.Snapshot().LastPulseT != last {
		t.Fatal("LastPulseT must not move on ratio-low rejection")
	}
}

// TestRotationTimeout checks that a long gap declares not-rotating and
// resets smoothing.
func TestRotationTimeout(t *testing.T) {
	tm := New(Config{})
	for i := 0; i < 25; i++ {
		tm.AddPulse(Timestamp(i) * 20000)
	}
	last := tm.Snapshot().LastPulseT

	tm.AddPulse(last + 5_000_000) // 5s gap exceeds default 3s timeout
	snap := tm.Snapshot()
	if snap.Rotating {
		t.Fatal("expected rotating=false after long gap")
	}
	if snap.RevCount != 0 {
		t.Fatalf("RevCount = %d, want 0 after timeout reset", snap.RevCount)
	}
}

// TestFirstPulseSeeds exercises B2/edge case: the very first pulse has no
// prior reference and must be accepted unconditionally.
func TestFirstPulseSeeds(t *testing.T) {
	tm := New(Config{})
	class := tm.AddPulse(12345)
	if class != OutlierNone {
		t.Fatalf("first pulse must be accepted, got %v", class)
	}
	if tm.Snapshot().LastPulseT != 12345 {
		t.Fatal("first pulse must seed LastPulseT")
	}
}

// TestSnapshotPureFunction exercises R3: successive snapshots with no pulses
// in between are equal.
func TestSnapshotPureFunction(t *testing.T) {
	tm := New(Config{})
	tm.AddPulse(0)
	tm.AddPulse(20000)

	a := tm.Snapshot()
	b := tm.Snapshot()
	if a != b {
		t.Fatalf("snapshots differ with no intervening pulses: %+v vs %+v", a, b)
	}
}

func TestResetClearsButDoesNotDestroy(t *testing.T) {
	tm := New(Config{})
	for i := 0; i < 25; i++ {
		tm.AddPulse(Timestamp(i) * 20000)
	}
	tm.Reset()
	snap := tm.Snapshot()
	if snap.Rotating || snap.RevCount != 0 || snap.SmoothedInterval != 0 {
		t.Fatalf("Reset left nonzero state: %+v", snap)
	}
	// The timer must still work after reset.
	if class := tm.AddPulse(0); class != OutlierNone {
		t.Fatalf("post-reset pulse rejected: %v", class)
	}
}
