// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package revtimer turns a stream of hall-sensor pulse timestamps into a
// stable revolution period and an adaptive angular slot width, rejecting
// outliers the way a rotating display's timing reference must: cheaply,
// without retries, and without ever blocking the caller that delivers the
// pulse.
//
// The grounding for the outlier-rejection policy and the rolling-window
// smoothing is the original firmware's RevolutionTimer (see
// _examples/original_source/led_display/include/RevolutionTimer.h); the
// atomic-snapshot discipline follows the same "brief critical section, never
// held across I/O" rule the teacher package (periph-devices) uses for every
// device's shared mutable state.
package revtimer

import (
	"sync"
	"time"
)

// Timestamp is a monotonically non-decreasing microsecond counter supplied
// by the platform. It never wraps during a session.
type Timestamp uint64

// Interval is the difference of two Timestamps, always >= 0.
type Interval uint64

// OutlierClass categorizes a rejected pulse.
type OutlierClass int

const (
	// OutlierNone means the pulse was accepted.
	OutlierNone OutlierClass = iota
	// OutlierTooFast means Δ was below MinReasonableInterval.
	OutlierTooFast
	// OutlierTooSlow means Δ/smoothed exceeded MaxRatio (a likely missed pulse).
	OutlierTooSlow
	// OutlierRatioLow means Δ/smoothed was below MinRatio.
	OutlierRatioLow
)

func (c OutlierClass) String() string {
	switch c {
	case OutlierTooFast:
		return "too_fast"
	case OutlierTooSlow:
		return "too_slow"
	case OutlierRatioLow:
		return "ratio_low"
	default:
		return "none"
	}
}

// ValidSlotWidths are the only angular slot widths the scheduler may pick,
// in tenths of a degree. Every entry divides 3600 evenly so slots_per_rev *
// slot_width_units == 3600 exactly, permitting integer angle arithmetic
// without drift. Widening this table only ever adds entries; removing one
// must preserve exact division of 3600.
var ValidSlotWidths = [...]int{5, 10, 15, 20, 25, 30, 40, 45, 50, 60, 80, 90, 100, 120, 150, 180, 200}

const defaultSlotWidth = 30

// Config holds the tunables a Timer is constructed with. Zero values are
// replaced with the defaults documented on each field.
type Config struct {
	// Warmup is the number of accepted revolutions required, in addition to
	// a full rolling window, before State.WarmupDone becomes true. Default 20.
	Warmup int

	// RotationTimeout is the gap after which a timer declares the disc not
	// rotating. Default 3s; the original firmware used 10s to support
	// hand-spun warm-up, configurable per installation.
	RotationTimeout time.Duration

	// MinReasonableInterval is the hard floor below which a pulse is
	// rejected as physically impossible bounce/noise. Default 2ms.
	MinReasonableInterval Interval

	// MaxRatio and MinRatio bound Δ/smoothed_interval for ratio-based
	// rejection. Defaults 2.5 and 0.4.
	MaxRatio, MinRatio float64

	// SafetyMargin multiplies the pipeline's bottleneck stage time before
	// it's converted to a minimum slot width. Default 1.5.
	SafetyMargin float64

	// SlowAnchor and FastAnchor are revolution periods that bound the
	// rolling-window size interpolation (§4.1): at SlowAnchor or slower the
	// window is 20 samples (stability), at FastAnchor or faster it's 2
	// samples (responsiveness). Defaults 200ms and 10ms.
	SlowAnchor, FastAnchor Interval

	// SlowSpeedThreshold marks the revolution period above which a caller
	// may want to reduce visual complexity (hand-spin mode). Default 300ms.
	SlowSpeedThreshold Interval
}

func (c *Config) setDefaults() {
	if c.Warmup == 0 {
		c.Warmup = 20
	}
	if c.RotationTimeout == 0 {
		c.RotationTimeout = 3 * time.Second
	}
	if c.MinReasonableInterval == 0 {
		c.MinReasonableInterval = 2000
	}
	if c.MaxRatio == 0 {
		c.MaxRatio = 2.5
	}
	if c.MinRatio == 0 {
		c.MinRatio = 0.4
	}
	if c.SafetyMargin == 0 {
		c.SafetyMargin = 1.5
	}
	if c.SlowAnchor == 0 {
		c.SlowAnchor = 200_000
	}
	if c.FastAnchor == 0 {
		c.FastAnchor = 10_000
	}
	if c.SlowSpeedThreshold == 0 {
		c.SlowSpeedThreshold = 300_000
	}
}

// State is an atomic snapshot of a Timer, safe to read from any goroutine.
// Two successive snapshots with no pulses accepted in between are equal.
type State struct {
	LastPulseT      Timestamp
	LastRawInterval Interval
	SmoothedInterval Interval
	RevCount        uint64
	Rotating        bool
	WarmupDone      bool
	SlowSpeedMode   bool
	SlotWidthUnits  int
}

// RPM returns the revolutions-per-minute implied by SmoothedInterval, or 0
// if not rotating.
func (s State) RPM() float64 {
	if s.SmoothedInterval == 0 {
		return 0
	}
	return 60_000_000.0 / float64(s.SmoothedInterval)
}

// Timer ingests hall pulse timestamps and reports a stable revolution period
// plus a committed slot width. The pulse-acceptance path (add_pulse) is the
// single writer; every other goroutine reads only through Snapshot.
type Timer struct {
	cfg Config

	mu               sync.Mutex
	lastPulseT       Timestamp
	haveLastPulse    bool
	lastRawInterval  Interval
	smoothedInterval Interval
	revCount         uint64
	rotating         bool
	slotWidthUnits   int

	tooFast, tooSlow, ratioLow uint64

	// rollingAvg is touched only by AddPulse's goroutine.
	rollingAvg rollingAverage

	// renderAvg/outputAvg are written by their respective recording
	// goroutines (RenderWorker and OutputWorker in package pipeline) and
	// read by AddPulse's slot-width selection, always under mu.
	renderAvg rollingAverage
	outputAvg rollingAverage
}

// New creates a Timer ready to accept pulses.
func New(cfg Config) *Timer {
	cfg.setDefaults()
	return &Timer{cfg: cfg, slotWidthUnits: defaultSlotWidth}
}

// AddPulse ingests one hall pulse timestamp. It is safe to call from a
// pulse-event context (an interrupt bottom half) as long as that context can
// tolerate a brief mutex critical section; AddPulse never blocks on I/O.
//
// Returns the outlier classification: OutlierNone if the pulse was accepted.
func (t *Timer) AddPulse(now Timestamp) OutlierClass {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.haveLastPulse {
		// First observation: seed the reference point, no interval yet (B2).
		t.lastPulseT = now
		t.haveLastPulse = true
		t.rotating = true
		return OutlierNone
	}

	delta := Interval(now - t.lastPulseT)

	if delta < t.cfg.MinReasonableInterval {
		t.tooFast++
		return OutlierTooFast
	}

	if delta > Interval(t.cfg.RotationTimeout.Microseconds()) {
		t.lastPulseT = now
		t.rotating = false
		t.revCount = 0
		t.smoothedInterval = 0
		t.lastRawInterval = 0
		t.rollingAvg.reset()
		t.renderAvg.reset()
		t.outputAvg.reset()
		t.slotWidthUnits = defaultSlotWidth
		return OutlierNone
	}

	if t.smoothedInterval > 0 {
		ratio := float64(delta) / float64(t.smoothedInterval)
		if ratio > t.cfg.MaxRatio {
			// Likely missed a trigger: resync the reference point but do not
			// accept this interval into the average.
			t.lastPulseT = now
			t.tooSlow++
			return OutlierTooSlow
		}
		if ratio < t.cfg.MinRatio {
			t.ratioLow++
			return OutlierRatioLow
		}
	}

	t.lastPulseT = now

	t.rotating = true
	t.revCount++
	t.lastRawInterval = delta
	t.rollingAvg.add(float64(delta))

	window := t.windowSize(delta)
	t.smoothedInterval = Interval(t.rollingAvg.recent(window))
	t.slotWidthUnits = t.selectSlotWidth()

	return OutlierNone
}

// windowSize linearly interpolates the rolling-average window between 20
// samples (interval at or above SlowAnchor) and 2 samples (interval at or
// below FastAnchor).
func (t *Timer) windowSize(interval Interval) int {
	slow, fast := t.cfg.SlowAnchor, t.cfg.FastAnchor
	if interval >= slow {
		return 20
	}
	if interval <= fast {
		return 2
	}
	rng := float64(slow - fast)
	pos := float64(interval - fast)
	return 20 - int(18*pos/rng)
}

// selectSlotWidth implements §4.1's adaptive slot-width selection: the
// smallest valid width whose time budget covers the pipeline's bottleneck
// stage, given the current rotation speed.
func (t *Timer) selectSlotWidth() int {
	if t.smoothedInterval == 0 {
		return defaultSlotWidth
	}
	usPerDegree := float64(t.smoothedInterval) / 360.0
	renderAvg := t.renderAvg.recent(t.renderAvg.count)
	outputAvg := t.outputAvg.recent(t.outputAvg.count)
	stage := renderAvg
	if outputAvg > stage {
		stage = outputAvg
	}
	stageTime := stage * t.cfg.SafetyMargin
	minDegrees := stageTime / usPerDegree

	for _, w := range ValidSlotWidths {
		if float64(w)/10.0 >= minDegrees {
			return w
		}
	}
	return ValidSlotWidths[len(ValidSlotWidths)-1]
}

// RecordRenderTime feeds one render-stage duration into the adaptive
// slot-width rolling average. Called by RenderWorker after each Effect.Render returns.
func (t *Timer) RecordRenderTime(dt Interval) {
	t.mu.Lock()
	t.renderAvg.add(float64(dt))
	t.mu.Unlock()
}

// RecordOutputTime feeds one output-stage duration (copy + transfer,
// excluding the busy-wait) into the adaptive slot-width rolling average. Called by
// OutputWorker after each LED transfer completes.
func (t *Timer) RecordOutputTime(dt Interval) {
	t.mu.Lock()
	t.outputAvg.add(float64(dt))
	t.mu.Unlock()
}

// Snapshot atomically reads all timer state. Callers outside the
// pulse-acceptance path must use this instead of individual accessors.
func (t *Timer) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		LastPulseT:       t.lastPulseT,
		LastRawInterval:  t.lastRawInterval,
		SmoothedInterval: t.smoothedInterval,
		RevCount:         t.revCount,
		Rotating:         t.rotating,
		WarmupDone:       t.revCount >= uint64(t.cfg.Warmup) && t.rollingAvg.isFull(),
		SlowSpeedMode:    t.rotating && t.smoothedInterval > t.cfg.SlowSpeedThreshold,
		SlotWidthUnits:   t.slotWidthUnits,
	}
}

// OutlierCounts returns the accumulated outlier counters by class.
func (t *Timer) OutlierCounts() (tooFast, tooSlow, ratioLow uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tooFast, t.tooSlow, t.ratioLow
}

// Reset zeroes all timing state without destroying the Timer. Used at
// session start and when an external collaborator signals a hard restart.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastPulseT = 0
	t.haveLastPulse = false
	t.lastRawInterval = 0
	t.smoothedInterval = 0
	t.revCount = 0
	t.rotating = false
	t.slotWidthUnits = defaultSlotWidth
	t.tooFast, t.tooSlow, t.ratioLow = 0, 0, 0
	t.rollingAvg.reset()
	t.renderAvg.reset()
	t.outputAvg.reset()
}
