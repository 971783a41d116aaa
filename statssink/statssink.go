// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package statssink defines the CORE's optional diagnostics contract: a
// periodic counter snapshot, and an Aggregator that the pipeline updates
// every iteration without blocking, matching the specification's
// "opaque transport... not the CORE" boundary (§6).
package statssink

import "sync"

// Snapshot is the periodic report handed to a Sink. Rendered, Skipped and
// NotRotating are deltas since the last report; TooFast, TooSlow and
// RatioLow are passed through as the caller of Flush supplies them
// (revtimer.Timer.OutlierCounts reports running totals); RevCount and the
// gauges (CurrentEffect, CurrentBrightness) are absolute.
type Snapshot struct {
	RevCount uint64

	TooFast  uint64
	TooSlow  uint64
	RatioLow uint64

	Rendered    uint64
	Skipped     uint64
	NotRotating uint64

	CurrentEffect     int
	CurrentBrightness int
}

// Sink consumes periodic Snapshots. Typical installations send these over
// a wireless RPC from a timer goroutine that is not part of the CORE's
// pipeline; the CORE never depends on a Sink being present.
type Sink interface {
	Report(Snapshot)
}

// Aggregator accumulates the raw counters the pipeline and timer produce
// between reports, then hands a delta Snapshot to zero or more Sinks.
// Updates are safe for concurrent use from RenderWorker/OutputWorker; Flush
// is expected to be called from a single periodic reporter goroutine.
type Aggregator struct {
	mu sync.Mutex

	rendered, skipped, notRotating uint64

	currentEffect     int
	currentBrightness int
}

// RecordRendered increments the rendered-frame counter.
func (a *Aggregator) RecordRendered() {
	a.mu.Lock()
	a.rendered++
	a.mu.Unlock()
}

// RecordSkipped increments the skip counter (buffer timeout or late slot).
func (a *Aggregator) RecordSkipped() {
	a.mu.Lock()
	a.skipped++
	a.mu.Unlock()
}

// RecordNotRotating increments the not-rotating idle counter.
func (a *Aggregator) RecordNotRotating() {
	a.mu.Lock()
	a.notRotating++
	a.mu.Unlock()
}

// SetGauges updates the absolute gauges reported alongside the deltas.
func (a *Aggregator) SetGauges(currentEffect, currentBrightness int) {
	a.mu.Lock()
	a.currentEffect = currentEffect
	a.currentBrightness = currentBrightness
	a.mu.Unlock()
}

// LiveCounts returns the rendered/skipped/not-rotating counters as they
// stand right now, without resetting them — unlike Flush, which is meant
// for the one periodic reporter goroutine, LiveCounts is safe for the
// output worker to poll every frame to drive a live diagnostic overlay.
func (a *Aggregator) LiveCounts() (rendered, skipped, notRotating uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rendered, a.skipped, a.notRotating
}

// Flush builds a Snapshot from the revolution/outlier counters (supplied
// by the caller from revtimer.Timer, which owns them) and the pipeline
// deltas accumulated since the last Flush, then zeroes the deltas.
func (a *Aggregator) Flush(revCount, tooFast, tooSlow, ratioLow uint64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := Snapshot{
		RevCount:          revCount,
		TooFast:           tooFast,
		TooSlow:           tooSlow,
		RatioLow:          ratioLow,
		Rendered:          a.rendered,
		Skipped:           a.skipped,
		NotRotating:       a.notRotating,
		CurrentEffect:     a.currentEffect,
		CurrentBrightness: a.currentBrightness,
	}
	a.rendered, a.skipped, a.notRotating = 0, 0, 0
	return snap
}

// Report fans a Snapshot out to every registered Sink, in registration
// order. A nil or panicking Sink is the caller's problem to avoid; this
// mirrors how the teacher's own multi-listener patterns (e.g.
// videosink's client broadcast) have no built-in isolation between
// listeners either.
func Report(sinks []Sink, snap Snapshot) {
	for _, s := range sinks {
		s.Report(snap)
	}
}
