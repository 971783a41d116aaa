// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pipeline

import (
	"time"

	"github.com/windrose/povcore/effect"
	"github.com/windrose/povcore/ledsink"
	"github.com/windrose/povcore/revtimer"
	"github.com/windrose/povcore/statssink"
)

// OutputWorkerConfig bundles an OutputWorker's collaborators and tunables.
type OutputWorkerConfig struct {
	Pool       *BufferPool
	Sink       ledsink.Sink
	Map        ledsink.Map
	Dispatcher *effect.Dispatcher
	Stats      *statssink.Aggregator
	Guard      *StallGuard

	// Now returns the current monotonic microsecond clock. Required.
	Now func() revtimer.Timestamp

	// RecordOutputTime feeds a stage duration into the timer's
	// adaptive slot-width rolling average. Required.
	RecordOutputTime func(revtimer.Interval)

	// AcquireTimeout bounds BufferPool.AcquireRead. Default 100ms.
	AcquireTimeout time.Duration

	// BusyWaitYield is how long each busy-wait spin sleeps between checks
	// of the clock, trading CPU burn for timer granularity. A value of 0
	// spins without yielding at all (tightest precision, most CPU).
	BusyWaitYield time.Duration
}

func (c *OutputWorkerConfig) setDefaults() {
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = 100 * time.Millisecond
	}
}

// OutputWorker runs the output side of the pipeline: acquire a rendered
// buffer, translate it to the LED bus, busy-wait for the slot's target
// time, then fire the transfer. Meant to be pinned to the core
// RenderWorker doesn't use and run in its own goroutine via Run.
type OutputWorker struct {
	cfg OutputWorkerConfig
}

// NewOutputWorker constructs an OutputWorker ready for Run or Step.
func NewOutputWorker(cfg OutputWorkerConfig) *OutputWorker {
	cfg.setDefaults()
	return &OutputWorker{cfg: cfg}
}

// Run loops Step until stop is closed.
func (w *OutputWorker) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
			w.Step()
		}
	}
}

// Step executes exactly one iteration of the algorithm in §4.3.
func (w *OutputWorker) Step() {
	if w.cfg.Guard != nil {
		w.cfg.Guard.Feed()
	}

	lease, err := w.cfg.Pool.AcquireRead(w.cfg.AcquireTimeout)
	if err != nil {
		if w.cfg.Stats != nil {
			w.cfg.Stats.RecordSkipped()
		}
		return
	}

	copyStart := w.cfg.Now()
	ctx := lease.Context()
	scalar := uint8(255)
	if w.cfg.Dispatcher != nil {
		scalar = w.cfg.Dispatcher.BrightnessScalar()
		if w.cfg.Stats != nil && w.cfg.Dispatcher.StatsOverlayEnabled() {
			rendered, skipped, notRotating := w.cfg.Stats.LiveCounts()
			overlayStats(ctx, rendered, skipped, notRotating)
		}
	}
	if err := ledsink.Translate(ctx, w.cfg.Map, scalar, w.cfg.Sink); err != nil {
		w.cfg.Pool.ReleaseRead(lease)
		return
	}
	copyDt := w.cfg.Now() - copyStart

	w.cfg.Pool.ReleaseRead(lease)

	w.busyWaitUntil(lease.TargetT())

	transferStart := w.cfg.Now()
	_ = w.cfg.Sink.Show()
	transferDt := w.cfg.Now() - transferStart

	if w.cfg.RecordOutputTime != nil {
		w.cfg.RecordOutputTime(revtimer.Interval(copyDt + transferDt))
	}
}

// busyWaitUntil spins until Now() reaches target. Busy-waiting, not
// blocking, is required because target_t precision is microsecond-scale
// and platform sleep granularity is coarser (§5); BusyWaitYield lets a
// caller trade a little precision for not pegging a CPU core at 100% when
// running this under a scheduler that actually has other work to do
// (e.g. under test, or on a desktop host simulating the pipeline).
func (w *OutputWorker) busyWaitUntil(target revtimer.Timestamp) {
	for w.cfg.Now() < target {
		if w.cfg.BusyWaitYield > 0 {
			time.Sleep(w.cfg.BusyWaitYield)
		}
	}
}
