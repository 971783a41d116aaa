// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pipeline

import (
	"time"

	"github.com/windrose/povcore/effect"
	"github.com/windrose/povcore/revtimer"
	"github.com/windrose/povcore/slotsched"
	"github.com/windrose/povcore/statssink"
)

// Phase offsets are physical constants of the machine's wiring: arm 0 sits
// at +240° from the hall sensor, arm 1 is the sensor's own reference, arm
// 2 sits at +120°.
const (
	OuterPhase  = slotsched.OuterPhase
	InsidePhase = slotsched.InsidePhase
)

// RenderWorkerConfig bundles a RenderWorker's collaborators and tunables.
type RenderWorkerConfig struct {
	Timer      *revtimer.Timer
	Dispatcher *effect.Dispatcher
	Pool       *BufferPool
	Stats      *statssink.Aggregator

	// Now returns the current monotonic microsecond clock. Required.
	Now func() revtimer.Timestamp

	// AcquireTimeout bounds BufferPool.AcquireWrite. Default 100ms.
	AcquireTimeout time.Duration

	// IdleSleep is how long RenderWorker sleeps between checks while not
	// rotating or still warming up. Default 10ms.
	IdleSleep time.Duration
}

func (c *RenderWorkerConfig) setDefaults() {
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = 100 * time.Millisecond
	}
	if c.IdleSleep == 0 {
		c.IdleSleep = 10 * time.Millisecond
	}
}

// RenderWorker runs the render side of the pipeline: pick the next slot,
// populate a buffer, call the active effect, release the buffer. It is
// meant to be pinned to one core and run in its own goroutine via Run.
type RenderWorker struct {
	cfg      RenderWorkerConfig
	lastSlot int
	lastT    revtimer.Timestamp
	// frameCount is owned entirely by this worker's goroutine (Step is
	// never called concurrently with itself), so it needs no locking even
	// though it outlives any one pooled buffer — unlike the buffer's own
	// Context, which is reused across frames, this counter must stay
	// monotonic across both buffers for a frame number to mean anything.
	frameCount uint32
}

// NewRenderWorker constructs a RenderWorker ready for Run or single-step
// iteration via Step.
func NewRenderWorker(cfg RenderWorkerConfig) *RenderWorker {
	cfg.setDefaults()
	return &RenderWorker{cfg: cfg, lastSlot: -1}
}

// Run loops Step until stop is closed.
func (w *RenderWorker) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
			w.Step()
		}
	}
}

// Step executes exactly one iteration of the algorithm in §4.3. It never
// blocks longer than AcquireTimeout plus the timer's snapshot critical
// section.
func (w *RenderWorker) Step() {
	snap := w.cfg.Timer.Snapshot()
	if !snap.Rotating || !snap.WarmupDone {
		w.lastSlot = -1
		if w.cfg.Stats != nil {
			w.cfg.Stats.RecordNotRotating()
		}
		time.Sleep(w.cfg.IdleSleep)
		return
	}

	w.cfg.Dispatcher.Drain()

	now := w.cfg.Now()
	target := slotsched.Next(snap, w.lastSlot, now)

	if now > target.TargetT {
		if w.cfg.Stats != nil {
			w.cfg.Stats.RecordSkipped()
		}
		w.lastSlot = target.Slot
		return
	}

	lease, err := w.cfg.Pool.AcquireWrite(w.cfg.AcquireTimeout)
	if err != nil {
		if w.cfg.Stats != nil {
			w.cfg.Stats.RecordSkipped()
		}
		return
	}

	ctx := lease.Context()
	w.frameCount++
	ctx.FrameNumber = w.frameCount
	ctx.FrameDeltaUs = uint64(now - w.lastT)
	w.lastT = now
	ctx.FrameTUs = uint64(now)
	ctx.RevolutionPeriodUs = uint64(snap.SmoothedInterval)
	ctx.SlotWidthUnits = snap.SlotWidthUnits
	ctx.Arms[0].AngleUnits = wrapAngle(target.AngleUnits + OuterPhase)
	ctx.Arms[1].AngleUnits = wrapAngle(target.AngleUnits)
	ctx.Arms[2].AngleUnits = wrapAngle(target.AngleUnits + InsidePhase)

	renderStart := w.cfg.Now()
	w.cfg.Dispatcher.Render(ctx)
	renderDt := w.cfg.Now() - renderStart
	w.cfg.Timer.RecordRenderTime(revtimer.Interval(renderDt))

	w.cfg.Pool.ReleaseWrite(lease, target.TargetT)
	if w.cfg.Stats != nil {
		w.cfg.Stats.RecordRendered()
		w.cfg.Stats.SetGauges(w.cfg.Dispatcher.ActiveIndex(), w.cfg.Dispatcher.Brightness())
	}

	w.lastSlot = target.Slot
}

func wrapAngle(a int) int {
	a %= 3600
	if a < 0 {
		a += 3600
	}
	return a
}
