// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package effect

import (
	"log"
	"sync"

	"github.com/windrose/povcore/rendercontext"
)

// commandQueueCapacity bounds the command channel. A full queue drops the
// incoming command and counts it (§7); producers never block.
const commandQueueCapacity = 16

// Dispatcher owns the effect registry, the active index, brightness,
// the display-on flag, and a bounded command queue. Submit is safe from
// any goroutine; Drain must only ever be called from the render worker's
// single goroutine so effects never observe Begin/End racing their own
// Render.
type Dispatcher struct {
	registry Registry

	mu         sync.Mutex
	brightness int
	powerOn    bool
	statsOn    bool

	queue chan Command

	dropped uint64
}

// NewDispatcher creates a Dispatcher with display on, brightness at
// maximum, and an empty registry. Register effects before the render
// worker starts draining commands.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		brightness: maxBrightnessLevel,
		powerOn:    true,
		queue:      make(chan Command, commandQueueCapacity),
	}
}

// Register adds effect to the registry; the first registration becomes
// active and receives an immediate Begin.
func (d *Dispatcher) Register(e Effect) {
	first := d.registry.Count() == 0
	d.registry.Register(e)
	if first {
		e.Begin()
	}
}

// Submit is a non-blocking enqueue. If the queue is full, cmd is dropped
// and counted; Submit never blocks the calling context.
func (d *Dispatcher) Submit(cmd Command) {
	select {
	case d.queue <- cmd:
	default:
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
	}
}

// Dropped returns the number of commands dropped due to a full queue.
func (d *Dispatcher) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Current returns the effect RenderWorker should call Render on, or nil
// if none are registered.
func (d *Dispatcher) Current() Effect {
	return d.registry.Active()
}

// ActiveIndex returns the 0-based index of the active effect, for
// diagnostics reporting.
func (d *Dispatcher) ActiveIndex() int {
	return d.registry.ActiveIndex()
}

// Brightness returns 10 if the current effect requires full brightness,
// else the stored 0..10 level (P7).
func (d *Dispatcher) Brightness() int {
	if e := d.registry.Active(); e != nil && e.RequiresFullBrightness() {
		return maxBrightnessLevel
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.brightness
}

// BrightnessScalar is a convenience combining Brightness with the
// gamma-2.2 lookup table.
func (d *Dispatcher) BrightnessScalar() uint8 {
	return BrightnessScalar(d.Brightness())
}

// PowerOn reports the current display power flag. When false, Render
// clears each frame to all-black instead of calling the active effect, but
// the active effect's End is not called (§E.3 — power-off is output
// suppression only).
func (d *Dispatcher) PowerOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.powerOn
}

// StatsOverlayEnabled reports whether the diagnostic overlay flag is set.
func (d *Dispatcher) StatsOverlayEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statsOn
}

// OnRevolution forwards a freshly accepted hall pulse to the current
// effect. Called from RevolutionTimer's pulse-acceptance path, so it must
// not block; Effect implementations are expected to honor that.
func (d *Dispatcher) OnRevolution(periodUs, tUs uint64, revCount uint64) {
	if e := d.registry.Active(); e != nil {
		e.OnRevolution(periodUs, tUs, revCount)
	}
}

// Drain dequeues and applies every pending command. Must be called once
// per RenderWorker iteration, never from the submission context.
func (d *Dispatcher) Drain() {
	for {
		select {
		case cmd := <-d.queue:
			d.apply(cmd)
		default:
			return
		}
	}
}

func (d *Dispatcher) apply(cmd Command) {
	switch cmd.Kind {
	case SetEffect:
		d.setEffect(cmd.EffectIndex)
	case BrightnessUp:
		d.mu.Lock()
		if d.brightness < maxBrightnessLevel {
			d.brightness++
		}
		d.mu.Unlock()
	case BrightnessDown:
		d.mu.Lock()
		if d.brightness > 0 {
			d.brightness--
		}
		d.mu.Unlock()
	case PowerCmd:
		d.mu.Lock()
		d.powerOn = cmd.PowerOn
		d.mu.Unlock()
		if e := d.registry.Active(); e != nil {
			e.OnPower(cmd.PowerOn)
		}
	case StatsToggle:
		d.mu.Lock()
		d.statsOn = !d.statsOn
		d.mu.Unlock()
	case ModeNextCmd:
		d.forward(ModeNext)
	case ModePrevCmd:
		d.forward(ModePrev)
	case ParamUpCmd:
		d.forward(ParamUp)
	case ParamDownCmd:
		d.forward(ParamDown)
	case EnterCmd:
		d.forward(Enter)
	}
}

func (d *Dispatcher) forward(b Button) {
	if e := d.registry.Active(); e != nil {
		e.OnCommand(b)
	}
}

// setEffect implements SetEffect(n): 1-based selection, out-of-range
// logged and ignored, a no-op if n already names the active effect (R2:
// repeated identical selections must not retrigger End/Begin).
func (d *Dispatcher) setEffect(n int) {
	next, err := d.registry.at(n)
	if err != nil {
		log.Printf("effect: %v", err)
		return
	}
	if n-1 == d.registry.ActiveIndex() {
		return
	}
	if outgoing := d.registry.Active(); outgoing != nil {
		outgoing.End()
	}
	d.registry.setActive(n - 1)
	next.Begin()
}

// Seed applies a previously persisted active-effect index (0-based) and
// brightness level. Call once at startup, after every effect has been
// Register-ed and before the render worker starts draining commands; this
// is the only path by which a host's persistent config (see the config
// package) reaches the Dispatcher, matching the CORE's contract that it
// never performs I/O itself (§6) — the host decides what to load and
// hands the decoded values straight to Seed.
func (d *Dispatcher) Seed(effectIndex, brightness int) {
	if brightness < 0 {
		brightness = 0
	} else if brightness > maxBrightnessLevel {
		brightness = maxBrightnessLevel
	}
	d.mu.Lock()
	d.brightness = brightness
	d.mu.Unlock()
	d.setEffect(effectIndex + 1)
}

// Render, if the display is powered on, calls the current effect's Render;
// otherwise it clears ctx so the frame is all-black (Power(false)
// suppresses output without calling End, per the decision recorded in
// SPEC_FULL.md).
func (d *Dispatcher) Render(ctx *rendercontext.Context) {
	if !d.PowerOn() {
		ctx.Clear()
		return
	}
	if e := d.registry.Active(); e != nil {
		e.Render(ctx)
	}
}
