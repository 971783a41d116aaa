// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package effect defines the visual-effect abstraction, its registry, and
// the command dispatcher that owns brightness, power, and the active
// effect. Commands are applied exactly once, only from the render worker's
// goroutine, so an Effect never observes begin/end racing with its own
// Render.
//
// Grounded on _examples/original_source/led_display/include/Effect.h for
// the effect capability set, and on the teacher's (periph-devices) MPSC
// queue idiom in lirc.go/mcp23xxx's Group (bounded channel, non-blocking
// send, drained by a single consumer) for the command queue.
package effect

import (
	"errors"
	"fmt"
	"sync"

	"github.com/windrose/povcore/rendercontext"
)

// Effect is a polymorphic frame producer. Begin/End/OnRevolution/OnCommand/
// OnPower/RequiresFullBrightness all have defaults available via Base; only
// Render is mandatory.
type Effect interface {
	// Begin is called once when the effect becomes active.
	Begin()
	// End is called once when the effect is deactivated.
	End()
	// Render paints the current frame into ctx. Called once per slot by
	// RenderWorker; must not block.
	Render(ctx *rendercontext.Context)
	// OnRevolution is called once per accepted hall pulse, forwarded from
	// RevolutionTimer's pulse-acceptance path. periodUs is the just-accepted
	// interval, tUs the pulse timestamp, revCount the running total.
	OnRevolution(periodUs uint64, tUs uint64, revCount uint64)
	// OnCommand forwards a button-shaped command (ModeNext/Prev, ParamUp/
	// Down, Enter) to the active effect.
	OnCommand(b Button)
	// OnPower notifies the effect of a display power transition.
	OnPower(enabled bool)
	// RequiresFullBrightness, if true, forces brightness() to report 10
	// regardless of the stored level (P7).
	RequiresFullBrightness() bool
}

// Button enumerates the forwarded per-effect button commands.
type Button int

const (
	ModeNext Button = iota
	ModePrev
	ParamUp
	ParamDown
	Enter
)

// Base provides no-op implementations of every Effect method except
// Render, so concrete effects can embed it and override only what they
// need — matching the original firmware's Effect base class, which gives
// every hook a default empty body.
type Base struct{}

func (Base) Begin()                                        {}
func (Base) End()                                           {}
func (Base) OnRevolution(periodUs, tUs uint64, revCount uint64) {}
func (Base) OnCommand(Button)                               {}
func (Base) OnPower(bool)                                   {}
func (Base) RequiresFullBrightness() bool                   { return false }

// Registry is an ordered, append-only list of registered effects plus an
// active index. It owns no effect storage beyond the borrowed slice; the
// caller retains ownership of each Effect value. Registration happens
// once at startup before any worker goroutine is running, so effects is
// left unsynchronized; active changes on every SetEffect command from the
// render worker's goroutine while OnRevolution (hall
// goroutine) and Brightness/BrightnessScalar (output goroutine) read it
// concurrently, so it is guarded by mu.
type Registry struct {
	effects []Effect

	mu     sync.Mutex
	active int
}

var errNoEffects = errors.New("effect: registry is empty")

// Register appends effect to the registry. The first registration becomes
// active automatically.
func (r *Registry) Register(e Effect) {
	r.effects = append(r.effects, e)
}

// Count returns the number of registered effects.
func (r *Registry) Count() int { return len(r.effects) }

// Active returns the currently active effect, or nil if none are
// registered yet.
func (r *Registry) Active() Effect {
	if len(r.effects) == 0 {
		return nil
	}
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	return r.effects[active]
}

// ActiveIndex returns the 0-based index of the active effect.
func (r *Registry) ActiveIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// setActive sets the 0-based active index. Called only from setEffect,
// which has already validated n is in range.
func (r *Registry) setActive(n int) {
	r.mu.Lock()
	r.active = n
	r.mu.Unlock()
}

// at returns the effect at 1-based index n, or an error if out of range.
func (r *Registry) at(n int) (Effect, error) {
	if n < 1 || n > len(r.effects) {
		return nil, fmt.Errorf("effect: SetEffect(%d): out of range (have %d)", n, len(r.effects))
	}
	return r.effects[n-1], nil
}
