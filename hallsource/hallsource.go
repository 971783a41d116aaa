// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hallsource defines the CORE's HallSource contract — delivering
// monotonic microsecond pulse timestamps to revtimer.Timer.AddPulse — plus
// two concrete implementations: a GPIO edge-triggered adapter for real
// hardware and a deterministic simulator for desktop development and
// tests.
//
// The GPIO adapter's blocking-edge-wait loop is grounded on the teacher's
// firmata.Pin (periph-devices), which runs its own goroutine waiting on
// gpio.PinIn edges and forwards level changes to a channel. The simulator
// is grounded on
// _examples/original_source/led_display/include/HallSimulator.h /
// HallSimulator.cpp: the original firmware's timer-based bench harness
// that fires synthetic hall events at a configurable, optionally
// sinusoidally-varying RPM.
package hallsource

import (
	"context"
	"math"
	"time"

	"github.com/windrose/povcore/revtimer"
)

// PulseFunc receives one accepted hall-sensor trigger timestamp. Sources
// call this once per physical edge; debouncing is not expected of them
// (the timer performs outlier rejection).
type PulseFunc func(t revtimer.Timestamp)

// Source is anything that can drive pulses into a PulseFunc until its
// context is cancelled.
type Source interface {
	Run(ctx context.Context, onPulse PulseFunc) error
}

// Clock returns the current monotonic microsecond timestamp. Both
// implementations in this package take one as a dependency rather than
// calling time.Now() directly, so tests can supply a fake.
type Clock func() revtimer.Timestamp

// SystemClock is a Clock backed by the process's monotonic clock: the
// microseconds elapsed since this package was initialized. Hosts wire this
// in at startup; the CORE never reaches for time.Now() on its own.
func SystemClock() revtimer.Timestamp {
	return revtimer.Timestamp(time.Since(systemClockEpoch).Microseconds())
}

var systemClockEpoch = time.Now()

// EdgeWaiter is the one method GPIOEdge needs from a periph.io
// gpio.PinIn: periph.io/x/conn/v3/gpio.PinIn satisfies this interface
// directly, so a caller configures the pin for rising-edge interrupts
// (gpio.PinIn.In with gpio.RisingEdge) and hands it to GPIOEdge as-is; a
// narrower interface here keeps this package's own tests free of a full
// gpio.PinIn fake.
type EdgeWaiter interface {
	WaitForEdge(timeout time.Duration) bool
}

// GPIOEdge drives pulses from a real periph.io gpio.PinIn (or anything
// else satisfying EdgeWaiter) configured for rising-edge interrupts, or
// whatever edge the installation's sensor produces. Run blocks until ctx
// is cancelled; callers typically start it in its own goroutine.
type GPIOEdge struct {
	Pin   EdgeWaiter
	Clock Clock
}

// Run waits for edges on Pin and calls onPulse with Clock() for each one.
// Matches the open question decision recorded in SPEC_FULL.md: this is a
// single goroutine, not pinned to any particular OS thread; the caller
// decides how much real-time priority that goroutine needs.
func (g GPIOEdge) Run(ctx context.Context, onPulse PulseFunc) error {
	clock := g.Clock
	if clock == nil {
		clock = SystemClock
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if g.Pin.WaitForEdge(100 * time.Millisecond) {
			onPulse(clock())
		}
	}
}

// Simulator emits pulses at a configurable RPM, optionally varying
// sinusoidally the way the original firmware's bench harness does
// (HallSimulator.cpp's TEST_VARY_RPM path), for use without any physical
// rotor: desktop development, the root package's Example, and this
// package's own tests.
type Simulator struct {
	// TargetRPM is the base simulated rotation speed. Default 1600, the
	// original firmware's own default test RPM.
	TargetRPM float64
	// VaryRPM enables the sinusoidal RPM variation from 700 to 2800 RPM
	// with a ~12.5s period, matching HallSimulator.cpp's formula
	// `700 + 1050*(1+sin(t*0.5))`.
	VaryRPM bool

	Clock Clock
	// Sleep is called between simulated pulses; defaults to time.Sleep.
	// Tests substitute a no-op or clock-advancing stand-in to run without
	// wall-clock delay.
	Sleep func(time.Duration)
}

const defaultSimulatorRPM = 1600.0

// Run fires pulses at the configured RPM until ctx is cancelled.
func (s Simulator) Run(ctx context.Context, onPulse PulseFunc) error {
	clock := s.Clock
	if clock == nil {
		clock = SystemClock
	}
	sleep := s.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	rpm := s.TargetRPM
	if rpm <= 0 {
		rpm = defaultSimulatorRPM
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := clock()
		onPulse(now)

		if s.VaryRPM {
			rpm = varyingRPM(float64(now) / 1e6)
		}
		interval := time.Duration(60_000_000.0/rpm) * time.Microsecond

		sleep(interval)
	}
}

// varyingRPM reproduces HallSimulator.cpp's sinusoidal RPM schedule: a
// period oscillating between 700 and 2800 RPM with a roughly 12.5-second
// cycle (angular frequency 0.5 rad/s).
func varyingRPM(timeSec float64) float64 {
	return 700.0 + 1050.0*(1.0+math.Sin(timeSec*0.5))
}
