// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package commandsource defines the CORE's CommandSource contract — any
// transport that synthesizes effect.Command values and submits them to an
// effect.Dispatcher — plus two concrete adapters: an IR remote decoder and
// a physical button-bank reader.
//
// The IR adapter is grounded on the teacher's lirc.Conn (periph-devices),
// which exposes received remote presses as a Go channel of ir.Message;
// this package just maps key names onto Commands and submits them. The
// button-bank adapter is grounded on mcp23xxx's Group/WaitForEdge idiom
// for polling a bank of gpio.PinIn pins, one goroutine per pin, the same
// shape firmata.Pin uses for a single pin.
package commandsource

import (
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/ir"

	"github.com/windrose/povcore/effect"
	"github.com/windrose/povcore/lirc"
)

// Source is anything that can drive Commands into a Dispatcher until its
// context is cancelled.
type Source interface {
	Run(ctx context.Context, submit func(effect.Command)) error
}

// IRChannel is the one method commandsource.IR needs from an IR receiver:
// periph.io/x/conn/v3/ir's lirc-style connections satisfy this directly
// by exposing their decoded-message channel.
type IRChannel interface {
	Channel() <-chan ir.Message
}

// IRKeyMap maps a decoded remote key name to the Command it synthesizes.
// Keys not present in the map are logged and ignored.
type IRKeyMap map[ir.Key]effect.Command

// DefaultIRKeyMap is a reasonable default binding for a typical 7-button
// POV remote: brightness up/down, mode next/prev and enter (forwarded to the
// active effect), power off, and stats toggle.
func DefaultIRKeyMap() IRKeyMap {
	return IRKeyMap{
		"KEY_UP":    {Kind: effect.BrightnessUp},
		"KEY_DOWN":  {Kind: effect.BrightnessDown},
		"KEY_RIGHT": {Kind: effect.ModeNextCmd},
		"KEY_LEFT":  {Kind: effect.ModePrevCmd},
		"KEY_ENTER": {Kind: effect.EnterCmd},
		"KEY_POWER": {Kind: effect.PowerCmd, PowerOn: false},
		"KEY_STATS": {Kind: effect.StatsToggle},
	}
}

// IR drives commands from a decoded IR message channel.
type IR struct {
	Conn IRChannel
	Map  IRKeyMap
}

// Run forwards every decoded message found in Map until ctx is cancelled
// or the channel closes.
func (r IR) Run(ctx context.Context, submit func(effect.Command)) error {
	keyMap := r.Map
	if keyMap == nil {
		keyMap = DefaultIRKeyMap()
	}
	ch := r.Conn.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			cmd, known := keyMap[msg.Key]
			if !known {
				log.Printf("commandsource: unmapped IR key %q", msg.Key)
				continue
			}
			submit(cmd)
		}
	}
}

// NewLIRC dials the host's lircd socket and returns a ready-to-run IR
// source on top of it, using keyMap (or DefaultIRKeyMap if nil). lirc.Conn
// satisfies IRChannel directly through its own Channel method, so this is
// the concrete constructor most installations reach for instead of hand-
// wiring the IRChannel interface themselves.
func NewLIRC(keyMap IRKeyMap) (*IR, *lirc.Conn, error) {
	conn, err := lirc.New()
	if err != nil {
		return nil, nil, fmt.Errorf("commandsource: lirc: %w", err)
	}
	return &IR{Conn: conn, Map: keyMap}, conn, nil
}

// EdgeWaiter is the one method ButtonBank needs from a button's pin;
// periph.io/x/conn/v3/gpio.PinIn satisfies it directly.
type EdgeWaiter interface {
	WaitForEdge(timeout time.Duration) bool
}

// Button identifies one physical button in a ButtonBank by position.
type Button struct {
	Pin EdgeWaiter
	// OnPress is the Command synthesized on a falling/rising edge,
	// depending on the pin's configured polarity.
	OnPress effect.Command
}

// ButtonBank polls a fixed set of discrete GPIO buttons, one goroutine per
// pin (mirroring mcp23xxx's per-pin WaitForEdge idiom rather than a single
// shared poll loop, since periph.io's WaitForEdge is inherently
// per-pin-blocking).
type ButtonBank struct {
	Buttons []Button
	// PollTimeout bounds each WaitForEdge call so Run can notice ctx
	// cancellation promptly. Default 200ms.
	PollTimeout time.Duration
}

// Run starts one polling goroutine per button and blocks until ctx is
// cancelled.
func (b ButtonBank) Run(ctx context.Context, submit func(effect.Command)) error {
	timeout := b.PollTimeout
	if timeout == 0 {
		timeout = 200 * time.Millisecond
	}
	done := make(chan struct{})
	for _, btn := range b.Buttons {
		go func(btn Button) {
			for {
				select {
				case <-done:
					return
				default:
				}
				if btn.Pin.WaitForEdge(timeout) {
					submit(btn.OnPress)
				}
			}
		}(btn)
	}
	<-ctx.Done()
	close(done)
	return ctx.Err()
}
