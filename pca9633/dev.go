// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pca9633 drives a PCA9633 four-channel I2C LED PWM controller as
// a single RGB status indicator (statssink.StatusLight). The teacher's
// original driver also exposed group PWM/blink timing and output-polarity
// inversion; nothing in this module's domain needs a blinking status
// light or inverted-output wiring, so this build keeps only the surface
// StatusLight actually calls: construct, set per-channel intensity, halt.
//
// # Datasheet
//
// https://www.nxp.com/docs/en/data-sheet/PCA9633.pdf
package pca9633

import (
	"fmt"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

// LEDStructure selects how the PCA9633's open-drain outputs are wired.
type LEDStructure byte

const (
	// STRUCT_OPENDRAIN is the PCA9633's default output structure.
	STRUCT_OPENDRAIN LEDStructure = iota
	// STRUCT_TOTEMPOLE wires the outputs push-pull instead.
	STRUCT_TOTEMPOLE
)

// LEDMode is one channel's output mode, as written into the LEDOUT
// register.
type LEDMode byte

const (
	modeFullOff LEDMode = iota
	modeFullOn
	// modePWM drives the channel from its own PWM register.
	modePWM
)

const (
	regMode1 byte = iota
	regMode2
	regPWM0
	regPWM1
	regPWM2
	regPWM3
	_ // GRPPWM, unused: no group-blink feature in this build
	_ // GRPFREQ, unused: no group-blink feature in this build
	regLEDOut
)

const (
	modeTotemPole byte = 0x08
	mode2Default  byte = 0x05
	mode1Default  byte = 0x81
)

// channelCount is fixed: the PCA9633 always exposes 4 PWM channels.
// statssink.StatusLight uses channels 0-2 as R/G/B and leaves 3 dark.
const channelCount = 4

// Dev is an initialized PCA9633 four-channel PWM controller.
type Dev struct {
	d     *i2c.Dev
	modes [channelCount]LEDMode
}

// New returns an initialized PCA9633 device: PWM oscillator enabled, every
// channel off.
func New(bus i2c.Bus, address uint16, ledStructure LEDStructure) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: bus, Addr: address}}
	mode2 := mode2Default
	if ledStructure == STRUCT_TOTEMPOLE {
		mode2 |= modeTotemPole
	}
	if err := dev.init(mode2); err != nil {
		return nil, err
	}
	return dev, nil
}

func (dev *Dev) init(mode2 byte) error {
	if err := dev.d.Tx([]byte{regMode1, mode1Default}, nil); err != nil {
		return wrap(err)
	}
	if err := dev.d.Tx([]byte{regMode2, mode2}, nil); err != nil {
		return wrap(err)
	}
	return wrap(dev.setModes(modeFullOff, modeFullOff, modeFullOff, modeFullOff))
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("pca9633: %w", err)
}

// Halt implements conn.Resource: every channel off.
func (dev *Dev) Halt() error {
	return dev.setModes(modeFullOff, modeFullOff, modeFullOff, modeFullOff)
}

// Out sets each channel's output intensity in one I2C transaction per
// PWM'd channel (written on every call), followed by one LEDOUT write if
// any channel's mode changed. intensity 0 is full off; 0xff is full on (skips the PWM
// register entirely); anything between is PWM'd.
func (dev *Dev) Out(intensities ...display.Intensity) error {
	var newModes [channelCount]LEDMode
	copy(newModes[:], dev.modes[:])
	for ix := 0; ix < len(intensities) && ix < channelCount; ix++ {
		switch {
		case intensities[ix] == 0:
			newModes[ix] = modeFullOff
		case intensities[ix] >= 0xff:
			newModes[ix] = modeFullOn
		default:
			newModes[ix] = modePWM
			if err := dev.d.Tx([]byte{regPWM0 + byte(ix), byte(intensities[ix])}, nil); err != nil {
				return wrap(err)
			}
		}
	}
	return dev.setModes(newModes[0], newModes[1], newModes[2], newModes[3])
}

// setModes packs four 2-bit LEDOUT fields and writes them in a single
// transaction, skipping the write entirely if nothing changed.
func (dev *Dev) setModes(modes ...LEDMode) error {
	var packed byte
	changed := false
	for i, m := range modes {
		if m != dev.modes[i] {
			changed = true
		}
		packed |= byte(m) << (i * 2)
	}
	if !changed {
		return nil
	}
	copy(dev.modes[:], modes)
	return wrap(dev.d.Tx([]byte{regLEDOut, packed}, nil))
}

func (dev *Dev) String() string {
	return fmt.Sprintf("PCA9633::%#v", dev.d)
}
