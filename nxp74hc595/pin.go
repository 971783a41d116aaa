// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nxp74hc595

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Pin is one of a Dev's 8 output-only GPIO pins. PositionBar never holds
// a *Pin directly — it only ever sees these through the Group it claims
// — but Group.Pins/ByOffset/ByName/ByNumber all have to hand something
// back, and that something has to satisfy gpio.PinOut.
type Pin struct {
	dev    *Dev
	name   string
	number int
}

// Halt implements conn.Resource. The latch bit this pin controls is left
// as-is; there is no separate per-pin state to tear down.
func (pin *Pin) Halt() error {
	return nil
}

// Name returns the pin's generated name, e.g. "74HC595_GPO3".
func (pin *Pin) Name() string {
	return pin.name
}

// Number returns the pin's position in the device's output latch, 0-7.
func (pin *Pin) Number() int {
	return pin.number
}

// Function reports this pin as a fixed output; the 74HC595 has no
// alternate pin functions to report.
func (pin *Pin) Function() string {
	return "Out"
}

// Out drives the pin's bit of the shared output latch high or low. The
// actual SPI transaction only happens if this changes the latch's value.
func (pin *Pin) Out(l gpio.Level) error {
	bit := gpio.GPIOValue(1 << pin.number)
	value := gpio.GPIOValue(0)
	if l {
		value = bit
	}
	return pin.dev.write(value, bit)
}

// PWM is not available: the 74HC595 has no PWM hardware.
func (pin *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

func (pin *Pin) String() string {
	return pin.name
}
