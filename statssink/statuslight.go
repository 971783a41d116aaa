// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package statssink

import (
	"fmt"

	"periph.io/x/conn/v3/display"

	"github.com/windrose/povcore/pca9633"
)

// StatusLight reports health at a glance through a single RGB indicator LED
// driven by a PCA9633 four-channel PWM controller (channels 0-2 are R/G/B;
// channel 3 is left unused), grounded on the teacher's pca9633.Dev.Out,
// which already accepts one display.Intensity per channel in a single I2C
// transaction. This is the "I2C status-light backend" the domain stack
// calls for: a coarse health signal for an installation with no display,
// cheaper than statssink.OLED's full text panel.
//
// The color policy is deliberately simple: green while healthy, amber once
// outliers exceed a quarter of rendered frames, red once the pipeline has
// gone idle.
type StatusLight struct {
	dev *pca9633.Dev
}

// NewStatusLight wraps an already-initialized pca9633.Dev.
func NewStatusLight(dev *pca9633.Dev) *StatusLight {
	return &StatusLight{dev: dev}
}

// Report implements Sink.
func (s *StatusLight) Report(snap Snapshot) {
	r, g, b := statusColor(snap)
	if err := s.dev.Out(display.Intensity(r), display.Intensity(g), display.Intensity(b), 0); err != nil {
		// Best-effort: statssink never propagates a diagnostics failure into
		// the render/output pipeline.
		_ = fmt.Errorf("statssink: status light: %w", err)
	}
}

func statusColor(snap Snapshot) (r, g, b byte) {
	if snap.NotRotating > 0 {
		return 0xff, 0, 0
	}
	bad := snap.TooFast + snap.TooSlow + snap.RatioLow
	good := snap.Rendered
	if good > 0 && bad*4 > good {
		return 0xff, 0x80, 0
	}
	return 0, 0xff, 0
}
