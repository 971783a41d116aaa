// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package statssink

import (
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/windrose/povcore/pca9633"
)

func TestStatusColor(t *testing.T) {
	cases := []struct {
		name string
		snap Snapshot
		r, g, b byte
	}{
		{"idle", Snapshot{NotRotating: 1}, 0xff, 0, 0},
		{"noisy", Snapshot{Rendered: 10, TooFast: 20, TooSlow: 10}, 0xff, 0x80, 0},
		{"healthy", Snapshot{Rendered: 1000, TooFast: 1}, 0, 0xff, 0},
		{"no data yet", Snapshot{}, 0, 0xff, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, g, b := statusColor(c.snap)
			if r != c.r || g != c.g || b != c.b {
				t.Errorf("statusColor(%+v) = %#x,%#x,%#x, want %#x,%#x,%#x", c.snap, r, g, b, c.r, c.g, c.b)
			}
		})
	}
}

func TestStatusLightReport(t *testing.T) {
	bus := &i2ctest.Record{Bus: &i2ctest.Playback{DontPanic: true}}
	dev, err := pca9633.New(bus, 0x62, pca9633.STRUCT_OPENDRAIN)
	if err != nil {
		t.Fatal(err)
	}
	light := NewStatusLight(dev)
	light.Report(Snapshot{Rendered: 500})
	if len(bus.Ops) == 0 {
		t.Error("Report did not issue any I2C transactions")
	}
}
