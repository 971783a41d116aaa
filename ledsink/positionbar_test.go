// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ledsink

import (
	"testing"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/windrose/povcore/nxp74hc595"
	"github.com/windrose/povcore/rendercontext"
)

func newTestPositionBar(t *testing.T) (*PositionBar, *spitest.Record) {
	t.Helper()
	pb := &spitest.Record{Ops: make([]conntest.IO, 0)}
	conn, err := pb.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	dev, err := nxp74hc595.New(conn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bar, err := NewPositionBar(dev)
	if err != nil {
		t.Fatalf("NewPositionBar: %v", err)
	}
	return bar, pb
}

func TestPositionBarShow(t *testing.T) {
	bar, pb := newTestPositionBar(t)
	bar.SetArmAngles([3]int{1800, 0, 0})
	if err := bar.Show(); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if len(pb.Ops) == 0 {
		t.Fatal("Show() issued no SPI transaction")
	}
	got := pb.Ops[len(pb.Ops)-1].W[0]
	// 1800 tenths of a degree is exactly half a revolution: octant 4.
	if want := byte(1 << 4); got != want {
		t.Errorf("Show() wrote %#02x, want %#02x (octant 4)", got, want)
	}
}

func TestPositionBarSetPixelNoop(t *testing.T) {
	bar, _ := newTestPositionBar(t)
	if err := bar.SetPixel(5, rendercontext.Color{R: 1, G: 2, B: 3}); err != nil {
		t.Errorf("SetPixel: %v", err)
	}
}

func TestPositionBarHalt(t *testing.T) {
	bar, pb := newTestPositionBar(t)
	bar.SetArmAngles([3]int{900, 0, 0})
	if err := bar.Show(); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if err := bar.Halt(); err != nil {
		t.Fatalf("Halt: %v", err)
	}
	got := pb.Ops[len(pb.Ops)-1].W[0]
	if got != 0 {
		t.Errorf("Halt() left %#02x set, want 0", got)
	}
}
