// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ledsink

import (
	"testing"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/windrose/povcore/rendercontext"
)

func TestSPIFrameLayout(t *testing.T) {
	rec := &spitest.Record{Ops: make([]conntest.IO, 0)}

	sink, err := NewSPI(rec, 3)
	if err != nil {
		t.Fatalf("NewSPI: %v", err)
	}
	if err := sink.SetPixel(1, rendercontext.Color{R: 10, G: 20, B: 30}); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	if err := sink.Show(); err != nil {
		t.Fatalf("Show: %v", err)
	}

	if len(rec.Ops) == 0 {
		t.Fatal("expected at least one SPI transaction")
	}
	w := rec.Ops[len(rec.Ops)-1].W

	wantLen := apa102StartFrameLen + apa102BytesPerLED*3 + (3/2/8 + 1)
	if len(w) != wantLen {
		t.Fatalf("frame length = %d, want %d", len(w), wantLen)
	}
	// Start frame is all zero.
	for i := 0; i < apa102StartFrameLen; i++ {
		if w[i] != 0 {
			t.Fatalf("start frame byte %d = %#x, want 0", i, w[i])
		}
	}
	// LED 1's frame: global max byte, then B, G, R.
	off := apa102StartFrameLen + 1*apa102BytesPerLED
	if w[off] != apa102GlobalMax {
		t.Fatalf("global byte = %#x, want %#x", w[off], apa102GlobalMax)
	}
	if w[off+1] != 30 || w[off+2] != 20 || w[off+3] != 10 {
		t.Fatalf("LED bytes = %v, want [B=30 G=20 R=10]", w[off+1:off+4])
	}
}

func TestSPIRejectsOutOfRangeIndex(t *testing.T) {
	rec := &spitest.Record{Ops: make([]conntest.IO, 0)}
	sink, err := NewSPI(rec, 2)
	if err != nil {
		t.Fatalf("NewSPI: %v", err)
	}
	if err := sink.SetPixel(5, rendercontext.Color{}); err == nil {
		t.Fatal("expected an error for an out-of-range physical index")
	}
}

func TestSPIHaltBlanksAndReleases(t *testing.T) {
	rec := &spitest.Record{Ops: make([]conntest.IO, 0)}
	sink, err := NewSPI(rec, 2)
	if err != nil {
		t.Fatalf("NewSPI: %v", err)
	}
	sink.SetPixel(0, rendercontext.Color{R: 255})
	if err := sink.Halt(); err != nil {
		t.Fatalf("Halt: %v", err)
	}
	if err := sink.Show(); err == nil {
		t.Fatal("expected Show to fail after Halt")
	}
}
