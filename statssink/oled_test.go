// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package statssink

import (
	"bytes"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestNewOLEDSendsInitSequence(t *testing.T) {
	bus := &i2ctest.Record{Ops: []i2ctest.IO{}}

	if _, err := NewOLED(bus, 0); err != nil {
		t.Fatalf("NewOLED: %v", err)
	}
	if len(bus.Ops) != 1 {
		t.Fatalf("expected exactly one init transaction, got %d", len(bus.Ops))
	}
	got := bus.Ops[0].W
	if got[0] != oledI2CCmd {
		t.Fatalf("first byte = %#x, want the command control byte %#x", got[0], oledI2CCmd)
	}
	if !bytes.Equal(got[1:], oledInitSequence) {
		t.Fatal("init transaction did not carry the expected command sequence")
	}
}

func TestOLEDReportSendsAFrame(t *testing.T) {
	bus := &i2ctest.Record{Ops: []i2ctest.IO{}}
	o, err := NewOLED(bus, 0)
	if err != nil {
		t.Fatalf("NewOLED: %v", err)
	}
	bus.Ops = []i2ctest.IO{}

	o.Report(Snapshot{CurrentEffect: 2, CurrentBrightness: 7, Skipped: 3})

	if len(bus.Ops) < 3 {
		t.Fatalf("expected a setWindow (2 commands) + data write, got %d ops", len(bus.Ops))
	}
	last := bus.Ops[len(bus.Ops)-1]
	if last.W[0] != oledI2CData {
		t.Fatalf("last transaction's control byte = %#x, want data control byte %#x", last.W[0], oledI2CData)
	}
	if len(last.W)-1 != oledDefaultWidth*(oledDefaultHeight/8) {
		t.Fatalf("frame payload length = %d, want %d", len(last.W)-1, oledDefaultWidth*(oledDefaultHeight/8))
	}

	allBlack := true
	for _, b := range last.W[1:] {
		if b != 0 {
			allBlack = false
			break
		}
	}
	if allBlack {
		t.Fatal("expected the rendered text to set at least one pixel")
	}
}
