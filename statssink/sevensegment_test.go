// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package statssink

import (
	"testing"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/windrose/povcore/max7219"
)

func TestSevenSegmentReport(t *testing.T) {
	pb := &spitest.Record{Ops: make([]conntest.IO, 0)}
	defer pb.Close()
	dev, err := max7219.NewSPI(pb, 1, 8)
	if err != nil {
		t.Fatal(err)
	}
	before := len(pb.Ops)
	seg := NewSevenSegment(dev, func(s Snapshot) int { return int(s.Skipped) })
	seg.Report(Snapshot{Skipped: 7})
	if len(pb.Ops) <= before {
		t.Error("Report did not issue any SPI transactions")
	}
}
