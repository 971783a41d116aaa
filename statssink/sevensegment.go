// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package statssink

import (
	"log"

	"github.com/windrose/povcore/max7219"
)

// SevenSegment reports the running revolution count on a MAX7219-driven
// 7-segment display, grounded on the teacher's max7219.Dev.WriteInt, which
// already formats an int across however many cascaded digits the display
// has. Unlike OLED, which renders two lines of diagnostic text, this
// backend carries a single gauge: whichever counter Field selects.
type SevenSegment struct {
	dev   *max7219.Dev
	Field func(Snapshot) int
}

// NewSevenSegment wraps an already-initialized max7219.Dev. If field is
// nil, RevCount is displayed.
func NewSevenSegment(dev *max7219.Dev, field func(Snapshot) int) *SevenSegment {
	if field == nil {
		field = func(s Snapshot) int { return int(s.RevCount) }
	}
	return &SevenSegment{dev: dev, Field: field}
}

// Report implements Sink.
func (d *SevenSegment) Report(s Snapshot) {
	if err := d.dev.WriteInt(d.Field(s)); err != nil {
		log.Printf("statssink: sevensegment: %v", err)
	}
}
