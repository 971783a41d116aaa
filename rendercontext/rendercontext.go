// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rendercontext defines the pure data surface an Effect renders
// into: three physical arms of LEDs and a 40-entry virtual-pixel
// projection across them. A RenderContext owns no hardware handle; it is
// recycled forever by the two buffers in package pipeline.
//
// Grounded on _examples/original_source/led_display/include/RenderContext.h
// for the arm layout and virtual-pixel lookup tables, and on the teacher's
// apa102 driver (other_examples) for the shape of a small RGB color type
// used purely as in-memory data, with no hardware coupling of its own.
package rendercontext

import "image/color"

// Per-arm LED counts. Arm 0 (physically the outermost, wired +240° from the
// hall sensor) carries one extra hub-only LED that has no counterpart on
// the other two arms.
const (
	LedsArm0 = 14
	LedsArm1 = 13
	LedsArm2 = 13

	// VirtualPixelCount is the size of the radial virtual-pixel projection:
	// 1 hub-only pixel plus 13 rows of 3.
	VirtualPixelCount = 40
)

// Color is a simple 8-bit-per-channel RGB value, the unit Effects paint
// with. It implements color.Color so rendercontext values can be handed
// directly to stdlib image/draw code in ledsink backends.
type Color struct {
	R, G, B uint8
}

// Black is the zero Color.
var Black = Color{}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R) * 0x101
	g = uint32(c.G) * 0x101
	b = uint32(c.B) * 0x101
	a = 0xffff
	return
}

var _ color.Color = Color{}

// NRGBA converts a Color to the stdlib non-alpha-premultiplied equivalent,
// fully opaque, for backends built on image/color or third-party palette
// helpers that expect it.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Arm is one physical radial strip of LEDs.
type Arm struct {
	// AngleUnits is this arm's current angular position, tenths of a
	// degree, 0..3599.
	AngleUnits int
	// Pixels holds the arm's LEDs, index 0 at the hub, the last index at
	// the tip. len(Pixels) is LedsArm0 for arm 0, LedsArm1/LedsArm2 for
	// arms 1 and 2.
	Pixels []Color
}

// Context is the frame buffer an Effect renders into. Context carries no
// ownership of hardware; OutputWorker copies its state to a concrete LED
// bus after the render side releases it.
type Context struct {
	FrameNumber        uint32
	FrameTUs           uint64
	FrameDeltaUs       uint64
	RevolutionPeriodUs uint64
	SlotWidthUnits     int

	// Arms holds exactly 3 entries: [0]=outer/+240°, [1]=middle/hall
	// reference, [2]=inner/+120°, matching the machine's physical wiring.
	Arms [3]Arm

	// SpinSpeedMin and SpinSpeedMax bound the linear spin_speed() mapping;
	// zero values fall back to defaultSpinSpeedMinUs/MaxUs.
	SpinSpeedMin, SpinSpeedMax uint64
}

const (
	defaultSpinSpeedMinUs = 8_000   // at/below this period, spin_speed saturates at 255
	defaultSpinSpeedMaxUs = 400_000 // at/above this period, spin_speed is 0
)

// New allocates a Context with its three arm pixel slices sized correctly
// and ready for repeated reuse across a session.
func New() *Context {
	c := &Context{}
	c.Arms[0].Pixels = make([]Color, LedsArm0)
	c.Arms[1].Pixels = make([]Color, LedsArm1)
	c.Arms[2].Pixels = make([]Color, LedsArm2)
	return c
}

// Clear sets every pixel on every arm to black. It does not touch timing
// fields or arm angles.
func (c *Context) Clear() {
	for a := range c.Arms {
		for i := range c.Arms[a].Pixels {
			c.Arms[a].Pixels[i] = Black
		}
	}
}

// virtArm and virtPixel are the fixed lookup tables mapping a virtual
// index 0..39 to a concrete (arm, pixel-within-arm) pair. Virtual index 0
// is arm 0's extra hub LED, with no counterpart on arms 1/2. Indices
// 1..39 form 13 radial rows of 3, one pixel per arm, outermost row last.
var virtArm = [VirtualPixelCount]int{
	0,
	0, 1, 2,
	0, 1, 2,
	0, 1, 2,
	0, 1, 2,
	0, 1, 2,
	0, 1, 2,
	0, 1, 2,
	0, 1, 2,
	0, 1, 2,
	0, 1, 2,
	0, 1, 2,
	0, 1, 2,
	0, 1, 2,
}

var virtPixel = [VirtualPixelCount]int{
	0,
	1, 0, 0,
	2, 1, 1,
	3, 2, 2,
	4, 3, 3,
	5, 4, 4,
	6, 5, 5,
	7, 6, 6,
	8, 7, 7,
	9, 8, 8,
	10, 9, 9,
	11, 10, 10,
	12, 11, 11,
	13, 12, 12,
}

// Virt returns a pointer to the concrete pixel backing virtual index v,
// for both reading and writing. v must be in [0, VirtualPixelCount); out
// of range indices are clamped (negatives to 0, too-large values to the
// last entry) rather than panicking,
// since a render loop must never crash mid-frame on an effect's bad math.
func (c *Context) Virt(v int) *Color {
	if v < 0 {
		v = 0
	}
	if v >= VirtualPixelCount {
		v = VirtualPixelCount - 1
	}
	return &c.Arms[virtArm[v]].Pixels[virtPixel[v]]
}

// FillVirtual paints every virtual pixel in [start, end) with color.
func (c *Context) FillVirtual(start, end int, col Color) {
	if end > VirtualPixelCount {
		end = VirtualPixelCount
	}
	for v := start; v < end; v++ {
		*c.Virt(v) = col
	}
}

// Palette samples a color at a position 0..255, the same role FastLED's
// CRGBPalette16 plays for the original firmware's gradient fills.
type Palette interface {
	ColorAt(index uint8) Color
}

// FillVirtualGradient paints [start, end) by sampling palette across the
// range [paletteStart, paletteEnd], linearly interpolated by position
// within the range, mirroring the original firmware's fillVirtualGradient.
func (c *Context) FillVirtualGradient(start, end int, palette Palette, paletteStart, paletteEnd uint8) {
	if end <= start {
		return
	}
	if end > VirtualPixelCount {
		end = VirtualPixelCount
	}
	span := end - start - 1
	for v := start; v < end; v++ {
		var idx uint8
		if span <= 0 {
			idx = paletteStart
		} else {
			pos := v - start
			idx = uint8(int(paletteStart) + (int(paletteEnd)-int(paletteStart))*pos/span)
		}
		*c.Virt(v) = palette.ColorAt(idx)
	}
}

// SpinSpeed derives a normalized 0..255 speed scalar from
// RevolutionPeriodUs, linearly mapped between SpinSpeedMin (-> 255) and
// SpinSpeedMax (-> 0), clamped at both ends. A period of 0 (not rotating)
// returns 0.
func (c *Context) SpinSpeed() uint8 {
	if c.RevolutionPeriodUs == 0 {
		return 0
	}
	lo, hi := c.SpinSpeedMin, c.SpinSpeedMax
	if lo == 0 {
		lo = defaultSpinSpeedMinUs
	}
	if hi == 0 {
		hi = defaultSpinSpeedMaxUs
	}
	p := c.RevolutionPeriodUs
	if p <= lo {
		return 255
	}
	if p >= hi {
		return 0
	}
	return uint8((hi - p) * 255 / (hi - lo))
}
