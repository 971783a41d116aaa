// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rendercontext

import "testing"

func TestVirtRoundTrip(t *testing.T) {
	ctx := New()
	for v := 0; v < VirtualPixelCount; v++ {
		want := Color{R: uint8(v), G: uint8(v * 2), B: uint8(v * 3)}
		*ctx.Virt(v) = want
		got := *ctx.Virt(v)
		if got != want {
			t.Fatalf("virt(%d): wrote %+v, read %+v", v, want, got)
		}
	}
}

func TestVirtIndex0IsArm0HubOnly(t *testing.T) {
	ctx := New()
	*ctx.Virt(0) = Color{R: 1}
	if ctx.Arms[0].Pixels[0] != (Color{R: 1}) {
		t.Fatal("virt(0) must address arm 0 pixel 0")
	}
}

func TestVirtRow1SpansAllThreeArms(t *testing.T) {
	ctx := New()
	*ctx.Virt(1) = Color{R: 9}
	*ctx.Virt(2) = Color{G: 9}
	*ctx.Virt(3) = Color{B: 9}
	if ctx.Arms[0].Pixels[1].R != 9 {
		t.Fatal("virt(1) should address arm0 pixel1")
	}
	if ctx.Arms[1].Pixels[0].G != 9 {
		t.Fatal("virt(2) should address arm1 pixel0")
	}
	if ctx.Arms[2].Pixels[0].B != 9 {
		t.Fatal("virt(3) should address arm2 pixel0")
	}
}

func TestClearZeroesAllArms(t *testing.T) {
	ctx := New()
	ctx.FillVirtual(0, VirtualPixelCount, Color{R: 5, G: 5, B: 5})
	ctx.Clear()
	for a := range ctx.Arms {
		for i, p := range ctx.Arms[a].Pixels {
			if p != Black {
				t.Fatalf("arm %d pixel %d not cleared: %+v", a, i, p)
			}
		}
	}
}

func TestFillVirtualRangeExclusive(t *testing.T) {
	ctx := New()
	ctx.FillVirtual(1, 4, Color{R: 7})
	if *ctx.Virt(0) == (Color{R: 7}) {
		t.Fatal("fill must not touch index before start")
	}
	for v := 1; v < 4; v++ {
		if *ctx.Virt(v) != (Color{R: 7}) {
			t.Fatalf("virt(%d) not filled", v)
		}
	}
	if *ctx.Virt(4) == (Color{R: 7}) {
		t.Fatal("fill must not touch end index (exclusive)")
	}
}

type twoStopPalette struct{ lo, hi Color }

func (p twoStopPalette) ColorAt(index uint8) Color {
	if index < 128 {
		return p.lo
	}
	return p.hi
}

func TestFillVirtualGradientSamplesAcrossRange(t *testing.T) {
	ctx := New()
	pal := twoStopPalette{lo: Color{R: 1}, hi: Color{B: 1}}
	ctx.FillVirtualGradient(0, VirtualPixelCount, pal, 0, 255)
	if *ctx.Virt(0) != pal.lo {
		t.Fatalf("first sample should use paletteStart=0 -> lo, got %+v", *ctx.Virt(0))
	}
	if *ctx.Virt(VirtualPixelCount-1) != pal.hi {
		t.Fatalf("last sample should use paletteEnd=255 -> hi, got %+v", *ctx.Virt(VirtualPixelCount-1))
	}
}

func TestFillVirtualGradientEmptyRangeNoOp(t *testing.T) {
	ctx := New()
	pal := twoStopPalette{lo: Color{R: 1}, hi: Color{B: 1}}
	ctx.FillVirtualGradient(5, 5, pal, 0, 255)
	if *ctx.Virt(5) != Black {
		t.Fatal("empty gradient range must not write")
	}
}

func TestSpinSpeedClamped(t *testing.T) {
	ctx := New()
	ctx.RevolutionPeriodUs = 0
	if ctx.SpinSpeed() != 0 {
		t.Fatal("not rotating must report spin speed 0")
	}

	ctx.RevolutionPeriodUs = 1 // far below default min
	if ctx.SpinSpeed() != 255 {
		t.Fatalf("spin speed = %d, want 255 at/below min", ctx.SpinSpeed())
	}

	ctx.RevolutionPeriodUs = 10_000_000 // far above default max
	if ctx.SpinSpeed() != 0 {
		t.Fatalf("spin speed = %d, want 0 at/above max", ctx.SpinSpeed())
	}
}

func TestSpinSpeedMidpointIsRoughlyHalf(t *testing.T) {
	ctx := New()
	ctx.RevolutionPeriodUs = (defaultSpinSpeedMinUs + defaultSpinSpeedMaxUs) / 2
	got := ctx.SpinSpeed()
	if got < 100 || got > 155 {
		t.Fatalf("midpoint spin speed = %d, want roughly 127", got)
	}
}

func TestColorImplementsColorColor(t *testing.T) {
	c := Color{R: 0x80, G: 0x40, B: 0x20}
	r, g, b, a := c.RGBA()
	if a != 0xffff {
		t.Fatalf("alpha = %x, want fully opaque", a)
	}
	if r>>8 != 0x80 || g>>8 != 0x40 || b>>8 != 0x20 {
		t.Fatalf("RGBA() = %x %x %x, want high bytes 80 40 20", r, g, b)
	}
}
