// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package effect

import "math"

// maxBrightnessLevel is the top of the user-facing 0..10 brightness scale.
const maxBrightnessLevel = 10

// gammaLUT is a lookup table mapping a 0..10 brightness level to its 8-bit
// perceptual scalar, built once at package init the way the teacher's
// apa102 driver precomputes its ramp() lookup table rather than calling
// math.Pow on every frame.
var gammaLUT [maxBrightnessLevel + 1]uint8

func init() {
	for level := 0; level <= maxBrightnessLevel; level++ {
		gammaLUT[level] = gammaScalar(level)
	}
}

// gammaScalar converts a 0..10 brightness level to an 8-bit scalar via a
// gamma-2.2 curve, so perceived brightness is approximately linear in
// level: 0 maps to 0, 10 maps to 255, intermediate values by
// round(255 * (level/10)^2.2).
func gammaScalar(level int) uint8 {
	if level <= 0 {
		return 0
	}
	if level >= maxBrightnessLevel {
		return 255
	}
	x := float64(level) / float64(maxBrightnessLevel)
	v := math.Round(255 * math.Pow(x, 2.2))
	return uint8(v)
}

// BrightnessScalar returns the precomputed 8-bit gamma-2.2 scalar for a
// 0..10 brightness level. Levels outside that range are clamped.
func BrightnessScalar(level int) uint8 {
	if level < 0 {
		level = 0
	}
	if level > maxBrightnessLevel {
		level = maxBrightnessLevel
	}
	return gammaLUT[level]
}
