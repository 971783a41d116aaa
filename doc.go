// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package povcore is the timing-and-rendering CORE of a three-arm
// persistence-of-vision rotor display: it turns irregular hall-sensor
// pulses into precisely-scheduled, angularly-aligned LED frames on a
// dual-core microcontroller (or, as wired up below, any two goroutines).
//
// The CORE is revtimer (revolution timing and outlier rejection),
// slotsched (angular slot scheduling), pipeline (the dual-buffer
// render/output worker pair), effect (the polymorphic frame-producing
// abstraction and its command queue), and rendercontext (the per-arm
// pixel buffer effects paint into). hallsource, commandsource, ledsink,
// statssink and config are the external collaborators' contracts plus
// concrete adapters; see Example for how a host wires all of it together.
package povcore
