// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package effect

// CommandKind tags a Command's payload.
type CommandKind int

const (
	SetEffect CommandKind = iota
	BrightnessUp
	BrightnessDown
	ModeNextCmd
	ModePrevCmd
	ParamUpCmd
	ParamDownCmd
	PowerCmd
	StatsToggle
	EnterCmd
)

// Command is the tagged value any CommandSource synthesizes and submits to
// a Dispatcher. Only the field matching Kind is meaningful.
type Command struct {
	Kind CommandKind

	// EffectIndex is used by SetEffect; 1-based, out-of-range is logged and
	// ignored.
	EffectIndex int

	// PowerOn is used by PowerCmd.
	PowerOn bool
}
