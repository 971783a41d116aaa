// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config defines the CORE's persistent-config contract (§6): a
// small seed record the host may load at startup and hand to
// effect.Dispatcher.Seed, and may save back whenever the active effect or
// brightness changes. The CORE never performs file I/O itself; Store
// operates on a host-supplied io.ReadWriteSeeker — a file, a flash-backed
// block device, whatever the installation has.
package config

import (
	"errors"
	"fmt"
	"io"

	"github.com/windrose/povcore/common"
)

// ErrCorrupt is returned by Load when the stored record fails its CRC8
// check — a torn write, a blank/erased flash sector, or a foreign file.
// Callers typically fall back to zero-value defaults on this error rather
// than treating it as fatal.
var ErrCorrupt = errors.New("config: corrupt record")

// recordLen is the encoded size: 1 byte effect index, 1 byte brightness,
// 1 byte CRC8 of the first two.
const recordLen = 3

// Seed is the subset of EffectDispatcher state worth persisting across a
// power cycle: which effect was active and at what brightness.
type Seed struct {
	EffectIndex int // 0-based
	Brightness  int // 0..10
}

// Store persists a Seed through a host-supplied io.ReadWriteSeeker,
// guarding the record with an 8-bit CRC the way the teacher's sensor
// drivers (scd4x, sht4x) validate their own I2C reads with common.CRC8.
type Store struct {
	rw io.ReadWriteSeeker
}

// NewStore wraps rw. rw is never opened or closed by this package.
func NewStore(rw io.ReadWriteSeeker) *Store {
	return &Store{rw: rw}
}

// Load reads and validates a previously saved Seed. ErrCorrupt is returned
// (wrapped) if the CRC doesn't match; the caller decides whether that's
// fatal or just means "nothing saved yet."
func (s *Store) Load() (Seed, error) {
	if _, err := s.rw.Seek(0, io.SeekStart); err != nil {
		return Seed{}, fmt.Errorf("config: seek: %w", err)
	}
	buf := make([]byte, recordLen)
	if _, err := io.ReadFull(s.rw, buf); err != nil {
		return Seed{}, fmt.Errorf("config: read: %w", err)
	}
	if common.CRC8(buf[:2]) != buf[2] {
		return Seed{}, ErrCorrupt
	}
	return Seed{EffectIndex: int(buf[0]), Brightness: int(buf[1])}, nil
}

// Save writes seed with a trailing CRC8 byte over the first three bytes
// of the underlying store. Any bytes beyond the record are left as they
// are; Save never truncates.
func (s *Store) Save(seed Seed) error {
	if seed.EffectIndex < 0 || seed.EffectIndex > 0xff {
		return fmt.Errorf("config: effect index %d out of range", seed.EffectIndex)
	}
	if seed.Brightness < 0 || seed.Brightness > 0xff {
		return fmt.Errorf("config: brightness %d out of range", seed.Brightness)
	}
	buf := make([]byte, recordLen)
	buf[0] = byte(seed.EffectIndex)
	buf[1] = byte(seed.Brightness)
	buf[2] = common.CRC8(buf[:2])
	if _, err := s.rw.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("config: seek: %w", err)
	}
	if _, err := s.rw.Write(buf); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}
