// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common holds small helpers shared across otherwise-unrelated
// packages, mirroring the teacher's own common package of the same name.
package common

// CRC8 calculates the 8-bit CRC of data using the same polynomial the
// teacher's sensor drivers (scd4x, sht4x, aht20) use to validate I2C
// reads. config reuses it to guard a persisted seed record against a
// torn flash write.
func CRC8(data []byte) byte {
	var crc byte = 0xff
	for _, val := range data {
		crc ^= val
		for range 8 {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (crc << 1) ^ 0x31
			}
		}
	}
	return crc
}
