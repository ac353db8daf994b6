// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import "math"

// Each 5-byte group packs three 13-bit two's complement fields, LSB first:
//
//	byte:   0        1        2        3        4
//	bits:   xxxxxxxx yyyxxxxx yyyyyyyy zzzzzzyy -zzzzzzz
const (
	fieldWidth = 13
	fieldMask  = 1<<fieldWidth - 1
	groupSize  = 5

	// fixedScale converts a 13-bit field to physical units (1/16 steps).
	fixedScale = 16.0
	fixedMin   = -(1 << (fieldWidth - 1))
	fixedMax   = 1<<(fieldWidth-1) - 1
)

// fieldX extracts bits 0..12: all of b[0] and the low 5 bits of b[1].
func fieldX(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1]&0x1F)<<8
}

// fieldY extracts the top 3 bits of b[1], all of b[2] and the low 2 bits of b[3].
func fieldY(b []byte) uint16 {
	return uint16(b[1]>>5) | uint16(b[2])<<3 | uint16(b[3]&0x03)<<11
}

// fieldZ extracts the top 6 bits of b[3] and the low 7 bits of b[4].
func fieldZ(b []byte) uint16 {
	return uint16(b[3]>>2) | uint16(b[4]&0x7F)<<6
}

// putFields is the inverse of fieldX/fieldY/fieldZ. Bit 7 of b[4] is left clear.
func putFields(b []byte, x, y, z uint16) {
	x &= fieldMask
	y &= fieldMask
	z &= fieldMask
	b[0] = byte(x)
	b[1] = byte(x>>8)&0x1F | byte(y&0x07)<<5
	b[2] = byte(y >> 3)
	b[3] = byte(y>>11)&0x03 | byte(z&0x3F)<<2
	b[4] = byte(z>>6) & 0x7F
}

// signExtend interprets the low width bits of v as a two's complement value.
func signExtend(v uint16, width uint) int16 {
	shift := 16 - width
	return int16(v<<shift) >> shift
}

// fromFixed converts a raw 13-bit field to a value in [-256, 255.9375].
func fromFixed(raw uint16) float64 {
	return float64(signExtend(raw, fieldWidth)) / fixedScale
}

// toFixed quantizes v to the nearest 1/16 and saturates to the field range.
func toFixed(v float64) uint16 {
	q := math.Round(v * fixedScale)
	switch {
	case math.IsNaN(q):
		q = 0
	case q < fixedMin:
		q = fixedMin
	case q > fixedMax:
		q = fixedMax
	}
	return uint16(int16(q)) & fieldMask
}
