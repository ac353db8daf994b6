// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import (
	"math"

	"github.com/relabs-tech/imu_visualizer/internal/imu"
)

// BinaryFrameSize is the size of one packed binary frame.
const BinaryFrameSize = 12

const (
	accelOffset    = 0
	gyroOffset     = 5
	tempIntOffset  = 10
	tempFracOffset = 11
)

func decodeGroup(b []byte) imu.Vector3 {
	return imu.Vector3{
		X: fromFixed(fieldX(b)),
		Y: fromFixed(fieldY(b)),
		Z: fromFixed(fieldZ(b)),
	}
}

// DecodeBinary unpacks a 12-byte frame. Every bit pattern is valid.
//
// Bytes 0-4 hold accel X/Y/Z and bytes 5-9 gyro X/Y/Z as 13-bit signed
// fields scaled by 1/16. Byte 10 is the signed integer part of the
// temperature and byte 11 its fraction in 1/256 steps.
func DecodeBinary(b [BinaryFrameSize]byte) Frame {
	accel := decodeGroup(b[accelOffset : accelOffset+groupSize])
	gyro := decodeGroup(b[gyroOffset : gyroOffset+groupSize])
	temp := float64(int8(b[tempIntOffset])) + float64(b[tempFracOffset])/256.0

	return Frame{
		Format: FormatBinary,
		Accel:  &accel,
		Gyro:   &gyro,
		Temp:   &temp,
	}
}

// EncodeBinary packs a sample into the 12-byte wire format, quantizing
// accel and gyro to 1/16 and temperature to 1/256.
func EncodeBinary(accel, gyro imu.Vector3, temp float64) [BinaryFrameSize]byte {
	var b [BinaryFrameSize]byte
	putFields(b[accelOffset:], toFixed(accel.X), toFixed(accel.Y), toFixed(accel.Z))
	putFields(b[gyroOffset:], toFixed(gyro.X), toFixed(gyro.Y), toFixed(gyro.Z))

	whole := math.Floor(temp)
	frac := math.Round((temp - whole) * 256)
	if frac > 255 {
		frac = 255
	}
	whole = math.Max(math.MinInt8, math.Min(math.MaxInt8, whole))
	b[tempIntOffset] = byte(int8(whole))
	b[tempFracOffset] = byte(frac)
	return b
}
