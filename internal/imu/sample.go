// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Vector3 is one 3-axis reading.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Axis returns the component at index 0 (X), 1 (Y) or 2 (Z).
func (v Vector3) Axis(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithAxis returns a copy of v with the component at index i replaced.
func (v Vector3) WithAxis(i int, value float64) Vector3 {
	switch i {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// Sample is one fully decoded telemetry sample.
//
// Accel is in g (or the device's native units), Gyro in deg/s.
// Timestamp is in milliseconds: either supplied by the frame or the
// wall-clock time at decode.
type Sample struct {
	Accel     Vector3  `json:"accel"`
	Gyro      Vector3  `json:"gyro"`
	Temp      *float64 `json:"temp,omitempty"` // °C
	Timestamp float64  `json:"timestamp"`
}

