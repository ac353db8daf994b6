// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"

	"github.com/relabs-tech/imu_visualizer/internal/imu"
)

// Motion generates a smooth synthetic attitude together with the accel and
// gyro readings a sensor following it would report.
type Motion struct {
	start time.Time
}

// NewMotion creates a motion generator starting at start.
func NewMotion(start time.Time) *Motion {
	return &Motion{start: start}
}

// At returns the pose at t, the gravity vector in g and the body rates in deg/s.
func (m *Motion) At(t time.Time) (Pose, imu.Vector3, imu.Vector3) {
	elapsed := t.Sub(m.start).Seconds()

	pose := Pose{
		Roll:  20 * math.Sin(elapsed),
		Pitch: 15 * math.Cos(elapsed*0.7),
		Yaw:   math.Mod(elapsed*30, 360),
	}
	gyro := imu.Vector3{
		X: 20 * math.Cos(elapsed),
		Y: -15 * 0.7 * math.Sin(elapsed*0.7),
		Z: 30,
	}

	roll := pose.Roll / radToDeg
	pitch := pose.Pitch / radToDeg
	accel := imu.Vector3{
		X: -math.Sin(pitch),
		Y: math.Sin(roll) * math.Cos(pitch),
		Z: math.Cos(roll) * math.Cos(pitch),
	}
	return pose, accel, gyro
}
