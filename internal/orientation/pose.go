// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

const radToDeg = 180.0 / math.Pi

// Pose is the canonical representation of orientation for the app, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// State is the estimator output: the fused pose and when it was last updated.
type State struct {
	Pose
	LastUpdate time.Time `json:"last_update"`
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is always 0: gravity carries no heading information.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
//
// With ay = az = 0 the roll is 0.
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	var rollRad float64
	if ay != 0 || az != 0 {
		rollRad = math.Atan2(ay, az)
	}
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * radToDeg,
		Pitch: pitchRad * radToDeg,
	}
}
