// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"time"

	"github.com/relabs-tech/imu_visualizer/internal/imu"
)

// Estimator is a complementary filter. Roll and pitch integrate the gyro
// and are pulled toward the accelerometer tilt by (1 - alpha); yaw is pure
// gyro integration and drifts without bound.
type Estimator struct {
	state State
}

// NewEstimator returns an estimator at zero attitude whose first update
// integrates over the time elapsed since now.
func NewEstimator(now time.Time) *Estimator {
	return &Estimator{state: State{LastUpdate: now}}
}

// Update integrates one sample. rates are the corrected gyro rates in
// deg/s; alpha is the gyro weight in [0, 1].
func (e *Estimator) Update(accel, rates imu.Vector3, alpha float64, now time.Time) State {
	dt := now.Sub(e.state.LastUpdate).Seconds()
	e.state.LastUpdate = now

	tilt := ComputePoseFromAccel(accel.X, accel.Y, accel.Z)

	p := &e.state.Pose
	p.Roll += rates.X * dt
	p.Pitch += rates.Y * dt
	p.Yaw += rates.Z * dt

	p.Roll = alpha*p.Roll + (1-alpha)*tilt.Roll
	p.Pitch = alpha*p.Pitch + (1-alpha)*tilt.Pitch

	return e.state
}

// State returns the current estimate.
func (e *Estimator) State() State {
	return e.state
}

// Reset zeroes roll, pitch and yaw. The update clock is kept so the next
// dt still measures the real interval.
func (e *Estimator) Reset() {
	e.state.Pose = Pose{}
}
