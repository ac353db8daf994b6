// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/relabs-tech/imu_visualizer/internal/imu"
)

// DriftParams are the tunables read by DriftCompensator on every sample.
type DriftParams struct {
	Enabled         bool
	WindowSize      int     // samples per axis, >= 1
	ChangeThreshold float64 // deg/s
	DeadZone        float64 // deg/s
}

// DriftCompensator estimates and removes a per-axis gyroscope bias from a
// sliding window of raw rates, then applies a dead zone.
//
// The held bias is replaced by the window mean only when the raw rate
// deviates from that mean by more than ChangeThreshold; otherwise the
// previous bias is kept.
type DriftCompensator struct {
	windows [3]*Window
	bias    imu.Vector3
}

// NewDriftCompensator returns a compensator with empty windows and zero bias.
func NewDriftCompensator(windowSize int) *DriftCompensator {
	d := &DriftCompensator{}
	for i := range d.windows {
		d.windows[i] = NewWindow(windowSize)
	}
	return d
}

// Correct returns the bias-corrected, dead-zoned rates for one raw gyro
// reading. With compensation disabled no state is touched and only the
// dead zone is applied.
func (d *DriftCompensator) Correct(raw imu.Vector3, p DriftParams) imu.Vector3 {
	out := raw
	if p.Enabled {
		for axis, w := range d.windows {
			v := raw.Axis(axis)
			w.Resize(p.WindowSize)
			w.Push(v)

			mean := w.Mean()
			if math.Abs(v-mean) > p.ChangeThreshold {
				d.bias = d.bias.WithAxis(axis, mean)
			}
			out = out.WithAxis(axis, v-d.bias.Axis(axis))
		}
	}
	return ApplyDeadZone(out, p.DeadZone)
}

// Bias returns the currently held bias.
func (d *DriftCompensator) Bias() imu.Vector3 {
	return d.bias
}

// Window returns a copy of the raw-rate window for axis 0 (X), 1 (Y) or 2 (Z).
func (d *DriftCompensator) Window(axis int) []float64 {
	return d.windows[axis].Values()
}

// Reset clears all windows and zeroes the bias.
func (d *DriftCompensator) Reset() {
	for _, w := range d.windows {
		w.Clear()
	}
	d.bias = imu.Vector3{}
}

// ApplyDeadZone zeroes every component whose magnitude is not strictly
// greater than threshold.
func ApplyDeadZone(v imu.Vector3, threshold float64) imu.Vector3 {
	for axis := 0; axis < 3; axis++ {
		if math.Abs(v.Axis(axis)) <= threshold {
			v = v.WithAxis(axis, 0)
		}
	}
	return v
}
