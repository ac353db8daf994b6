// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"errors"
	"fmt"
	"math"

	"github.com/relabs-tech/imu_visualizer/internal/orientation"
)

// ErrInvalidConfig is returned when a fusion setting is out of range.
var ErrInvalidConfig = errors.New("invalid fusion config")

// FusionConfig holds the tunables of the fusion pipeline.
type FusionConfig struct {
	Alpha                    float64 `json:"alpha"`                      // gyro weight of the complementary filter, [0,1]
	GyroThreshold            float64 `json:"gyro_threshold"`             // dead zone in deg/s, >= 0
	MAWindowSize             int     `json:"ma_window_size"`             // drift window in samples, >= 1
	DriftChangeThreshold     float64 `json:"drift_change_threshold"`     // deg/s, >= 0
	DriftCompensationEnabled bool    `json:"drift_compensation_enabled"`
}

// DefaultFusionConfig returns the settings the sensor firmware was tuned with.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		Alpha:                    0.98,
		GyroThreshold:            0.5,
		MAWindowSize:             20,
		DriftChangeThreshold:     0.3,
		DriftCompensationEnabled: true,
	}
}

// Validate checks every field.
func (c FusionConfig) Validate() error {
	if err := validateAlpha(c.Alpha); err != nil {
		return err
	}
	if err := validateNonNegative("gyro threshold", c.GyroThreshold); err != nil {
		return err
	}
	if err := validateWindowSize(c.MAWindowSize); err != nil {
		return err
	}
	return validateNonNegative("drift change threshold", c.DriftChangeThreshold)
}

func (c FusionConfig) driftParams() orientation.DriftParams {
	return orientation.DriftParams{
		Enabled:         c.DriftCompensationEnabled,
		WindowSize:      c.MAWindowSize,
		ChangeThreshold: c.DriftChangeThreshold,
		DeadZone:        c.GyroThreshold,
	}
}

func validateAlpha(a float64) error {
	if math.IsNaN(a) || a < 0 || a > 1 {
		return fmt.Errorf("%w: alpha must be in [0,1], got %v", ErrInvalidConfig, a)
	}
	return nil
}

func validateNonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %s must be a finite value >= 0, got %v", ErrInvalidConfig, name, v)
	}
	return nil
}

func validateWindowSize(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: moving average window must be >= 1, got %d", ErrInvalidConfig, n)
	}
	return nil
}
