// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package frame decodes IMU telemetry frames from the three wire formats
// the sensor firmware emits: a 12-byte bit-packed binary frame, JSON
// objects and arrays, and comma-separated numeric lines.
package frame

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/imu_visualizer/internal/imu"
)

// Format identifies which wire variant a frame was decoded from.
type Format int

const (
	FormatBinary     Format = iota // 12-byte packed frame
	FormatJSONObject               // {"accel":{...},"gyro":{...},"temp":..,"timestamp":..}
	FormatJSONShort                // {"a":{...},"g":{...},"t":..}
	FormatJSONArray                // [ax,ay,az,gx,gy,gz,(t)] scaled integers
	FormatCSV                      // ax,ay,az,gx,gy,gz,(t) scaled integers
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatJSONObject:
		return "json"
	case FormatJSONShort:
		return "json-short"
	case FormatJSONArray:
		return "json-array"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// ParseFormat accepts the names printed by String and the short forms
// "short" and "array".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "binary":
		return FormatBinary, nil
	case "json":
		return FormatJSONObject, nil
	case "json-short", "short":
		return FormatJSONShort, nil
	case "json-array", "array":
		return FormatJSONArray, nil
	case "csv":
		return FormatCSV, nil
	default:
		return 0, fmt.Errorf("unknown frame format %q", name)
	}
}

// Frame is the result of decoding one unit of telemetry. Accel and Gyro
// are nil when the frame did not carry them.
type Frame struct {
	Format    Format
	Accel     *imu.Vector3
	Gyro      *imu.Vector3
	Temp      *float64
	Timestamp *float64 // ms, only when supplied by the sender
}

// Complete reports whether the frame carries both accel and gyro.
func (f Frame) Complete() bool {
	return f.Accel != nil && f.Gyro != nil
}

// Sample converts the frame into a canonical sample stamped with ts (ms).
func (f Frame) Sample(ts float64) (imu.Sample, error) {
	if !f.Complete() {
		return imu.Sample{}, ErrIncompleteSample
	}
	return imu.Sample{
		Accel:     *f.Accel,
		Gyro:      *f.Gyro,
		Temp:      f.Temp,
		Timestamp: ts,
	}, nil
}
