// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/relabs-tech/imu_visualizer/internal/imu"
)

// Scaled-integer lists carry accel in 1/100 g and gyro in 1/10 deg/s.
const (
	minListValues = 6
	accelDivisor  = 100.0
	gyroDivisor   = 10.0
)

// Sniff classifies a trimmed text line by its first character.
// Short-key objects are only told apart from full objects after parsing.
func Sniff(line string) Format {
	switch {
	case strings.HasPrefix(line, "{"):
		return FormatJSONObject
	case strings.HasPrefix(line, "["):
		return FormatJSONArray
	default:
		return FormatCSV
	}
}

// DecodeLine decodes one complete text line (without the trailing newline).
func DecodeLine(line string) (Frame, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Frame{}, newDecodeError(line, "empty line", nil)
	}

	switch Sniff(line) {
	case FormatJSONObject:
		return decodeObject(line)
	case FormatJSONArray:
		var values []float64
		if err := json.Unmarshal([]byte(line), &values); err != nil {
			return Frame{}, newDecodeError(line, "invalid JSON array", err)
		}
		return decodeList(line, FormatJSONArray, values)
	default:
		values, err := parseCSV(line)
		if err != nil {
			return Frame{}, err
		}
		return decodeList(line, FormatCSV, values)
	}
}

// jsonVector and jsonObject match keys exactly. encoding/json alone would
// also accept "ACCEL" or "X".
type jsonVector struct {
	X, Y, Z *float64
}

func (v *jsonVector) UnmarshalJSON(b []byte) error {
	return unmarshalExact(b, map[string]any{"x": &v.X, "y": &v.Y, "z": &v.Z})
}

// vector returns nil unless all three axes are present.
func (v *jsonVector) vector() *imu.Vector3 {
	if v == nil || v.X == nil || v.Y == nil || v.Z == nil {
		return nil
	}
	return &imu.Vector3{X: *v.X, Y: *v.Y, Z: *v.Z}
}

type jsonObject struct {
	Accel     *jsonVector
	Gyro      *jsonVector
	Temp      *float64
	Timestamp *float64

	// short keys used by the BLE firmware
	A *jsonVector
	G *jsonVector
	T *float64
}

func (o *jsonObject) UnmarshalJSON(b []byte) error {
	return unmarshalExact(b, map[string]any{
		"accel":     &o.Accel,
		"gyro":      &o.Gyro,
		"temp":      &o.Temp,
		"timestamp": &o.Timestamp,
		"a":         &o.A,
		"g":         &o.G,
		"t":         &o.T,
	})
}

// unmarshalExact decodes the object in b, filling only the fields whose key
// matches exactly. Other keys are ignored.
func unmarshalExact(b []byte, fields map[string]any) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for key, dst := range fields {
		value, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

// decodeObject handles both key styles. Values are taken as physical units
// in either case; short keys are used only when "accel" is absent.
func decodeObject(line string) (Frame, error) {
	var obj jsonObject
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return Frame{}, newDecodeError(line, "invalid JSON object", err)
	}

	if obj.Accel == nil && obj.A != nil {
		return Frame{
			Format:    FormatJSONShort,
			Accel:     obj.A.vector(),
			Gyro:      obj.G.vector(),
			Temp:      obj.T,
			Timestamp: obj.Timestamp,
		}, nil
	}

	return Frame{
		Format:    FormatJSONObject,
		Accel:     obj.Accel.vector(),
		Gyro:      obj.Gyro.vector(),
		Temp:      obj.Temp,
		Timestamp: obj.Timestamp,
	}, nil
}

func parseCSV(line string) ([]float64, error) {
	fields := strings.Split(line, ",")
	values := make([]float64, 0, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, newDecodeError(line, fmt.Sprintf("field %d is not a number", i), err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, newDecodeError(line, fmt.Sprintf("field %d is not finite", i), nil)
		}
		values = append(values, v)
	}
	return values, nil
}

// decodeList descales [ax,ay,az,gx,gy,gz,(t)]. A missing temperature is 0.
func decodeList(line string, format Format, v []float64) (Frame, error) {
	if len(v) < minListValues {
		return Frame{}, newDecodeError(line,
			fmt.Sprintf("%d values, want at least %d", len(v), minListValues), nil)
	}

	accel := imu.Vector3{X: v[0] / accelDivisor, Y: v[1] / accelDivisor, Z: v[2] / accelDivisor}
	gyro := imu.Vector3{X: v[3] / gyroDivisor, Y: v[4] / gyroDivisor, Z: v[5] / gyroDivisor}
	var temp float64
	if len(v) > minListValues {
		temp = v[6]
	}

	return Frame{
		Format: format,
		Accel:  &accel,
		Gyro:   &gyro,
		Temp:   &temp,
	}, nil
}
