// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/relabs-tech/imu_visualizer/internal/frame"
	"github.com/relabs-tech/imu_visualizer/internal/imu"
	"github.com/relabs-tech/imu_visualizer/internal/orientation"
)

// Mock emits synthetic telemetry in one wire format, one frame per chunk.
type Mock struct {
	format   frame.Format
	interval time.Duration
	motion   *orientation.Motion
	start    time.Time
}

// NewMock starts the synthetic motion now.
func NewMock(format frame.Format, interval time.Duration) *Mock {
	return NewMockAt(format, interval, time.Now())
}

// NewMockAt starts the synthetic motion at start.
func NewMockAt(format frame.Format, interval time.Duration, start time.Time) *Mock {
	return &Mock{
		format:   format,
		interval: interval,
		motion:   orientation.NewMotion(start),
		start:    start,
	}
}

// Framing implements Source. Chunks are whole frames.
func (m *Mock) Framing() frame.Framing { return frame.MessageFraming }

// Run emits a frame every interval until ctx is cancelled.
func (m *Mock) Run(ctx context.Context, h Handler) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.OnDisconnect(nil)
			return ctx.Err()
		case t := <-ticker.C:
			chunk, err := m.Chunk(t)
			if err != nil {
				return err
			}
			h.OnChunk(chunk)
		}
	}
}

// Chunk encodes the synthetic reading at t. Text formats end in a newline.
func (m *Mock) Chunk(t time.Time) ([]byte, error) {
	_, accel, gyro := m.motion.At(t)
	elapsed := t.Sub(m.start).Seconds()
	temp := 25 + 0.5*math.Sin(elapsed/10)

	switch m.format {
	case frame.FormatBinary:
		b := frame.EncodeBinary(accel, gyro, temp)
		return b[:], nil
	case frame.FormatJSONObject:
		s := imu.Sample{Accel: accel, Gyro: gyro, Temp: &temp, Timestamp: float64(t.UnixMilli())}
		return jsonLine(s)
	case frame.FormatJSONShort:
		return jsonLine(shortSample{A: accel, G: gyro, T: temp})
	case frame.FormatJSONArray:
		return jsonLine(scaled(accel, gyro, temp))
	case frame.FormatCSV:
		v := scaled(accel, gyro, temp)
		fields := make([]string, len(v))
		for i, x := range v {
			fields[i] = fmt.Sprint(x)
		}
		return []byte(strings.Join(fields, ",") + "\n"), nil
	default:
		return nil, fmt.Errorf("mock: unsupported format %v", m.format)
	}
}

// shortSample is the compact object some BLE firmware sends.
type shortSample struct {
	A imu.Vector3 `json:"a"`
	G imu.Vector3 `json:"g"`
	T float64     `json:"t"`
}

// scaled converts to the integer units of the list formats: accel in
// 1/100 g, gyro in 1/10 deg/s, temperature rounded to 0.1 °C.
func scaled(accel, gyro imu.Vector3, temp float64) []float64 {
	return []float64{
		math.Round(accel.X * 100), math.Round(accel.Y * 100), math.Round(accel.Z * 100),
		math.Round(gyro.X * 10), math.Round(gyro.Y * 10), math.Round(gyro.Z * 10),
		math.Round(temp*10) / 10,
	}
}

func jsonLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
