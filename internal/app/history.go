// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"sync"
	"time"

	"github.com/relabs-tech/imu_visualizer/internal/fusion"
	"github.com/relabs-tech/imu_visualizer/internal/imu"
)

// HistoryPoint is one charted sample.
type HistoryPoint struct {
	Label string      `json:"label"` // wall-clock time of day
	Accel imu.Vector3 `json:"accel"`
	Gyro  imu.Vector3 `json:"gyro"`
	Temp  *float64    `json:"temp,omitempty"`
}

// History keeps the most recent samples for the chart page. OnSample runs
// on the fusion goroutine, Points on HTTP handlers.
type History struct {
	fusion.NopPresenter

	mu     sync.RWMutex
	size   int
	points []HistoryPoint
	now    func() time.Time
}

// NewHistory keeps at most size points.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{size: size, points: make([]HistoryPoint, 0, size), now: time.Now}
}

func (h *History) OnSample(s imu.Sample) {
	p := HistoryPoint{
		Label: h.now().Format("15:04:05.000"),
		Accel: s.Accel,
		Gyro:  s.Gyro,
		Temp:  s.Temp,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.points) == h.size {
		copy(h.points, h.points[1:])
		h.points = h.points[:h.size-1]
	}
	h.points = append(h.points, p)
}

// Points returns a copy, oldest first.
func (h *History) Points() []HistoryPoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]HistoryPoint(nil), h.points...)
}
