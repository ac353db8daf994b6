// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"gonum.org/v1/gonum/stat"
)

// Window is a FIFO of the most recent values with a resizable capacity.
type Window struct {
	values []float64
	size   int
}

// NewWindow creates a window holding at most size values (minimum 1).
func NewWindow(size int) *Window {
	w := &Window{}
	w.Resize(size)
	return w
}

// Push appends v, evicting the oldest value when the window is full.
func (w *Window) Push(v float64) {
	w.values = append(w.values, v)
	w.trim()
}

// Resize changes the capacity, evicting the oldest values if it shrinks.
func (w *Window) Resize(size int) {
	if size < 1 {
		size = 1
	}
	w.size = size
	w.trim()
}

func (w *Window) trim() {
	if extra := len(w.values) - w.size; extra > 0 {
		n := copy(w.values, w.values[extra:])
		w.values = w.values[:n]
	}
}

// Len returns the number of values held.
func (w *Window) Len() int { return len(w.values) }

// Size returns the capacity.
func (w *Window) Size() int { return w.size }

// Values returns a copy of the window contents, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty window.
func (w *Window) Mean() float64 {
	if len(w.values) == 0 {
		return 0
	}
	return stat.Mean(w.values, nil)
}

// Clear removes all values and keeps the capacity.
func (w *Window) Clear() {
	w.values = w.values[:0]
}
