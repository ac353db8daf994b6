// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package source delivers raw telemetry chunks from a transport (USB
// serial, BLE notifications, MQTT, or a synthetic generator).
package source

import (
	"context"

	"github.com/relabs-tech/imu_visualizer/internal/frame"
)

// Handler receives what a Source reads. fusion.Loop implements it.
type Handler interface {
	// OnChunk receives bytes in arrival order. The slice is owned by the
	// handler once passed.
	OnChunk(chunk []byte)
	// OnDisconnect is called once when the transport goes away. err is nil
	// for a requested shutdown.
	OnDisconnect(err error)
}

// Source is a transport producing telemetry chunks.
type Source interface {
	// Framing tells the decoder how chunk boundaries relate to frames.
	Framing() frame.Framing
	// Run reads until ctx is cancelled or the transport fails.
	Run(ctx context.Context, h Handler) error
}

// HandlerFunc adapts a chunk callback to Handler, ignoring disconnects.
type HandlerFunc func(chunk []byte)

func (f HandlerFunc) OnChunk(chunk []byte) { f(chunk) }
func (f HandlerFunc) OnDisconnect(error)   {}
