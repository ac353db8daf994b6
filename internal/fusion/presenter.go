// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"github.com/relabs-tech/imu_visualizer/internal/imu"
	"github.com/relabs-tech/imu_visualizer/internal/orientation"
)

// Presenter receives the engine's output. Calls are made synchronously from
// the engine's goroutine; implementations must not block on slow I/O.
type Presenter interface {
	OnSample(imu.Sample)
	OnOrientation(orientation.State)
	OnRate(hz float64)
	OnDecodeError(err error)
}

// DisconnectObserver is implemented by presenters that want to know when
// the telemetry source went away.
type DisconnectObserver interface {
	OnDisconnect(err error)
}

// Presenters fans out every notification to each presenter in order.
type Presenters []Presenter

func (ps Presenters) OnSample(s imu.Sample) {
	for _, p := range ps {
		p.OnSample(s)
	}
}

func (ps Presenters) OnOrientation(st orientation.State) {
	for _, p := range ps {
		p.OnOrientation(st)
	}
}

func (ps Presenters) OnRate(hz float64) {
	for _, p := range ps {
		p.OnRate(hz)
	}
}

func (ps Presenters) OnDecodeError(err error) {
	for _, p := range ps {
		p.OnDecodeError(err)
	}
}

func (ps Presenters) OnDisconnect(err error) {
	for _, p := range ps {
		if o, ok := p.(DisconnectObserver); ok {
			o.OnDisconnect(err)
		}
	}
}

// NopPresenter discards everything. Embed it to implement only some methods.
type NopPresenter struct{}

func (NopPresenter) OnSample(imu.Sample)             {}
func (NopPresenter) OnOrientation(orientation.State) {}
func (NopPresenter) OnRate(float64)                  {}
func (NopPresenter) OnDecodeError(error)             {}
