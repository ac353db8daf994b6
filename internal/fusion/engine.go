// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fusion turns raw telemetry chunks into a fused attitude estimate:
// decode -> timestamp/rate -> gyro drift compensation -> complementary filter.
package fusion

import (
	"time"

	"github.com/relabs-tech/imu_visualizer/internal/frame"
	"github.com/relabs-tech/imu_visualizer/internal/imu"
	"github.com/relabs-tech/imu_visualizer/internal/orientation"
)

// Stats counts what the engine has seen since it was created.
type Stats struct {
	Frames       uint64 `json:"frames"`        // frames decoded, complete or not
	Samples      uint64 `json:"samples"`       // samples fused
	Incomplete   uint64 `json:"incomplete"`    // frames without accel or gyro
	DecodeErrors uint64 `json:"decode_errors"` // lines or messages dropped
}

// Engine owns all mutable fusion state. It is not safe for concurrent use;
// Loop serializes access to it.
type Engine struct {
	cfg        FusionConfig
	decoder    *frame.Decoder
	normalizer Normalizer
	drift      *orientation.DriftCompensator
	estimator  *orientation.Estimator
	presenter  Presenter
	clock      func() time.Time
	stats      Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now as the engine's time source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithPresenter sets where results are sent. The default discards them.
func WithPresenter(p Presenter) Option {
	return func(e *Engine) { e.presenter = p }
}

// NewEngine creates an engine at zero attitude for a transport with the
// given framing.
func NewEngine(cfg FusionConfig, framing frame.Framing, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:       cfg,
		decoder:   frame.NewDecoder(framing),
		drift:     orientation.NewDriftCompensator(cfg.MAWindowSize),
		presenter: NopPresenter{},
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.estimator = orientation.NewEstimator(e.clock())
	return e, nil
}

// Feed decodes a chunk and pushes every completed sample through the
// pipeline before returning. It returns the fused samples in order.
func (e *Engine) Feed(chunk []byte) []imu.Sample {
	var fused []imu.Sample
	for _, res := range e.decoder.Feed(chunk) {
		if res.Err != nil {
			e.stats.DecodeErrors++
			e.presenter.OnDecodeError(res.Err)
			continue
		}
		if s, ok := e.process(res.Frame); ok {
			fused = append(fused, s)
		}
	}
	return fused
}

func (e *Engine) process(f frame.Frame) (imu.Sample, bool) {
	e.stats.Frames++
	now := e.clock()

	ts, rate := e.normalizer.Normalize(f.Timestamp, now)
	sample, err := f.Sample(ts)
	if err != nil {
		e.stats.Incomplete++
		return imu.Sample{}, false
	}

	rates := e.drift.Correct(sample.Gyro, e.cfg.driftParams())
	state := e.estimator.Update(sample.Accel, rates, e.cfg.Alpha, now)
	e.stats.Samples++

	e.presenter.OnSample(sample)
	e.presenter.OnOrientation(state)
	e.presenter.OnRate(rate)
	return sample, true
}

// Disconnect reports the end of the telemetry stream. No state is cleared.
func (e *Engine) Disconnect(err error) {
	if o, ok := e.presenter.(DisconnectObserver); ok {
		o.OnDisconnect(err)
	}
}

// Reset zeroes the attitude and the drift state together. The
// configuration and statistics are kept.
func (e *Engine) Reset() {
	e.estimator.Reset()
	e.drift.Reset()
}

// State returns the current attitude estimate.
func (e *Engine) State() orientation.State { return e.estimator.State() }

// Bias returns the gyro bias currently being removed.
func (e *Engine) Bias() imu.Vector3 { return e.drift.Bias() }

// Rate returns the last computed sample rate in Hz.
func (e *Engine) Rate() float64 { return e.normalizer.Rate() }

// Stats returns the counters.
func (e *Engine) Stats() Stats { return e.stats }

// Config returns the active configuration.
func (e *Engine) Config() FusionConfig { return e.cfg }

// SetConfig replaces the whole configuration if it is valid.
func (e *Engine) SetConfig(cfg FusionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	return nil
}

// SetAlpha sets the complementary filter gyro weight.
func (e *Engine) SetAlpha(alpha float64) error {
	if err := validateAlpha(alpha); err != nil {
		return err
	}
	e.cfg.Alpha = alpha
	return nil
}

// SetGyroThreshold sets the gyro dead zone in deg/s.
func (e *Engine) SetGyroThreshold(threshold float64) error {
	if err := validateNonNegative("gyro threshold", threshold); err != nil {
		return err
	}
	e.cfg.GyroThreshold = threshold
	return nil
}

// SetMAWindowSize sets the drift window length. A shorter window evicts
// its oldest samples on the next processed sample.
func (e *Engine) SetMAWindowSize(n int) error {
	if err := validateWindowSize(n); err != nil {
		return err
	}
	e.cfg.MAWindowSize = n
	return nil
}

// SetDriftChangeThreshold sets the deviation above which the bias is re-estimated.
func (e *Engine) SetDriftChangeThreshold(threshold float64) error {
	if err := validateNonNegative("drift change threshold", threshold); err != nil {
		return err
	}
	e.cfg.DriftChangeThreshold = threshold
	return nil
}

// SetDriftCompensationEnabled turns bias estimation and removal on or off.
func (e *Engine) SetDriftCompensationEnabled(enabled bool) {
	e.cfg.DriftCompensationEnabled = enabled
}
