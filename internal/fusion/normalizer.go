// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"time"
)

// Normalizer stamps frames and tracks the instantaneous sample rate.
type Normalizer struct {
	lastTs   float64
	haveLast bool
	rate     float64
}

// Normalize returns the timestamp (ms) for a frame and the current rate in
// Hz. supplied is the frame's own timestamp, if any; otherwise now is used.
// The rate only changes when the delta to the previous timestamp is
// strictly positive.
func (n *Normalizer) Normalize(supplied *float64, now time.Time) (ts, rate float64) {
	if supplied != nil {
		ts = *supplied
	} else {
		ts = float64(now.UnixNano()) / float64(time.Millisecond)
	}

	if n.haveLast {
		if delta := ts - n.lastTs; delta > 0 {
			n.rate = 1000 / delta
		}
	}
	n.lastTs = ts
	n.haveLast = true
	return ts, n.rate
}

// Rate returns the last computed sample rate in Hz, 0 before the first delta.
func (n *Normalizer) Rate() float64 {
	return n.rate
}
