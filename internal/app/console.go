// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/imu_visualizer/internal/imu"
	"github.com/relabs-tech/imu_visualizer/internal/orientation"
)

// Console prints the fused attitude at most once per interval. Decode
// errors are printed at the same pace; the ones skipped are counted.
type Console struct {
	out      io.Writer
	interval time.Duration
	now      func() time.Time

	pose       orientation.Pose
	temp       *float64
	lastPrint  time.Time
	lastError  time.Time
	suppressed int
}

func NewConsole(out io.Writer, interval time.Duration) *Console {
	return &Console{out: out, interval: interval, now: time.Now}
}

func (c *Console) OnSample(s imu.Sample) { c.temp = s.Temp }

func (c *Console) OnOrientation(st orientation.State) { c.pose = st.Pose }

// OnRate comes last for every sample, so the line is printed from here.
func (c *Console) OnRate(hz float64) {
	now := c.now()
	if !c.lastPrint.IsZero() && now.Sub(c.lastPrint) < c.interval {
		return
	}
	c.lastPrint = now

	temp := "  n/a"
	if c.temp != nil {
		temp = fmt.Sprintf("%5.1f", *c.temp)
	}
	fmt.Fprintf(c.out,
		"ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f  TEMP=%s  RATE=%6.1fHz\n",
		c.pose.Roll, c.pose.Pitch, c.pose.Yaw, temp, hz,
	)
}

func (c *Console) OnDecodeError(err error) {
	now := c.now()
	if !c.lastError.IsZero() && now.Sub(c.lastError) < c.interval {
		c.suppressed++
		return
	}
	c.lastError = now
	if c.suppressed > 0 {
		fmt.Fprintf(c.out, "[ERR] %v (%d more since last report)\n", err, c.suppressed)
		c.suppressed = 0
		return
	}
	fmt.Fprintf(c.out, "[ERR] %v\n", err)
}

func (c *Console) OnDisconnect(err error) {
	if err != nil {
		fmt.Fprintf(c.out, "[DISCONNECTED] %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "[DISCONNECTED]")
}
