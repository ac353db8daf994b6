// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/imu_visualizer/internal/frame"
)

// DefaultBaudRate is what the sensor firmware prints at.
const DefaultBaudRate = 115200

const serialReadSize = 256

// Serial reads line-oriented telemetry from a USB CDC serial port.
type Serial struct {
	opts serial.OpenOptions
	open func(serial.OpenOptions) (io.ReadWriteCloser, error)
}

// NewSerial configures an 8N1 port. It is opened by Run.
func NewSerial(portName string, baudRate uint) *Serial {
	return &Serial{
		opts: serial.OpenOptions{
			PortName:              portName,
			BaudRate:              baudRate,
			DataBits:              8,
			StopBits:              1,
			MinimumReadSize:       1,
			ParityMode:            serial.PARITY_NONE,
			InterCharacterTimeout: 0,
		},
		open: serial.Open,
	}
}

// Framing implements Source. A serial port is a byte stream.
func (s *Serial) Framing() frame.Framing { return frame.StreamFraming }

// Run opens the port and forwards every read until ctx is cancelled or a
// read fails. The port is closed on return.
func (s *Serial) Run(ctx context.Context, h Handler) error {
	port, err := s.open(s.opts)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", s.opts.PortName, err)
	}
	log.Printf("serial: port opened on %s at %d baud", s.opts.PortName, s.opts.BaudRate)

	var closeOnce sync.Once
	closePort := func() { closeOnce.Do(func() { port.Close() }) }
	stop := context.AfterFunc(ctx, closePort)
	defer stop()
	defer closePort()

	buf := make([]byte, serialReadSize)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			h.OnChunk(chunk)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			log.Printf("serial: closed %s", s.opts.PortName)
			h.OnDisconnect(nil)
			return ctx.Err()
		}
		log.Printf("serial: read error on %s: %v", s.opts.PortName, err)
		h.OnDisconnect(err)
		return fmt.Errorf("read serial port %s: %w", s.opts.PortName, err)
	}
}
