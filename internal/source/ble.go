// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/relabs-tech/imu_visualizer/internal/frame"
)

// Nordic UART service used by the sensor firmware. The device notifies on TX.
const (
	uartServiceUUID = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	uartTXUUID      = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"
)

// bleIdleTimeout is how long the link may stay silent before it is
// considered lost. The firmware notifies many times per second.
const bleIdleTimeout = 5 * time.Second

var (
	// ErrDeviceNotFound is returned when no advertisement matches before the
	// scan timeout.
	ErrDeviceNotFound = errors.New("BLE device not found")

	// ErrLinkLost is returned when the peripheral disconnects or stops
	// notifying.
	ErrLinkLost = errors.New("BLE link lost")
)

// BLE receives telemetry as GATT notifications from the UART TX
// characteristic of a named peripheral.
type BLE struct {
	adapter     *bluetooth.Adapter
	deviceName  string
	scanTimeout time.Duration
	idleTimeout time.Duration
}

// NewBLE uses the default adapter. An empty deviceName matches the first
// peripheral advertising the UART service.
func NewBLE(deviceName string, scanTimeout time.Duration) *BLE {
	return &BLE{
		adapter:     bluetooth.DefaultAdapter,
		deviceName:  deviceName,
		scanTimeout: scanTimeout,
		idleTimeout: bleIdleTimeout,
	}
}

// Framing implements Source. Every notification is one frame.
func (b *BLE) Framing() frame.Framing { return frame.MessageFraming }

// Run scans, connects and forwards notifications until ctx is cancelled.
func (b *BLE) Run(ctx context.Context, h Handler) error {
	serviceUUID, err := bluetooth.ParseUUID(uartServiceUUID)
	if err != nil {
		return err
	}
	txUUID, err := bluetooth.ParseUUID(uartTXUUID)
	if err != nil {
		return err
	}

	if err := b.adapter.Enable(); err != nil {
		return fmt.Errorf("enable BLE adapter: %w", err)
	}

	addr, err := b.scan(ctx, serviceUUID)
	if err != nil {
		return err
	}

	// Only some platforms report disconnects here; the idle watchdog in
	// waitLink covers the rest.
	dropped := make(chan struct{}, 1)
	b.adapter.SetConnectHandler(func(d bluetooth.Device, connected bool) {
		if connected || d.Address.String() != addr.String() {
			return
		}
		select {
		case dropped <- struct{}{}:
		default:
		}
	})

	device, err := b.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr.String(), err)
	}
	defer device.Disconnect()
	log.Printf("ble: connected to %s", addr.String())

	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		return fmt.Errorf("discover UART service: %w", errors.Join(err, errors.New("service missing")))
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{txUUID})
	if err != nil || len(chars) == 0 {
		return fmt.Errorf("discover UART TX characteristic: %w", errors.Join(err, errors.New("characteristic missing")))
	}

	activity := make(chan struct{}, 1)
	err = chars[0].EnableNotifications(func(buf []byte) {
		chunk := make([]byte, len(buf))
		copy(chunk, buf)
		h.OnChunk(chunk)
		select {
		case activity <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("enable notifications: %w", err)
	}
	log.Printf("ble: receiving notifications from %s", addr.String())

	return waitLink(ctx, h, dropped, activity, b.idleTimeout)
}

// waitLink blocks until ctx is done, the link drops, or no activity is seen
// for idle. The handler is told about the disconnect in every case.
func waitLink(ctx context.Context, h Handler, dropped, activity <-chan struct{}, idle time.Duration) error {
	timer := time.NewTimer(idle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			h.OnDisconnect(nil)
			return ctx.Err()
		case <-dropped:
			err := fmt.Errorf("%w: peripheral disconnected", ErrLinkLost)
			h.OnDisconnect(err)
			return err
		case <-timer.C:
			err := fmt.Errorf("%w: no notifications for %s", ErrLinkLost, idle)
			h.OnDisconnect(err)
			return err
		case <-activity:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idle)
		}
	}
}

func (b *BLE) scan(ctx context.Context, service bluetooth.UUID) (bluetooth.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, b.scanTimeout)
	defer cancel()

	found := make(chan bluetooth.Address, 1)
	stop := context.AfterFunc(ctx, func() { b.adapter.StopScan() })
	defer stop()

	log.Printf("ble: scanning for %q", b.deviceName)
	err := b.adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		if !matchesDevice(b.deviceName, result.LocalName(), result.HasServiceUUID(service)) {
			return
		}
		select {
		case found <- result.Address:
			a.StopScan()
		default:
		}
	})
	if err != nil {
		return bluetooth.Address{}, fmt.Errorf("scan: %w", err)
	}

	select {
	case addr := <-found:
		return addr, nil
	default:
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return bluetooth.Address{}, ctx.Err()
	}
	return bluetooth.Address{}, fmt.Errorf("%w: %q within %s", ErrDeviceNotFound, b.deviceName, b.scanTimeout)
}

// matchesDevice picks by advertised name, or by service when no name is set.
func matchesDevice(want, localName string, hasService bool) bool {
	if want == "" {
		return hasService
	}
	return localName == want
}
