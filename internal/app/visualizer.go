// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/imu_visualizer/internal/config"
	"github.com/relabs-tech/imu_visualizer/internal/fusion"
	"github.com/relabs-tech/imu_visualizer/internal/source"
)

// sourceRetryDelay is how long to wait before reopening a failed source.
const sourceRetryDelay = 2 * time.Second

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// NewSource builds the telemetry source selected by SOURCE.
func NewSource(cfg *config.Config) (source.Source, error) {
	switch cfg.Source {
	case config.SourceSerial:
		return source.NewSerial(cfg.SerialPort, uint(cfg.SerialBaudRate)), nil
	case config.SourceBLE:
		return source.NewBLE(cfg.BLEDeviceName, millis(cfg.BLEScanTimeout)), nil
	case config.SourceMQTT:
		opts := NewMQTTClientOptions(cfg.MQTTBroker, cfg.MQTTClientIDVisualizer+"-raw")
		return source.NewMQTT(opts, cfg.TopicTelemetryRaw), nil
	case config.SourceMock:
		return source.NewMock(cfg.MockFormat, millis(cfg.MockInterval)), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// RunSource keeps src running, reopening it after a failure, until ctx is
// cancelled. The engine behind h keeps its state across reconnects.
func RunSource(ctx context.Context, src source.Source, h source.Handler, retry time.Duration) error {
	for {
		err := src.Run(ctx, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("source: %v; retrying in %s", err, retry)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

// RunVisualizer wires the configured source, the fusion engine and every
// enabled presenter, and runs them until ctx is cancelled.
func RunVisualizer(ctx context.Context, cfg *config.Config) error {
	src, err := NewSource(cfg)
	if err != nil {
		return err
	}
	log.Printf("visualizer: source %s (%s framing)", cfg.Source, src.Framing())

	var (
		presenters fusion.Presenters
		hub        *Hub
		history    *History
		display    *Display
	)

	if cfg.MQTTEnabled {
		client, err := ConnectMQTT(NewMQTTClientOptions(cfg.MQTTBroker, cfg.MQTTClientIDVisualizer))
		if err != nil {
			return fmt.Errorf("MQTT connect error: %w", err)
		}
		defer client.Disconnect(250)
		log.Printf("visualizer: publishing to MQTT broker at %s", cfg.MQTTBroker)
		presenters = append(presenters, NewMQTTPresenter(client, TopicsFromConfig(cfg)))
	}

	if cfg.WebEnabled {
		hub = NewHub()
		defer hub.Close()
		history = NewHistory(cfg.HistorySize)
		presenters = append(presenters, hub, history)
	}

	if cfg.ConsoleEnabled {
		presenters = append(presenters, NewConsole(os.Stdout, millis(cfg.ConsoleLogInterval)))
	}

	if cfg.DisplayEnabled {
		dev, closer, err := OpenSSD1306()
		if err != nil {
			return err
		}
		defer closer.Close()
		display = NewDisplay(dev)
		presenters = append(presenters, display)
	}

	engine, err := fusion.NewEngine(cfg.Fusion(), src.Framing(), fusion.WithPresenter(presenters))
	if err != nil {
		return err
	}
	loop := fusion.NewLoop(engine)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return RunSource(gctx, src, loop, sourceRetryDelay) })
	if hub != nil {
		addr := fmt.Sprintf(":%d", cfg.WebServerPort)
		handler := NewWebHandler(loop, hub, history, cfg.WebStaticDir)
		g.Go(func() error { return RunWeb(gctx, addr, handler) })
	}
	if display != nil {
		g.Go(func() error { return display.Run(gctx, millis(cfg.DisplayUpdateInterval)) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RunMockProducer publishes synthetic raw telemetry to TOPIC_TELEMETRY_RAW,
// for visualizers running with SOURCE=mqtt.
func RunMockProducer(ctx context.Context, cfg *config.Config) error {
	client, err := ConnectMQTT(NewMQTTClientOptions(cfg.MQTTBroker, cfg.MQTTClientIDProducer))
	if err != nil {
		return fmt.Errorf("MQTT connect error: %w", err)
	}
	defer client.Disconnect(250)
	log.Printf("mock producer: publishing %s frames to %s every %dms",
		cfg.MockFormat, cfg.TopicTelemetryRaw, cfg.MockInterval)

	mock := source.NewMock(cfg.MockFormat, millis(cfg.MockInterval))
	err = mock.Run(ctx, source.HandlerFunc(func(chunk []byte) {
		token := client.Publish(cfg.TopicTelemetryRaw, 0, false, chunk)
		token.Wait()
		if token.Error() != nil {
			log.Printf("mock producer: publish error: %v", token.Error())
		}
	}))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
