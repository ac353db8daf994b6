// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/imu_visualizer/internal/app"
	"github.com/relabs-tech/imu_visualizer/internal/config"
	"github.com/relabs-tech/imu_visualizer/internal/frame"
)

// Runs the full pipeline on synthetic telemetry and prints to the terminal.
// No config file, broker or hardware is needed.
func main() {
	format := flag.String("format", "json", "wire format: json, short, array, csv or binary")
	interval := flag.Int("interval", 20, "sample interval in milliseconds")
	flag.Parse()

	log.Println("starting imu-visualizer (mock console)")

	if *interval <= 0 {
		log.Fatalf("fatal: interval must be > 0, got %d", *interval)
	}

	cfg := config.Default()
	f, err := frame.ParseFormat(*format)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	cfg.Source = config.SourceMock
	cfg.MockFormat = f
	cfg.MockInterval = *interval
	cfg.WebEnabled = false
	cfg.ConsoleEnabled = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunVisualizer(ctx, cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
