// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/relabs-tech/imu_visualizer/internal/imu"
)

// RenderHistoryChart writes an HTML page with accelerometer, gyroscope and
// temperature line charts of points.
func RenderHistoryChart(w io.Writer, points []HistoryPoint) error {
	labels := make([]string, len(points))
	accel := make([]imu.Vector3, len(points))
	gyro := make([]imu.Vector3, len(points))
	temp := make([]opts.LineData, len(points))
	for i, p := range points {
		labels[i] = p.Label
		accel[i] = p.Accel
		gyro[i] = p.Gyro
		if p.Temp != nil {
			temp[i] = opts.LineData{Value: *p.Temp}
		} else {
			temp[i] = opts.LineData{Value: "-"}
		}
	}

	page := components.NewPage()
	page.SetPageTitle("IMU history")
	page.AddCharts(
		vectorChart("Accelerometer", "g", labels, accel),
		vectorChart("Gyroscope", "deg/s", labels, gyro),
		lineChart("Temperature", "°C", labels).AddSeries("temp", temp),
	)
	return page.Render(w)
}

func lineChart(title, unit string, labels []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit}),
		charts.WithAnimation(false),
	)
	line.SetXAxis(labels)
	return line
}

func vectorChart(title, unit string, labels []string, values []imu.Vector3) *charts.Line {
	line := lineChart(title, unit, labels)
	for _, axis := range []struct {
		name string
		idx  int
	}{{"x", 0}, {"y", 1}, {"z", 2}} {
		data := make([]opts.LineData, len(values))
		for i, v := range values {
			data[i] = opts.LineData{Value: v.Axis(axis.idx)}
		}
		line.AddSeries(axis.name, data)
	}
	return line
}
