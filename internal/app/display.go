package app

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/imu_visualizer/internal/fusion"
	"github.com/relabs-tech/imu_visualizer/internal/imu"
	"github.com/relabs-tech/imu_visualizer/internal/orientation"
)

// Screen is the part of an SSD1306 the display needs.
type Screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// DisplayData holds the latest data for display
type DisplayData struct {
	Pose         orientation.Pose
	Temp         *float64
	RateHz       float64
	HaveData     bool
	Disconnected bool
}

// Display shows the attitude on a 128x64 OLED. Presenter callbacks only
// record the latest values; Run redraws at its own pace.
type Display struct {
	fusion.NopPresenter

	screen Screen

	mu   sync.RWMutex
	data DisplayData
}

func NewDisplay(screen Screen) *Display {
	return &Display{screen: screen}
}

// OpenSSD1306 initializes periph and opens the display on the default I2C
// bus at the driver's fixed address. The returned closer releases the bus.
func OpenSSD1306() (*ssd1306.Dev, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on %s", bus)
	return dev, bus, nil
}

func (d *Display) OnSample(s imu.Sample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data.Temp = s.Temp
}

func (d *Display) OnOrientation(st orientation.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data.Pose = st.Pose
	d.data.HaveData = true
	d.data.Disconnected = false
}

func (d *Display) OnRate(hz float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data.RateHz = hz
}

func (d *Display) OnDisconnect(error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data.Disconnected = true
}

// Snapshot returns the values the next redraw will show.
func (d *Display) Snapshot() DisplayData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data
}

// Run shows the splash screen, then redraws every interval until ctx is done.
func (d *Display) Run(ctx context.Context, interval time.Duration) error {
	if err := d.draw(renderSplash()); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.draw(RenderOrientation(d.Snapshot())); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}

func (d *Display) draw(img *image1bit.VerticalLSB) error {
	return d.screen.Draw(d.screen.Bounds(), img, image.Point{})
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, text string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

// RenderOrientation draws roll, pitch, yaw and temperature, or a waiting
// message before the first sample.
func RenderOrientation(data DisplayData) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	switch {
	case data.Disconnected:
		drawLine(drawer, 0, 26, "Sensor")
		drawLine(drawer, 0, 39, "disconnected")
	case !data.HaveData:
		drawLine(drawer, 0, 26, "Orientation")
		drawLine(drawer, 0, 39, "Waiting...")
	default:
		drawLine(drawer, 0, 13, fmt.Sprintf("R: %7.1f", data.Pose.Roll))
		drawLine(drawer, 0, 26, fmt.Sprintf("P: %7.1f", data.Pose.Pitch))
		drawLine(drawer, 0, 39, fmt.Sprintf("Y: %7.1f", data.Pose.Yaw))
		if data.Temp != nil {
			drawLine(drawer, 0, 52, fmt.Sprintf("T:%5.1fC %4.0fHz", *data.Temp, data.RateHz))
		} else {
			drawLine(drawer, 0, 52, fmt.Sprintf("%4.0fHz", data.RateHz))
		}
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newCanvas()
	drawLine(drawer, 10, 26, "IMU Visualizer")
	drawLine(drawer, 5, 43, "Waiting for")
	drawLine(drawer, 25, 56, "sensor")
	return img
}
