package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/imu_visualizer/internal/frame"
	"github.com/relabs-tech/imu_visualizer/internal/fusion"
)

// Source kinds accepted by SOURCE.
const (
	SourceSerial = "serial"
	SourceBLE    = "ble"
	SourceMQTT   = "mqtt"
	SourceMock   = "mock"
)

// DisplayI2CAddr is the only address DISPLAY_I2C_ADDR accepts.
const DisplayI2CAddr = 0x3C

// Config holds all application configuration values.
type Config struct {
	// Telemetry source
	Source         string
	SerialPort     string
	SerialBaudRate int
	BLEDeviceName  string
	BLEScanTimeout int // milliseconds
	MockInterval   int // milliseconds
	MockFormat     frame.Format

	// Fusion defaults, adjustable at runtime from the web UI
	FusionAlpha          float64
	GyroThreshold        float64
	MAWindowSize         int
	DriftChangeThreshold float64
	DriftCompensation    bool

	// MQTT
	MQTTEnabled            bool
	MQTTBroker             string
	MQTTClientIDVisualizer string
	MQTTClientIDConsole    string
	MQTTClientIDProducer   string

	// Topics
	TopicOrientation  string
	TopicSample       string
	TopicRate         string
	TopicDecodeError  string
	TopicTelemetryRaw string

	// Web Server
	WebEnabled    bool
	WebServerPort int
	WebStaticDir  string
	HistorySize   int

	// Console
	ConsoleEnabled     bool
	ConsoleLogInterval int // milliseconds

	// Display
	DisplayEnabled        bool
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys the file does not set.
func Default() *Config {
	f := fusion.DefaultFusionConfig()
	return &Config{
		Source:         SourceSerial,
		SerialPort:     "/dev/ttyACM0",
		SerialBaudRate: 115200,
		BLEScanTimeout: 10000,
		MockInterval:   20,
		MockFormat:     frame.FormatJSONObject,

		FusionAlpha:          f.Alpha,
		GyroThreshold:        f.GyroThreshold,
		MAWindowSize:         f.MAWindowSize,
		DriftChangeThreshold: f.DriftChangeThreshold,
		DriftCompensation:    f.DriftCompensationEnabled,

		MQTTBroker:             "tcp://localhost:1883",
		MQTTClientIDVisualizer: "imu-visualizer",
		MQTTClientIDConsole:    "imu-console-subscriber",
		MQTTClientIDProducer:   "imu-producer-mock",

		TopicOrientation:  "imu/orientation",
		TopicSample:       "imu/sample",
		TopicRate:         "imu/rate",
		TopicDecodeError:  "imu/decode_error",
		TopicTelemetryRaw: "imu/raw",

		WebEnabled:    true,
		WebServerPort: 8080,
		WebStaticDir:  "web",
		HistorySize:   50,

		ConsoleLogInterval: 1000,

		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Telemetry source
	case "SOURCE":
		switch value {
		case SourceSerial, SourceBLE, SourceMQTT, SourceMock:
			c.Source = value
		default:
			return fmt.Errorf("SOURCE must be one of serial, ble, mqtt, mock, got %q", value)
		}
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = positiveInt(key, value)
	case "BLE_DEVICE_NAME":
		c.BLEDeviceName = value
	case "BLE_SCAN_TIMEOUT_MS":
		c.BLEScanTimeout, err = positiveInt(key, value)
	case "MOCK_SAMPLE_INTERVAL":
		c.MockInterval, err = positiveInt(key, value)
	case "MOCK_FORMAT":
		c.MockFormat, err = frame.ParseFormat(value)

	// Fusion
	case "FUSION_ALPHA":
		c.FusionAlpha, err = parseFloat(key, value)
	case "GYRO_THRESHOLD":
		c.GyroThreshold, err = parseFloat(key, value)
	case "MA_WINDOW_SIZE":
		c.MAWindowSize, err = parseInt(key, value)
	case "DRIFT_CHANGE_THRESHOLD":
		c.DriftChangeThreshold, err = parseFloat(key, value)
	case "DRIFT_COMPENSATION":
		c.DriftCompensation, err = parseBool(key, value)

	// MQTT
	case "MQTT_ENABLED":
		c.MQTTEnabled, err = parseBool(key, value)
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_VISUALIZER":
		c.MQTTClientIDVisualizer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value

	// Topics
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value
	case "TOPIC_SAMPLE":
		c.TopicSample = value
	case "TOPIC_RATE":
		c.TopicRate = value
	case "TOPIC_DECODE_ERROR":
		c.TopicDecodeError = value
	case "TOPIC_TELEMETRY_RAW":
		c.TopicTelemetryRaw = value

	// Web Server
	case "WEB_ENABLED":
		c.WebEnabled, err = parseBool(key, value)
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)
		if err == nil && (c.WebServerPort < 1 || c.WebServerPort > 65535) {
			err = fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
		}
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value
	case "HISTORY_SIZE":
		c.HistorySize, err = positiveInt(key, value)

	// Console
	case "CONSOLE_ENABLED":
		c.ConsoleEnabled, err = parseBool(key, value)
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = positiveInt(key, value)

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		// the ssd1306 driver only talks to its fixed address
		if addr != DisplayI2CAddr {
			return fmt.Errorf("DISPLAY_I2C_ADDR must be %#x, got %#x", DisplayI2CAddr, addr)
		}
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = positiveInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks cross-field requirements and the fusion ranges.
func (c *Config) validate() error {
	if c.Source == SourceSerial && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required for SOURCE=serial")
	}
	if (c.Source == SourceMQTT || c.MQTTEnabled) && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.Source == SourceMQTT && c.TopicTelemetryRaw == "" {
		return fmt.Errorf("TOPIC_TELEMETRY_RAW is required for SOURCE=mqtt")
	}
	if err := c.Fusion().Validate(); err != nil {
		return err
	}
	return nil
}

// Fusion returns the startup fusion settings.
func (c *Config) Fusion() fusion.FusionConfig {
	return fusion.FusionConfig{
		Alpha:                    c.FusionAlpha,
		GyroThreshold:            c.GyroThreshold,
		MAWindowSize:             c.MAWindowSize,
		DriftChangeThreshold:     c.DriftChangeThreshold,
		DriftCompensationEnabled: c.DriftCompensation,
	}
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func positiveInt(key, value string) (int, error) {
	v, err := parseInt(key, value)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %d", key, v)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
