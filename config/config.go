// Package config loads controller and responder configuration from YAML,
// with environment variable overrides for the values most often supplied
// at deploy time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TransportConfig selects and configures the driver.Driver a controller or
// responder talks to the bus through.
type TransportConfig struct {
	// Kind is "serial", "rp2040" or "simulate".
	Kind string `yaml:"kind"`
	// Device is the serial device path, e.g. /dev/ttyUSB0. Only used when
	// Kind is "serial".
	Device string `yaml:"device"`
	// BaudRate overrides the DMX512 default of 250000 if non-zero.
	BaudRate int `yaml:"baud_rate"`
}

// LoggingConfig mirrors telemetry.Config's shape so it round-trips through
// YAML without a manual conversion step at every call site.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ControllerConfig configures an RDM controller process.
type ControllerConfig struct {
	Transport      TransportConfig `yaml:"transport"`
	Logging        LoggingConfig   `yaml:"logging"`
	ManufacturerID uint16          `yaml:"manufacturer_id"`
	DeviceID       uint32          `yaml:"device_id"`
	MaxRetries     int             `yaml:"max_retries"`
	ReceiveTimeout time.Duration   `yaml:"receive_timeout"`
}

// ResponderConfig configures an RDM responder process.
type ResponderConfig struct {
	Transport            TransportConfig `yaml:"transport"`
	Logging              LoggingConfig   `yaml:"logging"`
	ManufacturerID       uint16          `yaml:"manufacturer_id"`
	DeviceID             uint32          `yaml:"device_id"`
	DeviceModelID        uint16          `yaml:"device_model_id"`
	ProductCategory      uint16          `yaml:"product_category"`
	SoftwareVersionID    uint32          `yaml:"software_version_id"`
	SoftwareVersionLabel string          `yaml:"software_version_label"`
	SupportedPIDs        []uint16        `yaml:"supported_pids"`
	// QueueCapacity bounds how many queued messages and status messages the
	// responder holds before dropping the oldest, per spec's queue capacity
	// build parameter.
	QueueCapacity int `yaml:"queue_capacity"`
}

func defaultControllerConfig() *ControllerConfig {
	return &ControllerConfig{
		Transport:      TransportConfig{Kind: "simulate", BaudRate: 250000},
		Logging:        LoggingConfig{Level: "info", Format: "text", Output: "stderr"},
		ManufacturerID: 0x7FF0,
		MaxRetries:     3,
		ReceiveTimeout: 500 * time.Millisecond,
	}
}

func defaultResponderConfig() *ResponderConfig {
	return &ResponderConfig{
		Transport:         TransportConfig{Kind: "simulate", BaudRate: 250000},
		Logging:           LoggingConfig{Level: "info", Format: "text", Output: "stderr"},
		ManufacturerID:    0x7FF0,
		ProductCategory:   0x0100, // PRODUCT_CATEGORY_FIXTURE
		SoftwareVersionID: 1,
		QueueCapacity:     16,
	}
}

// LoadController reads a ControllerConfig from a YAML file, falling back to
// defaults for anything the file omits, then applying environment overrides.
func LoadController(path string) (*ControllerConfig, error) {
	cfg := defaultControllerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyControllerEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LoadResponder reads a ResponderConfig from a YAML file, falling back to
// defaults for anything the file omits, then applying environment overrides.
func LoadResponder(path string) (*ResponderConfig, error) {
	cfg := defaultResponderConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyResponderEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Environment variables follow the pattern DMXRDM_SECTION_KEY and override
// whatever the YAML file set, matching the override order file < env.
func applyControllerEnvOverrides(cfg *ControllerConfig) {
	if v := os.Getenv("DMXRDM_TRANSPORT_DEVICE"); v != "" {
		cfg.Transport.Device = v
	}
	if v := os.Getenv("DMXRDM_TRANSPORT_KIND"); v != "" {
		cfg.Transport.Kind = v
	}
	if v := os.Getenv("DMXRDM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DMXRDM_MANUFACTURER_ID"); v != "" {
		if n, err := strconv.ParseUint(v, 0, 16); err == nil {
			cfg.ManufacturerID = uint16(n)
		}
	}
}

func applyResponderEnvOverrides(cfg *ResponderConfig) {
	if v := os.Getenv("DMXRDM_TRANSPORT_DEVICE"); v != "" {
		cfg.Transport.Device = v
	}
	if v := os.Getenv("DMXRDM_TRANSPORT_KIND"); v != "" {
		cfg.Transport.Kind = v
	}
	if v := os.Getenv("DMXRDM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DMXRDM_MANUFACTURER_ID"); v != "" {
		if n, err := strconv.ParseUint(v, 0, 16); err == nil {
			cfg.ManufacturerID = uint16(n)
		}
	}
}

// Validate checks cfg for configuration errors.
func (c *ControllerConfig) Validate() error {
	var errs []string

	switch strings.ToLower(c.Transport.Kind) {
	case "serial":
		if c.Transport.Device == "" {
			errs = append(errs, "transport.device is required for transport.kind=serial")
		}
	case "rp2040", "simulate":
	default:
		errs = append(errs, fmt.Sprintf("transport.kind %q is not one of serial, rp2040, simulate", c.Transport.Kind))
	}

	if c.MaxRetries < 0 {
		errs = append(errs, "max_retries must not be negative")
	}
	if c.ReceiveTimeout <= 0 {
		errs = append(errs, "receive_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks cfg for configuration errors.
func (c *ResponderConfig) Validate() error {
	var errs []string

	switch strings.ToLower(c.Transport.Kind) {
	case "serial":
		if c.Transport.Device == "" {
			errs = append(errs, "transport.device is required for transport.kind=serial")
		}
	case "rp2040", "simulate":
	default:
		errs = append(errs, fmt.Sprintf("transport.kind %q is not one of serial, rp2040, simulate", c.Transport.Kind))
	}

	if c.DeviceID == 0 {
		errs = append(errs, "device_id is required and must be non-zero")
	}
	if c.DeviceID == 0xFFFFFFFF {
		errs = append(errs, "device_id must not be the broadcast sentinel 0xFFFFFFFF")
	}
	if c.QueueCapacity <= 0 {
		errs = append(errs, "queue_capacity must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
