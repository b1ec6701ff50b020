// Package config resolves the node configuration for a device id and
// publishes its sections on the bus.
//
// Loading order:
//  1. defaults
//  2. the embedded YAML document for the device
//  3. ZIGSENSE_* environment variables (host builds; a .env file is honoured)
package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"zigsense-go/errcode"
	"zigsense-go/types"
	"zigsense-go/x/mathx"
)

// Config is the root of a device document.
type Config struct {
	Device    DeviceConfig          `yaml:"device"`
	I2C       I2CConfig             `yaml:"i2c"`
	Sensors   SensorsConfig         `yaml:"sensors"`
	Zigbee    ZigbeeConfig          `yaml:"zigbee"`
	Heartbeat types.HeartbeatConfig `yaml:"heartbeat"`
	Logging   LoggingConfig         `yaml:"logging"`
	Mirror    MirrorConfig          `yaml:"mirror"`
}

// DeviceConfig is the identity exposed on the Basic cluster.
type DeviceConfig struct {
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
	PowerSource  string `yaml:"power_source"` // unknown, mains, battery, dc
}

// I2CConfig selects the shared sensor bus.
type I2CConfig struct {
	Bus       string `yaml:"bus"` // i2c0 or i2c1
	SDA       int    `yaml:"sda"`
	SCL       int    `yaml:"scl"`
	Hz        uint32 `yaml:"hz"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// SensorConfig enables one peripheral.
type SensorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address uint16 `yaml:"address"` // 0 selects the chip default
}

type SensorsConfig struct {
	IntervalSeconds uint16       `yaml:"interval"`
	FaultPolicy     string       `yaml:"fault_policy"` // report or fatal
	AHT20           SensorConfig `yaml:"aht20"`
	BH1750          SensorConfig `yaml:"bh1750"`
}

type ReportingConfig struct {
	MinInterval uint16 `yaml:"min_interval"`
	MaxInterval uint16 `yaml:"max_interval"`
	Delta       uint16 `yaml:"delta"`
}

type ZigbeeConfig struct {
	Endpoint     uint8           `yaml:"endpoint"`
	TempMinC     float64         `yaml:"temp_min_c"`
	TempMaxC     float64         `yaml:"temp_max_c"`
	ChannelMask  uint32          `yaml:"channel_mask"`
	RetryDelayMs int             `yaml:"retry_delay_ms"`
	Reporting    ReportingConfig `yaml:"reporting"`
	// Loopback stack script, used where no radio is present.
	SimSteeringFailures int  `yaml:"sim_steering_failures"`
	SimMember           bool `yaml:"sim_member"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr or uart0/uart1 on MCU builds
	Baud   uint32 `yaml:"baud"`
}

// MirrorConfig controls the host-side MQTT attribute mirror.
type MirrorConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

// EmbeddedConfigLookup resolves the YAML document of a device id.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	s, ok := embeddedConfigs[device]
	return []byte(s), ok
}

// Load builds the configuration of one device.
func Load(device string) (*Config, error) {
	const op = "config.load"
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errcode.New(errcode.InvalidConfig, op, "no embedded config for device "+device)
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errcode.Wrap(errcode.InvalidConfig, op, fmt.Errorf("parsing %s: %w", device, err))
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, errcode.Wrap(errcode.InvalidConfig, op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errcode.Wrap(errcode.InvalidConfig, op, err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Manufacturer: "zigsense",
			Model:        "ZS-THL1",
			PowerSource:  "dc",
		},
		I2C: I2CConfig{
			Bus:       "i2c0",
			SDA:       4,
			SCL:       5,
			Hz:        100_000,
			TimeoutMs: 250,
		},
		Sensors: SensorsConfig{
			IntervalSeconds: 10,
			FaultPolicy:     "report",
			AHT20:           SensorConfig{Enabled: true},
			BH1750:          SensorConfig{Enabled: true},
		},
		Zigbee: ZigbeeConfig{
			Endpoint:     10,
			TempMinC:     10,
			TempMaxC:     50,
			ChannelMask:  0x07FFF800,
			RetryDelayMs: 1000,
			Reporting: ReportingConfig{
				MinInterval: 0,
				MaxInterval: 300,
				Delta:       100,
			},
		},
		Heartbeat: types.HeartbeatConfig{IntervalSeconds: 30},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
			Baud:   115200,
		},
		Mirror: MirrorConfig{
			ClientID:    "zigsense",
			TopicPrefix: "zigsense",
			QoS:         0,
		},
	}
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Device.Manufacturer) > 32 {
		errs = append(errs, "device.manufacturer longer than 32 bytes")
	}
	if len(c.Device.Model) > 32 {
		errs = append(errs, "device.model longer than 32 bytes")
	}
	if _, ok := powerSources[c.Device.PowerSource]; !ok {
		errs = append(errs, "device.power_source must be unknown, mains, battery or dc")
	}

	if c.I2C.Bus != "i2c0" && c.I2C.Bus != "i2c1" {
		errs = append(errs, "i2c.bus must be i2c0 or i2c1")
	}
	if c.I2C.TimeoutMs < 0 {
		errs = append(errs, "i2c.timeout_ms must not be negative")
	}

	if c.Sensors.IntervalSeconds < 1 {
		errs = append(errs, "sensors.interval must be at least 1")
	}
	if c.Sensors.FaultPolicy != "report" && c.Sensors.FaultPolicy != "fatal" {
		errs = append(errs, "sensors.fault_policy must be report or fatal")
	}
	if !c.Sensors.AHT20.Enabled && !c.Sensors.BH1750.Enabled {
		errs = append(errs, "at least one sensor must be enabled")
	}

	if !mathx.Between(c.Zigbee.Endpoint, 1, 240) {
		errs = append(errs, "zigbee.endpoint must be between 1 and 240")
	}
	if c.Zigbee.TempMinC >= c.Zigbee.TempMaxC {
		errs = append(errs, "zigbee.temp_min_c must be below temp_max_c")
	}
	if c.Zigbee.ChannelMask == 0 || c.Zigbee.ChannelMask&^0x07FFF800 != 0 {
		errs = append(errs, "zigbee.channel_mask must select channels 11..26 only")
	}
	if c.Zigbee.RetryDelayMs < 1 {
		errs = append(errs, "zigbee.retry_delay_ms must be positive")
	}
	if r := c.Zigbee.Reporting; r.MaxInterval != 0 && r.MinInterval > r.MaxInterval {
		errs = append(errs, "zigbee.reporting.min_interval above max_interval")
	}
	if c.Zigbee.SimSteeringFailures < 0 {
		errs = append(errs, "zigbee.sim_steering_failures must not be negative")
	}

	if c.Heartbeat.IntervalSeconds < 0 {
		errs = append(errs, "heartbeat.interval must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be debug, info, warn or error")
	}

	if c.Mirror.Enabled && c.Mirror.Broker == "" {
		errs = append(errs, "mirror.broker is required when the mirror is enabled")
	}
	if !mathx.Between(c.Mirror.QoS, 0, 2) {
		errs = append(errs, "mirror.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

var powerSources = map[string]uint8{
	"unknown": 0x00,
	"mains":   0x01,
	"battery": 0x03,
	"dc":      0x04,
}

// PowerSourceCode returns the Basic cluster enumeration of the configured
// power source.
func (d DeviceConfig) PowerSourceCode() uint8 { return powerSources[d.PowerSource] }
