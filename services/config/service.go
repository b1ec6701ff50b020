package config

import (
	"context"
	"log/slog"

	"zigsense-go/bus"
	"zigsense-go/errcode"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey string

// CtxDeviceKey is the context key carrying the device id.
const CtxDeviceKey ctxKey = "device"

// WithDevice returns ctx carrying a device id.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, CtxDeviceKey, device)
}

// Topic returns config/<section>.
func Topic(section string) bus.Topic { return bus.T(configPrefix, section) }

// ConfigService publishes each section of the device config, retained, on
// config/<section>.
type ConfigService struct {
	Name string
	log  *slog.Logger
}

func NewConfigService(log *slog.Logger) *ConfigService {
	if log == nil {
		log = slog.Default()
	}
	return &ConfigService{Name: serviceName, log: log.With("component", serviceName)}
}

// Sections splits cfg into its bus payloads.
func (c *Config) Sections() map[string]any {
	return map[string]any{
		"device":    c.Device,
		"i2c":       c.I2C,
		"sensors":   c.Sensors,
		"zigbee":    c.Zigbee,
		"heartbeat": c.Heartbeat,
		"logging":   c.Logging,
		"mirror":    c.Mirror,
	}
}

// Publish loads the config of the device named in ctx and publishes it.
func (s *ConfigService) Publish(ctx context.Context, conn *bus.Connection) (*Config, error) {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return nil, errcode.New(errcode.InvalidConfig, "config.publish", "missing device id in context")
	}
	cfg, err := Load(device)
	if err != nil {
		return nil, err
	}
	s.PublishConfig(conn, cfg)
	s.log.Info("config published", "device", device)
	return cfg, nil
}

// PublishConfig publishes an already loaded config.
func (s *ConfigService) PublishConfig(conn *bus.Connection, cfg *Config) {
	for k, v := range cfg.Sections() {
		conn.Publish(conn.NewMessage(Topic(k), v, true))
	}
}
