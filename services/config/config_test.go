package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zigsense-go/bus"
	"zigsense-go/errcode"
	"zigsense-go/types"
)

func withLookup(t *testing.T, docs map[string]string) {
	t.Helper()
	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		s, ok := docs[device]
		return []byte(s), ok
	}
	t.Cleanup(func() { EmbeddedConfigLookup = old })
}

func TestLoadEmbeddedDevices(t *testing.T) {
	for _, dev := range []string{"pico", "bench"} {
		cfg, err := Load(dev)
		require.NoError(t, err, dev)
		assert.Equal(t, uint8(10), cfg.Zigbee.Endpoint, dev)
		assert.Equal(t, uint16(300), cfg.Zigbee.Reporting.MaxInterval, dev)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	withLookup(t, map[string]string{"min": "device:\n  model: tiny\n"})

	cfg, err := Load("min")
	require.NoError(t, err)
	assert.Equal(t, "tiny", cfg.Device.Model)
	assert.Equal(t, "zigsense", cfg.Device.Manufacturer)
	assert.Equal(t, uint16(10), cfg.Sensors.IntervalSeconds)
	assert.Equal(t, 10.0, cfg.Zigbee.TempMinC)
	assert.Equal(t, 50.0, cfg.Zigbee.TempMaxC)
	assert.Equal(t, uint32(0x07FFF800), cfg.Zigbee.ChannelMask)
	assert.Equal(t, 1000, cfg.Zigbee.RetryDelayMs)
	assert.Equal(t, uint8(0x04), cfg.Device.PowerSourceCode())
}

func TestLoadUnknownDevice(t *testing.T) {
	_, err := Load("nope")
	assert.ErrorIs(t, err, errcode.InvalidConfig)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero interval":  "sensors:\n  interval: 0\n",
		"bad policy":     "sensors:\n  fault_policy: ignore\n",
		"bounds":         "zigbee:\n  temp_min_c: 60\n",
		"endpoint":       "zigbee:\n  endpoint: 241\n",
		"long model":     "device:\n  model: 0123456789012345678901234567890123\n",
		"mirror broker":  "mirror:\n  enabled: true\n  broker: \"\"\n",
		"bus":            "i2c:\n  bus: i2c7\n",
		"no sensors":     "sensors:\n  aht20: {enabled: false}\n  bh1750: {enabled: false}\n",
		"channel mask":   "zigbee:\n  channel_mask: 1\n",
		"malformed yaml": "device: [",
	}
	docs := map[string]string{}
	for name, doc := range cases {
		docs[name] = doc
	}
	withLookup(t, docs)

	for name := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(name)
			assert.Equal(t, errcode.InvalidConfig, errcode.Of(err))
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	withLookup(t, map[string]string{"dev": "{}"})
	t.Setenv("ZIGSENSE_SENSORS_INTERVAL", "3")
	t.Setenv("ZIGSENSE_LOG_LEVEL", "debug")
	t.Setenv("ZIGSENSE_MIRROR_BROKER", "tcp://broker:1883")

	cfg, err := Load("dev")
	require.NoError(t, err)
	assert.Equal(t, uint16(3), cfg.Sensors.IntervalSeconds)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Mirror.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.Mirror.Broker)
}

func TestEnvOverrideParseError(t *testing.T) {
	withLookup(t, map[string]string{"dev": "{}"})
	t.Setenv("ZIGSENSE_SENSORS_INTERVAL", "soon")

	_, err := Load("dev")
	assert.ErrorIs(t, err, errcode.InvalidConfig)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.env")
	require.NoError(t, os.WriteFile(path, []byte("ZIGSENSE_SENSORS_FAULT_POLICY=fatal\n"), 0o600))
	t.Setenv("ZIGSENSE_SENSORS_FAULT_POLICY", "")
	os.Unsetenv("ZIGSENSE_SENSORS_FAULT_POLICY")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "fatal", os.Getenv("ZIGSENSE_SENSORS_FAULT_POLICY"))
}

func TestService_PublishRetainedPerSection(t *testing.T) {
	withLookup(t, map[string]string{"pico": "heartbeat:\n  interval: 2\n"})

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService(nil)

	cfg, err := svc.Publish(WithDevice(context.Background(), "pico"), conn)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Subscribing afterwards still yields every section.
	sub := conn.Subscribe(bus.T(configPrefix, "#"))
	want := len(cfg.Sections())
	got := map[string]any{}
	deadline := time.After(time.Second)
	for len(got) < want {
		select {
		case m := <-sub.Channel():
			require.Len(t, m.Topic, 2)
			assert.True(t, m.Retained)
			got[m.Topic[1]] = m.Payload
		case <-deadline:
			t.Fatalf("got %d of %d sections", len(got), want)
		}
	}
	assert.Equal(t, types.HeartbeatConfig{IntervalSeconds: 2}, got["heartbeat"])
}

func TestService_MissingDevice(t *testing.T) {
	b := bus.NewBus(4)
	_, err := NewConfigService(nil).Publish(context.Background(), b.NewConnection("c"))
	assert.ErrorIs(t, err, errcode.InvalidConfig)
}
