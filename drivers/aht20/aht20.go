// Package aht20 provides a driver for the AHT20 temperature/humidity sensor.
// It exposes a two-phase measurement API:
//
//	d.Trigger()              // start a measurement (fast)
//	s, err := d.Collect()    // fetch when ready; returns ErrNotReady while busy
//
// d.Read() performs trigger + bounded polling until ready.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.
package aht20

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// Address is the fixed I2C address.
const Address = 0x38

// Commands and status bits (per datasheet).
const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE
	cmdSoftReset  = 0xBA
	cmdStatus     = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

// Errors returned by the driver.
var (
	ErrTimeout      = errors.New("aht20: timeout")
	ErrNotReady     = errors.New("aht20: not ready")
	ErrUncalibrated = errors.New("aht20: calibration bit not set after init")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x38 if zero.
	Address uint16
	// PollInterval is used by Read() between Collect() attempts. Default 15 ms.
	PollInterval time.Duration
	// CollectTimeout bounds the total wait in Read(). Default 250 ms.
	CollectTimeout time.Duration
	// TriggerHint is the nominal conversion time Read() waits before the
	// first Collect(). Default 80 ms.
	TriggerHint time.Duration
}

func (c *Config) defaults() {
	if c.Address == 0 {
		c.Address = Address
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 15 * time.Millisecond
	}
	if c.CollectTimeout <= 0 {
		c.CollectTimeout = 250 * time.Millisecond
	}
	if c.TriggerHint <= 0 {
		c.TriggerHint = 80 * time.Millisecond
	}
}

// Device wraps an I2C connection to an AHT20 device.
type Device struct {
	bus drivers.I2C
	cfg Config
	buf [7]byte
}

// New creates a new AHT20 connection. The I2C bus must already be configured.
// It does not touch the device.
func New(bus drivers.I2C) *Device {
	d := &Device{bus: bus}
	d.cfg.defaults()
	return d
}

// Address returns the configured bus address.
func (d *Device) Address() uint16 { return d.cfg.Address }

// Configure applies cfg and performs the power-on handshake: if the status
// byte does not report calibration, the initialise command is sent and the
// status is checked again. Any bus failure is returned.
func (d *Device) Configure(cfg Config) error {
	cfg.defaults()
	d.cfg = cfg

	st, err := d.Status()
	if err != nil {
		return err
	}
	if st&statusCalibrated != 0 {
		return nil
	}
	if err := d.bus.Tx(d.cfg.Address, []byte{cmdInitialize, 0x08, 0x00}, nil); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)

	if st, err = d.Status(); err != nil {
		return err
	}
	if st&statusCalibrated == 0 {
		return ErrUncalibrated
	}
	return nil
}

// Reset issues a soft reset. Give the device ~20ms afterwards before using.
func (d *Device) Reset() error {
	return d.bus.Tx(d.cfg.Address, []byte{cmdSoftReset}, nil)
}

// Status reads and returns the status byte.
func (d *Device) Status() (byte, error) {
	data := []byte{0}
	if err := d.bus.Tx(d.cfg.Address, []byte{cmdStatus}, data); err != nil {
		return 0, err
	}
	return data[0], nil
}

// Trigger starts a measurement. It is a quick register write with no blocking.
func (d *Device) Trigger() error {
	return d.bus.Tx(d.cfg.Address, []byte{cmdTrigger, 0x33, 0x00}, nil)
}

// TriggerHint returns the nominal conversion time to wait before Collect.
func (d *Device) TriggerHint() time.Duration { return d.cfg.TriggerHint }

// Collect attempts to read one measurement. If the device is still
// converting, ErrNotReady is returned. Bus errors are returned as-is.
func (d *Device) Collect() (Sample, error) {
	data := d.buf[:]
	if err := d.bus.Tx(d.cfg.Address, nil, data); err != nil {
		return Sample{}, err
	}
	if data[0]&statusBusy != 0 {
		return Sample{}, ErrNotReady
	}
	return Sample{
		RawHumidity: (uint32(data[1]) << 12) | (uint32(data[2]) << 4) | (uint32(data[3]) >> 4),
		RawTemp:     (uint32(data[3]&0x0F) << 16) | (uint32(data[4]) << 8) | uint32(data[5]),
	}, nil
}

// Read performs a full measurement cycle: Trigger, wait the conversion hint,
// then poll Collect until it succeeds or CollectTimeout elapses.
func (d *Device) Read() (Sample, error) {
	if err := d.Trigger(); err != nil {
		return Sample{}, err
	}
	time.Sleep(d.cfg.TriggerHint)
	deadline := time.Now().Add(d.cfg.CollectTimeout)
	for {
		s, err := d.Collect()
		switch {
		case err == nil:
			return s, nil
		case errors.Is(err, ErrNotReady):
			if time.Now().After(deadline) {
				return Sample{}, ErrTimeout
			}
			time.Sleep(d.cfg.PollInterval)
		default:
			return Sample{}, err
		}
	}
}

// Sample holds the 20-bit raw readings.
type Sample struct {
	RawHumidity uint32
	RawTemp     uint32
}

// Celsius returns the temperature in °C.
func (s Sample) Celsius() float64 {
	return float64(s.RawTemp)*200/(1<<20) - 50
}

// RelHumidity returns relative humidity in percent.
func (s Sample) RelHumidity() float64 {
	return float64(s.RawHumidity) * 100 / (1 << 20)
}
