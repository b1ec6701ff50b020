// Package bh1750 provides a driver for the BH1750 ambient light sensor.
//
// A measurement is a mode write, a fixed settling delay and a two byte fetch:
//
//	d.SetMode(bh1750.ContinuousHighRes)
//	time.Sleep(d.Settle())
//	s, err := d.Collect()
//
// d.Read() performs the whole sequence.
package bh1750

import (
	"time"

	"tinygo.org/x/drivers"
)

// I2C addresses (ADDR pin low / high).
const (
	Address    = 0x23
	AddressAlt = 0x5C
)

// Mode is a measurement mode opcode.
type Mode byte

// Opcodes (per datasheet).
const (
	PowerDown Mode = 0x00
	PowerOn   Mode = 0x01
	Reset     Mode = 0x07

	ContinuousHighRes  Mode = 0x10 // 1 lx resolution
	ContinuousHighRes2 Mode = 0x11 // 0.5 lx resolution
	ContinuousLowRes   Mode = 0x13 // 4 lx resolution
	OneTimeHighRes     Mode = 0x20
	OneTimeHighRes2    Mode = 0x21
	OneTimeLowRes      Mode = 0x23
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x23 if zero.
	Address uint16
	// Mode used by Read(). Default ContinuousHighRes.
	Mode Mode
	// Settle is the fixed delay between the mode write and the fetch.
	// Default 30 ms.
	Settle time.Duration
}

func (c *Config) defaults() {
	if c.Address == 0 {
		c.Address = Address
	}
	if c.Mode == PowerDown {
		c.Mode = ContinuousHighRes
	}
	if c.Settle <= 0 {
		c.Settle = 30 * time.Millisecond
	}
}

// Device wraps an I2C connection to a BH1750 device.
type Device struct {
	bus drivers.I2C
	cfg Config
	buf [2]byte
}

// New creates a new BH1750 connection. It does not touch the device.
func New(bus drivers.I2C) *Device {
	d := &Device{bus: bus}
	d.cfg.defaults()
	return d
}

// Address returns the configured bus address.
func (d *Device) Address() uint16 { return d.cfg.Address }

// Configure applies cfg and powers the device on.
func (d *Device) Configure(cfg Config) error {
	cfg.defaults()
	d.cfg = cfg
	return d.SetMode(PowerOn)
}

// SetMode writes one opcode.
func (d *Device) SetMode(m Mode) error {
	return d.bus.Tx(d.cfg.Address, []byte{byte(m)}, nil)
}

// Settle returns the configured settling delay.
func (d *Device) Settle() time.Duration { return d.cfg.Settle }

// Collect fetches the last conversion result.
func (d *Device) Collect() (Sample, error) {
	if err := d.bus.Tx(d.cfg.Address, nil, d.buf[:]); err != nil {
		return Sample{}, err
	}
	return Sample{Raw: uint16(d.buf[0])<<8 | uint16(d.buf[1]), Mode: d.cfg.Mode}, nil
}

// Read sets the configured mode, waits Settle and fetches the result.
func (d *Device) Read() (Sample, error) {
	if err := d.SetMode(d.cfg.Mode); err != nil {
		return Sample{}, err
	}
	time.Sleep(d.cfg.Settle)
	return d.Collect()
}

// Sample is one raw conversion result.
type Sample struct {
	Raw  uint16
	Mode Mode
}

// Lux converts the raw count using the datasheet factor of 1.2 counts/lx
// (halved for the 0.5 lx modes).
func (s Sample) Lux() float64 {
	lux := float64(s.Raw) / 1.2
	if s.Mode == ContinuousHighRes2 || s.Mode == OneTimeHighRes2 {
		lux /= 2
	}
	return lux
}
