//go:build rp2040 || rp2350

package i2cbus

import (
	"machine"

	"tinygo.org/x/drivers"

	"zigsense-go/errcode"
)

// Pins selects and clocks a hardware bus.
type Pins struct {
	ID  string // "i2c0" or "i2c1"
	SDA int
	SCL int
	Hz  uint32
}

// PlatformOpener configures the selected RP2 I2C peripheral.
func PlatformOpener(p Pins) Opener {
	return func() (drivers.I2C, error) {
		var hw *machine.I2C
		switch p.ID {
		case "i2c0":
			hw = machine.I2C0
		case "i2c1":
			hw = machine.I2C1
		default:
			return nil, errcode.UnknownBus
		}
		sda := machine.Pin(p.SDA)
		scl := machine.Pin(p.SCL)
		sda.Configure(machine.PinConfig{Mode: machine.PinI2C})
		scl.Configure(machine.PinConfig{Mode: machine.PinI2C})
		if err := hw.Configure(machine.I2CConfig{SDA: sda, SCL: scl, Frequency: p.Hz}); err != nil {
			return nil, err
		}
		return hw, nil
	}
}
