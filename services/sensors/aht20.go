package sensors

import (
	"context"

	"tinygo.org/x/drivers"

	"zigsense-go/drivers/aht20"
)

// AHT20 samples temperature and relative humidity in one combined read.
type AHT20 struct {
	dev *aht20.Device
	cfg aht20.Config
}

func NewAHT20(i2c drivers.I2C, cfg aht20.Config) *AHT20 {
	return &AHT20{dev: aht20.New(i2c), cfg: cfg}
}

func (a *AHT20) Name() string { return "aht20" }

func (a *AHT20) Handshake() error { return a.dev.Configure(a.cfg) }

func (a *AHT20) Measure(ctx context.Context) ([]Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := a.dev.Read()
	if err != nil {
		return nil, err
	}
	return []Reading{
		{Kind: Temperature, Value: s.Celsius()},
		{Kind: Humidity, Value: s.RelHumidity()},
	}, nil
}
