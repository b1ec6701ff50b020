package sensors

import (
	"context"

	"tinygo.org/x/drivers"

	"zigsense-go/drivers/bh1750"
)

// BH1750 samples ambient light in continuous 1 lx mode.
type BH1750 struct {
	dev *bh1750.Device
	cfg bh1750.Config
}

func NewBH1750(i2c drivers.I2C, cfg bh1750.Config) *BH1750 {
	if cfg.Mode == bh1750.PowerDown {
		cfg.Mode = bh1750.ContinuousHighRes
	}
	return &BH1750{dev: bh1750.New(i2c), cfg: cfg}
}

func (b *BH1750) Name() string { return "bh1750" }

func (b *BH1750) Handshake() error { return b.dev.Configure(b.cfg) }

func (b *BH1750) Measure(ctx context.Context) ([]Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := b.dev.Read()
	if err != nil {
		return nil, err
	}
	return []Reading{{Kind: Illuminance, Value: s.Lux()}}, nil
}
