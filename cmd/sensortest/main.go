// cmd/sensortest reads both sensors once per second over the shared bus and
// logs the raw values alongside their ×100 attribute encoding.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"zigsense-go/drivers/aht20"
	"zigsense-go/drivers/bh1750"
	"zigsense-go/services/config"
	"zigsense-go/services/i2cbus"
	"zigsense-go/services/logging"
	"zigsense-go/zcl"
)

const (
	period = 1 * time.Second
	// Cycles: 0 = loop forever
	cyclesToRun = 0
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)

	cfg, err := config.Load(deviceID)
	if err != nil {
		println("config:", err.Error())
		os.Exit(1)
	}
	log := logging.New(cfg.Logging, "sensortest").With("component", "sensortest")

	ctx := context.Background()
	bus := i2cbus.New(time.Duration(cfg.I2C.TimeoutMs) * time.Millisecond)
	pins := i2cbus.Pins{ID: cfg.I2C.Bus, SDA: cfg.I2C.SDA, SCL: cfg.I2C.SCL, Hz: cfg.I2C.Hz}
	if err := bus.Init(ctx, i2cbus.PlatformOpener(pins)); err != nil {
		log.Error("bus init failed", "err", err)
		os.Exit(1)
	}

	th := aht20.New(bus)
	if err := th.Configure(aht20.Config{}); err != nil {
		log.Error("aht20 handshake failed", "err", err)
		th = nil
	}
	lx := bh1750.New(bus)
	if err := lx.Configure(bh1750.Config{}); err != nil {
		log.Error("bh1750 handshake failed", "err", err)
		lx = nil
	}

	tick := time.NewTicker(period)
	defer tick.Stop()
	for cycle := 1; cyclesToRun == 0 || cycle <= cyclesToRun; cycle++ {
		if th != nil {
			readAHT20(log, th)
		}
		if lx != nil {
			readBH1750(log, lx)
		}
		<-tick.C
	}
}

func readAHT20(log *slog.Logger, d *aht20.Device) {
	s, err := d.Read()
	if err != nil {
		log.Warn("aht20 read failed", "err", err)
		return
	}
	t, _, _ := zcl.Centi(s.Celsius())
	h, _, _ := zcl.Centi(s.RelHumidity())
	log.Info("aht20", "temp_c", s.Celsius(), "temp_attr", t, "rh", s.RelHumidity(), "rh_attr", h)
}

func readBH1750(log *slog.Logger, d *bh1750.Device) {
	s, err := d.Read()
	if err != nil {
		log.Warn("bh1750 read failed", "err", err)
		return
	}
	v, sat, _ := zcl.Centi(s.Lux())
	log.Info("bh1750", "lux", s.Lux(), "raw", s.Raw, "attr", v, "saturated", sat)
}
