//go:build !rp2040 && !rp2350

package node

import (
	"context"
	"log/slog"

	"zigsense-go/bus"
	"zigsense-go/services/config"
	"zigsense-go/services/mirror"
)

func startMirror(ctx context.Context, cfg config.MirrorConfig, b *bus.Bus, log *slog.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	client, err := mirror.Connect(cfg)
	if err != nil {
		return err
	}
	m, err := mirror.New(client, cfg, log)
	if err != nil {
		client.Close()
		return err
	}
	m.Start(ctx, b.NewConnection("mirror"))
	go func() {
		<-ctx.Done()
		client.Close()
	}()
	log.Info("attribute mirror connected", "broker", cfg.Broker)
	return nil
}
