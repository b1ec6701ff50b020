//go:build rp2040 || rp2350

package node

import (
	"context"
	"log/slog"

	"zigsense-go/bus"
	"zigsense-go/services/config"
)

// The mirror needs a network connection the boards do not have.
func startMirror(context.Context, config.MirrorConfig, *bus.Bus, *slog.Logger) error {
	return nil
}
