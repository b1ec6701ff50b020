package main

import (
	"log/slog"
	"os"
	"time"

	"zigsense-go/services/config"
	"zigsense-go/services/logging"
	"zigsense-go/services/node"
)

// Set with -ldflags "-X main.version=... -X main.device=...".
var (
	version = "dev"
	device  = ""
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(bootDelay)

	if err := config.LoadDotEnv(); err != nil {
		println("env:", err.Error())
	}
	if device == "" {
		device = defaultDevice
	}
	cfg, err := config.Load(device)
	if err != nil {
		println("config:", err.Error())
		os.Exit(1)
	}

	log := logging.New(cfg.Logging, version)
	slog.SetDefault(log)
	log.Info("boot", "device", device)

	n, err := node.New(node.Options{Config: cfg, Logger: log})
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := rootContext()
	defer stop()
	if err := n.Run(ctx); err != nil {
		log.Error("node failed", "err", err)
		os.Exit(1)
	}
}
