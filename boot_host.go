//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

const (
	defaultDevice = "bench"
	bootDelay     = 0
)

func rootContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
