//go:build rp2040 || rp2350

package main

import (
	"context"
	"time"
)

const (
	defaultDevice = "pico"
	bootDelay     = 2 * time.Second
)

// The firmware runs until power-off.
func rootContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}
