//go:build rp2040 || rp2350

package logging

import (
	"io"
	"os"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"zigsense-go/services/config"
)

// Console opens the UART named by cfg.Output. Anything else logs to the
// USB CDC console behind os.Stdout.
func Console(cfg config.LoggingConfig) io.Writer {
	var hw *uartx.UART
	switch cfg.Output {
	case "uart0":
		hw = uartx.UART0
	case "uart1":
		hw = uartx.UART1
	default:
		return os.Stdout
	}
	// Pins and format fall back to the uartx board defaults.
	if err := hw.Configure(uartx.UARTConfig{BaudRate: cfg.Baud}); err != nil {
		return os.Stdout
	}
	return hw
}
