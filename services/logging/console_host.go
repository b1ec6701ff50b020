//go:build !rp2040 && !rp2350

package logging

import (
	"io"
	"os"
	"strings"

	"zigsense-go/services/config"
)

// Console returns the process stream selected by cfg.Output.
func Console(cfg config.LoggingConfig) io.Writer {
	if strings.ToLower(cfg.Output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}
