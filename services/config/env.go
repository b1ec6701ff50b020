package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables follow the pattern ZIGSENSE_SECTION_KEY.
const envPrefix = "ZIGSENSE_"

// applyEnvOverrides applies ZIGSENSE_* variables on top of the document.
func applyEnvOverrides(cfg *Config) error {
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := getenv("SENSORS_INTERVAL"); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("%sSENSORS_INTERVAL: %w", envPrefix, err)
		}
		cfg.Sensors.IntervalSeconds = uint16(n)
	}
	if v := getenv("SENSORS_FAULT_POLICY"); v != "" {
		cfg.Sensors.FaultPolicy = v
	}
	if v := getenv("ZIGBEE_SIM_STEERING_FAILURES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sZIGBEE_SIM_STEERING_FAILURES: %w", envPrefix, err)
		}
		cfg.Zigbee.SimSteeringFailures = n
	}
	if v := getenv("MIRROR_BROKER"); v != "" {
		cfg.Mirror.Broker = v
		cfg.Mirror.Enabled = true
	}
	if v := getenv("MIRROR_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sMIRROR_ENABLED: %w", envPrefix, err)
		}
		cfg.Mirror.Enabled = b
	}
	return nil
}

func getenv(key string) string { return os.Getenv(envPrefix + key) }
