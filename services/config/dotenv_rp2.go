//go:build rp2040 || rp2350

package config

// LoadDotEnv is a no-op on boards without a filesystem.
func LoadDotEnv(...string) error { return nil }
