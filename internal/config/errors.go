package config

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInvalidConfig means the merged configuration failed validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig means a config source could not be read or parsed.
	ErrLoadConfig = errors.New("load config failed")
)
