package config

import "errors"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingRequired = errors.New("required configuration is missing")
	ErrConfigNotFound  = errors.New("configuration file not found")
)
