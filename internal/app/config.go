package app

import (
	"io"

	"rvkernel/internal/config"
	"rvkernel/internal/formatting"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// Silent suppresses log output
	Silent bool

	// Path of the kernel configuration file. Empty means
	// config.DefaultConfigPath.
	ConfigPath string

	// Kernel configuration. When set, ConfigPath is not read.
	KernelConfig *config.KernelConfig

	// Output receives the startup report and health transitions. Nil
	// disables them.
	Output       io.Writer
	OutputFormat formatting.OutputFormat

	// Notifier receives service manager readiness notifications. Nil
	// means systemd's sd_notify.
	Notifier Notifier
}

// NewConfig creates a new application configuration
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:        debug,
		Silent:       silent,
		ConfigPath:   configPath,
		OutputFormat: formatting.FormatTable,
	}
}
