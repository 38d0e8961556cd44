package config

import (
	"time"
)

// KernelConfig is the top-level configuration of the orchestration kernel.
type KernelConfig struct {
	Startup  StartupConfig  `yaml:"startup"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
	Events   EventsConfig   `yaml:"events"`
	Health   HealthConfig   `yaml:"health"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// Services optionally declares the service topology. Hosts map each
	// entry to an init operation; the CLI inspects it directly.
	Services []ServiceSpec `yaml:"services,omitempty"`
}

// StartupConfig tunes the startup walk.
type StartupConfig struct {
	MaxParallel          int           `yaml:"maxParallel"`          // Concurrent starts per stage (0 = unlimited)
	ServiceTimeout       time.Duration `yaml:"serviceTimeout"`       // Bound on each init (0 = none)
	HealthCheckOnStartup bool          `yaml:"healthCheckOnStartup"` // Probe each service right after init
}

// ShutdownConfig tunes ordinary and emergency stops.
type ShutdownConfig struct {
	BackgroundTaskTimeout time.Duration `yaml:"backgroundTaskTimeout"` // Wait for cancelled background tasks
	StopTimeout           time.Duration `yaml:"stopTimeout"`           // Bound on each stop operation
	Timeout               time.Duration `yaml:"timeout"`               // Bound on the whole shutdown
}

// EventsConfig tunes the lifecycle bus.
type EventsConfig struct {
	// ListenerTimeout bounds non-failure notifications per listener. Failure
	// notifications are never bounded.
	ListenerTimeout time.Duration `yaml:"listenerTimeout"`
	// Messages overrides the logged message template per event kind
	// (PreShutdown, Started, Stopped, Failed).
	Messages map[string]string `yaml:"messages,omitempty"`
}

// HealthConfig configures post-boot health monitoring.
type HealthConfig struct {
	Interval time.Duration `yaml:"interval"` // 0 disables periodic checks
	Timeout  time.Duration `yaml:"timeout"`  // Bound on each probe
}

// LoggingConfig selects log level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MetricsConfig enables the Prometheus collectors.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}
