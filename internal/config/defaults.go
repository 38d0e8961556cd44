package config

import "time"

const (
	// DefaultConfigPath is where the kernel looks for its configuration.
	DefaultConfigPath = "/etc/rvkernel/config.yaml"

	// DefaultBackgroundTaskTimeout bounds the wait for cancelled background tasks.
	DefaultBackgroundTaskTimeout = 5 * time.Second

	// DefaultStopTimeout bounds each stop operation.
	DefaultStopTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds the whole shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultListenerTimeout bounds non-failure lifecycle notifications.
	DefaultListenerTimeout = 2 * time.Second

	// DefaultHealthInterval is the period of post-boot health checks.
	DefaultHealthInterval = 30 * time.Second

	// DefaultHealthTimeout bounds each health probe.
	DefaultHealthTimeout = 5 * time.Second
)

// GetDefaultConfig returns the configuration used when no file is present.
func GetDefaultConfig() KernelConfig {
	return KernelConfig{
		Startup: StartupConfig{
			MaxParallel: 0,
		},
		Shutdown: ShutdownConfig{
			BackgroundTaskTimeout: DefaultBackgroundTaskTimeout,
			StopTimeout:           DefaultStopTimeout,
			Timeout:               DefaultShutdownTimeout,
		},
		Events: EventsConfig{
			ListenerTimeout: DefaultListenerTimeout,
		},
		Health: HealthConfig{
			Interval: DefaultHealthInterval,
			Timeout:  DefaultHealthTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
