package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"rvkernel/pkg/logging"
)

// Application bootstraps the kernel and runs it until it is signalled.
//
// The Application follows a two-phase pattern:
//  1. Bootstrap phase: load configuration, initialize logging, wire components
//  2. Execution phase: register services, then Run
//
// Example usage:
//
//	application, err := app.NewApplication(app.NewConfig(false, false, ""))
//	if err != nil {
//	    return err
//	}
//	if err := application.Services().Bind(cfg.Services, impls); err != nil {
//	    return err
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads the configuration, initializes logging and creates
// the kernel components. Services are registered afterwards through
// Services().
func NewApplication(cfg *Config) (*Application, error) {
	// Log to stdout at info until the configuration names a level.
	var logOutput io.Writer = os.Stdout
	if cfg.Silent {
		logOutput = io.Discard
	}
	bootLevel := logging.LevelInfo
	if cfg.Debug {
		bootLevel = logging.LevelDebug
	}
	logging.InitForCLI(bootLevel, logOutput)

	if cfg.KernelConfig == nil {
		kcfg, err := loadKernelConfig(cfg)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load kernel configuration")
			return nil, err
		}
		cfg.KernelConfig = kcfg
	} else if err := cfg.KernelConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kernel configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.KernelConfig.Logging.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(logging.Format(cfg.KernelConfig.Logging.Format), level, logOutput)

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services returns the kernel components, for registering services.
func (a *Application) Services() *Services {
	return a.services
}

// Run starts every registered service and blocks until ctx is cancelled
// or the process receives SIGINT or SIGTERM, then shuts down.
//
// Returns the startup error (a *services.StartupError or a dependency
// resolution error) when the kernel could not come up.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runKernel(ctx, a.config, a.services)
}
