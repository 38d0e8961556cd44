package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"rvkernel/internal/config"
	"rvkernel/internal/services"
	"rvkernel/pkg/logging"
)

// runKernel starts every registered service, reports readiness, monitors
// health until ctx ends and then shuts everything down.
//
// A failed startup has already been cleaned up by the registry when
// StartupAll returns; its error is returned unchanged so callers can map it
// to an exit code.
func runKernel(ctx context.Context, cfg *Config, s *Services) error {
	kcfg := cfg.KernelConfig
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = systemdNotifier{}
	}

	logging.Info("Bootstrap", "--- Starting %d services ---", len(s.Registry.Names()))
	if err := s.Registry.StartupAll(ctx); err != nil {
		logging.Error("Bootstrap", err, "Startup failed")
		notify(notifier, statusMessage("startup failed: %v", err))
		writeReport(cfg.Output, s.Formatter.FormatStartupReport(s.Registry.StartupReport()))
		return err
	}

	writeReport(cfg.Output, s.Formatter.FormatStartupReport(s.Registry.StartupReport()))
	notify(notifier, daemon.SdNotifyReady)
	notify(notifier, statusMessage("%d services healthy", len(s.Registry.Names())))
	logging.Info("Bootstrap", "Services started. Waiting for shutdown signal.")

	monitorHealth(ctx, kcfg.Health.Interval, s, cfg.Output)

	logging.Info("Bootstrap", "--- Shutting down services ---")
	notify(notifier, daemon.SdNotifyStopping)

	// The caller's context is done by now.
	shutdownCtx := context.WithoutCancel(ctx)
	if kcfg.Shutdown.Timeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, kcfg.Shutdown.Timeout)
		defer cancel()
	}
	if err := s.Registry.ShutdownAll(shutdownCtx); err != nil {
		// Shutdown faults are informational; every service was still attempted.
		logging.Warn("Bootstrap", "Shutdown completed with errors: %v", err)
	}
	return nil
}

// monitorHealth re-checks every running service each interval and logs
// Healthy/Degraded transitions. It returns when ctx ends.
func monitorHealth(ctx context.Context, interval time.Duration, s *Services, out io.Writer) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	last := make(map[string]services.Status)
	for _, h := range s.Registry.HealthSnapshot(ctx, false) {
		last[h.Name] = h.Status
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := s.Registry.HealthSnapshot(ctx, true)
			changed := false
			for _, h := range snapshot {
				prev, seen := last[h.Name]
				if seen && prev != h.Status {
					changed = true
					if h.Err != nil {
						logging.Warn("Health", "Service %s is now %s: %v", h.Name, h.Status, h.Err)
					} else {
						logging.Info("Health", "Service %s is now %s", h.Name, h.Status)
					}
				}
				last[h.Name] = h.Status
			}
			if changed {
				writeReport(out, s.Formatter.FormatHealth(snapshot))
			}
		}
	}
}

func writeReport(out io.Writer, report string) {
	if out == nil || report == "" {
		return
	}
	if !strings.HasSuffix(report, "\n") {
		report += "\n"
	}
	if _, err := io.WriteString(out, report); err != nil {
		logging.Debug("Bootstrap", "Could not write report: %v", err)
	}
}

// loadKernelConfig reads the configuration file named by cfg.
func loadKernelConfig(cfg *Config) (*config.KernelConfig, error) {
	path := cfg.ConfigPath
	if path == "" {
		path = config.DefaultConfigPath
	}
	kcfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load kernel configuration from %s: %w", path, err)
	}
	return &kcfg, nil
}
