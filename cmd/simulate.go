package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rvkernel/internal/app"
	"rvkernel/internal/formatting"
	"rvkernel/pkg/logging"
)

var (
	simulateDuration time.Duration
	simulateFail     []string
	simulateInitTime time.Duration
)

// simulateCmd boots the declared topology with placeholder services.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the declared topology with placeholder services",
	Long: `Starts every declared service with a placeholder implementation and keeps
the kernel running until interrupted or --duration elapses, then shuts down.

Use --fail to make a service's init fail and observe the cleanup and, for
critical services, the emergency stop it triggers.

Examples:
  rvkernel simulate --duration 5s
  rvkernel simulate --fail can-bus`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().DurationVar(&simulateDuration, "duration", 0, "Stop after this long (0 waits for a signal)")
	simulateCmd.Flags().StringSliceVar(&simulateFail, "fail", nil, "Services whose init fails")
	simulateCmd.Flags().DurationVar(&simulateInitTime, "init-time", 10*time.Millisecond, "Simulated init duration per service")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if _, err := newFormatter(); err != nil {
		return err
	}
	cfg, err := loadTopology()
	if err != nil {
		return err
	}

	appCfg := app.NewConfig(debug, false, configPath)
	appCfg.KernelConfig = &cfg
	appCfg.Output = cmd.OutOrStdout()
	appCfg.OutputFormat = formatting.OutputFormat(outputFormat)

	application, err := app.NewApplication(appCfg)
	if err != nil {
		return err
	}
	kernel := application.Services()

	failing := make(map[string]bool, len(simulateFail))
	for _, name := range simulateFail {
		if _, ok := cfg.Service(name); !ok {
			return fmt.Errorf("service %s is not declared", name)
		}
		failing[name] = true
	}

	impls := make(map[string]app.Implementation, len(cfg.Services))
	for _, spec := range cfg.Services {
		impls[spec.Name] = placeholder(spec.Name, failing[spec.Name])
	}
	if err := kernel.Bind(cfg.Services, impls); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if simulateDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, simulateDuration)
		defer cancel()
	}

	runErr := application.Run(ctx)
	if report, ok := kernel.Safety.LastReport(); ok {
		fmt.Fprintln(cmd.OutOrStdout(), kernel.Formatter.FormatEmergencyReport(report))
	}
	return runErr
}

func placeholder(name string, fail bool) app.Implementation {
	return app.Implementation{
		Init: func(ctx context.Context) (any, error) {
			select {
			case <-time.After(simulateInitTime):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if fail {
				return nil, fmt.Errorf("simulated init failure")
			}
			return name, nil
		},
		Stop: func(ctx context.Context, instance any) error {
			logging.Info("Simulate", "Stopped %v", instance)
			return nil
		},
	}
}
