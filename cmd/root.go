package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rvkernel/internal/config"
	"rvkernel/internal/dependency"
	"rvkernel/internal/formatting"
	"rvkernel/internal/services"
	"rvkernel/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfig indicates an unreadable or invalid configuration, including
	// dependencies on services that are not declared.
	ExitCodeConfig = 2
	// ExitCodeCycle indicates the topology contains a circular dependency.
	ExitCodeCycle = 3
	// ExitCodeStartup indicates a service failed to start.
	ExitCodeStartup = 4
)

var (
	configPath   string
	outputFormat string
	debug        bool
)

// rootCmd represents the base command for the rvkernel application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rvkernel",
	Short: "Inspect and run the vehicle service orchestration kernel",
	Long: `rvkernel resolves the dependency topology of vehicle control services,
starts them stage by stage, and drives them to a safe state when a
safety-critical service fails.

The topology is read from the services section of the configuration file.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelWarn
		if debug {
			level = logging.LevelDebug
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "rvkernel version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and service managers.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if config.IsLoadError(err) || dependency.IsConfigurationError(err) {
		return ExitCodeConfig
	}
	if dependency.IsCycleError(err) {
		return ExitCodeCycle
	}
	if services.IsStartupError(err) {
		return ExitCodeStartup
	}
	return ExitCodeError
}

// errNoTopology is returned by inspection commands when the configuration
// declares no services.
var errNoTopology = errors.New("no services declared")

// loadTopology reads the configuration and requires a non-empty topology.
func loadTopology() (config.KernelConfig, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.KernelConfig{}, err
	}
	if len(cfg.Services) == 0 {
		return config.KernelConfig{}, fmt.Errorf("%w in %s", errNoTopology, configPath)
	}
	return cfg, nil
}

func newFormatter() (formatting.Formatter, error) {
	format := formatting.OutputFormat(outputFormat)
	switch format {
	case formatting.FormatTable, formatting.FormatConsole, formatting.FormatJSON, formatting.FormatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, console, json or yaml)", outputFormat)
	}
	return formatting.NewFactory().CreateFormatter(formatting.Options{Format: format}), nil
}

func init() {
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to the kernel configuration file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", string(formatting.FormatTable), "Output format (table, console, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}
