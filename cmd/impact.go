package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// impactCmd lists the services affected by a failure.
var impactCmd = &cobra.Command{
	Use:   "impact SERVICE",
	Short: "List the services impacted if SERVICE fails",
	Long: `Lists every service that depends on SERVICE through Required or Optional
edges, directly or transitively.

Examples:
  rvkernel impact can-bus`,
	Args: cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		cfg, err := loadTopology()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return cfg.Resolver().Names(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runImpact,
}

func init() {
	rootCmd.AddCommand(impactCmd)
}

func runImpact(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	cfg, err := loadTopology()
	if err != nil {
		return err
	}

	name := args[0]
	if _, ok := cfg.Service(name); !ok {
		return fmt.Errorf("service %s is not declared", name)
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatImpact(name, cfg.Resolver().ImpactedServices(name)))
	return nil
}
