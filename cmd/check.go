package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkStrict bool

// checkCmd validates the configuration and its topology.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and its service topology",
	Long: `Loads and validates the configuration, resolves the declared topology
and audits runtime dependencies against the declared services.

Missing Required dependencies exit with code 2 and circular dependencies
with code 3. Runtime gaps are reported but only fail with --strict.

Examples:
  rvkernel check -c ./vehicle.yaml
  rvkernel check --strict`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Fail when runtime dependencies are not declared")
}

func runCheck(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	cfg, err := loadTopology()
	if err != nil {
		return err
	}

	resolver := cfg.Resolver()
	plan, err := resolver.Plan()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration OK: %d services in %d stages\n", len(plan.Nodes), len(plan.Stages))
	for _, sub := range plan.Substitutions {
		fmt.Fprintf(out, "  %s uses %s in place of %s\n", sub.Service, sub.Fallback, sub.Missing)
	}

	missing := resolver.ValidateRuntimeDependencies(resolver.Names())
	fmt.Fprintln(out, formatter.FormatRuntimeAudit(missing))
	if checkStrict && len(missing) > 0 {
		return fmt.Errorf("%d services have undeclared runtime dependencies", len(missing))
	}
	return nil
}
