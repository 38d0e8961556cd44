package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rvkernel/internal/dependency"
)

// planCmd prints the startup plan of the declared topology.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the startup stages of the declared services",
	Long: `Resolves the declared topology and prints the startup stages together
with each service's effective dependencies, dependents and depth.
Fallback substitutions applied during resolution are listed as well.

Examples:
  rvkernel plan
  rvkernel plan -c ./vehicle.yaml -o json`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

// graphCmd prints the topology as a Mermaid diagram.
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the dependency graph as a Mermaid diagram",
	Long: `Prints the resolved topology as a Mermaid flowchart.
Required edges are solid, Optional edges dashed and Runtime edges dotted.`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(graphCmd)
}

func resolveTopology() (*dependency.Plan, error) {
	cfg, err := loadTopology()
	if err != nil {
		return nil, err
	}
	return cfg.Resolver().Plan()
}

func runPlan(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	plan, err := resolveTopology()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatPlan(plan))
	return nil
}

func runGraph(cmd *cobra.Command, args []string) error {
	plan, err := resolveTopology()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), plan.Mermaid())
	return nil
}
