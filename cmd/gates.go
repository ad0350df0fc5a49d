package cmd

import (
	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/internal/outwriter"
	"github.com/spf13/cobra"
)

// gatesCmd lists the gate catalog.
var gatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "List every deployment gate with its category and source",
	Long: `Print the gate catalog in evaluation order.

Only ENFORCING gates can block a deployment; NON_ENFORCING gates are advisory.

Examples:
  gatekeeper gates
  gatekeeper gates --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := outwriter.NewOutWriter().WriteCatalog(cfg); err != nil {
			contract.LogFatal("Failed to print gate catalog", err)
		}
	},
}
