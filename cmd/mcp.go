package cmd

import (
	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:     "mcp",
	Short:   "Start the gatekeeper MCP server",
	Long:    `Launch an MCP server on stdio that lets AI agents evaluate local gates and list the gate catalog.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Logs already go to stderr, stdio is reserved for the protocol
		if err := mcp.StartMCPServer(rootCtx, cfg, version); err != nil {
			contract.LogFatal("MCP server stopped", err)
		}
	},
}
