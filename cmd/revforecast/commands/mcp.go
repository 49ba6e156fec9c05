package commands

import (
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the forecasting tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
