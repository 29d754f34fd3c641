package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tomatyss/taskter/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the tool registry over the Model Context Protocol",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio until stdin closes",
	RunE:  runMCPServe,
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
}

func runMCPServe(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	reg := registryFor(s)
	server := mcp.New(reg, os.Stdin, os.Stdout)
	return server.Serve(cmd.Context())
}
