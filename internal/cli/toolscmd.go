package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect the tool registry",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tool declaration available to agents",
	RunE:  runToolsList,
}

func init() {
	toolsCmd.AddCommand(toolsListCmd)
}

func runToolsList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	reg := registryFor(s)
	decls := reg.Declarations()
	if len(decls) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tools registered.")
		return nil
	}
	for _, d := range decls {
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", d.Name, d.Description)
	}
	return nil
}
