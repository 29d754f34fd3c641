package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomatyss/taskter/internal/boardstore"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize taskter in the current directory",
	Long:  "Creates the project data directory with empty board, agents, and OKR documents.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s := boardstore.New(cfg.Paths.DataDir)
	if err := s.EnsureInitialized(); err == nil {
		return fmt.Errorf("taskter already initialized in this directory (%s exists)", cfg.Paths.DataDir)
	}
	if err := s.Init(); err != nil {
		return fmt.Errorf("initialize %s: %w", cfg.Paths.DataDir, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized taskter in %s/\n\n", cfg.Paths.DataDir)
	fmt.Fprintln(cmd.OutOrStdout(), "Next steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  1. taskter description \"what this project is about\"")
	fmt.Fprintln(cmd.OutOrStdout(), "  2. taskter agent add --prompt \"...\" --model gemini-2.5-pro --tool run_bash")
	fmt.Fprintln(cmd.OutOrStdout(), "  3. taskter task add -t \"your task\"")
	fmt.Fprintln(cmd.OutOrStdout(), "  4. taskter board")

	return nil
}
