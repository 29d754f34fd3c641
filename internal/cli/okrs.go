package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomatyss/taskter/internal/boardstore"
)

var okrKeyResults []string

var okrsCmd = &cobra.Command{
	Use:   "okrs",
	Short: "Manage objectives and key results",
}

var okrsAddCmd = &cobra.Command{
	Use:   "add <objective>",
	Short: "Add an objective with its key results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runOKRsAdd,
}

var okrsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List objectives and key results",
	RunE:  runOKRsList,
}

func init() {
	okrsAddCmd.Flags().StringArrayVar(&okrKeyResults, "kr", nil, "a key result (repeatable)")
	okrsCmd.AddCommand(okrsAddCmd, okrsListCmd)
}

func runOKRsAdd(cmd *cobra.Command, args []string) error {
	objective := strings.Join(args, " ")
	s, err := mustStore()
	if err != nil {
		return err
	}
	_, err = s.MutateOKRs(func(okrs *[]boardstore.OKR) error {
		*okrs = append(*okrs, boardstore.OKR{
			Objective:  objective,
			KeyResults: okrKeyResults,
		})
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added objective: %s\n", objective)
	return nil
}

func runOKRsList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	okrs, err := s.LoadOKRs()
	if err != nil {
		return err
	}
	if len(okrs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No objectives found.")
		return nil
	}
	for i, o := range okrs {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, o.Objective)
		for _, kr := range o.KeyResults {
			fmt.Fprintf(cmd.OutOrStdout(), "     - %s\n", kr)
		}
	}
	return nil
}
