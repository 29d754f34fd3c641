package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Append to or read the project log",
}

var logsAddCmd = &cobra.Command{
	Use:   "add <message>",
	Short: "Append a line to logs.log",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLogsAdd,
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print logs.log in append order",
	RunE:  runLogsList,
}

func init() {
	logsCmd.AddCommand(logsAddCmd, logsListCmd)
}

func runLogsAdd(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	message := args[0]
	for _, a := range args[1:] {
		message += " " + a
	}
	if err := s.AppendLog(message); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged.")
	return nil
}

func runLogsList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	lines, err := s.LoadLogs()
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No log entries found.")
		return nil
	}
	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
