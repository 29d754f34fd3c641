package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var descriptionCmd = &cobra.Command{
	Use:   "description [text]",
	Short: "Show or set the project description",
	Long:  "With no arguments, prints description.md. With arguments, overwrites it with the given text.",
	RunE:  runDescription,
}

func runDescription(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		text, err := s.LoadDescription()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	}

	text := strings.Join(args, " ")
	if err := s.SaveDescription(text); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Description updated.")
	return nil
}
