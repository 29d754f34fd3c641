// Command taskter is a single-user, file-backed Kanban board whose cards
// can be picked up and worked by LLM agents.
package main

import (
	"fmt"
	"os"

	"github.com/tomatyss/taskter/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
