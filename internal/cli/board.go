package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomatyss/taskter/internal/boardstore"
)

// ANSI color codes.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the kanban board",
	RunE:  runBoard,
}

func runBoard(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	board, err := s.LoadBoard()
	if err != nil {
		return err
	}

	if len(board.Tasks) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%sBoard is empty.%s Create a task: %staskter task add -t \"...\"%s\n",
			colorDim, colorReset, colorCyan, colorReset)
		return nil
	}

	columns := map[boardstore.TaskStatus][]boardstore.Task{
		boardstore.StatusToDo:       {},
		boardstore.StatusInProgress: {},
		boardstore.StatusBlocked:    {},
		boardstore.StatusDone:       {},
	}
	for _, t := range board.Tasks {
		columns[t.Status] = append(columns[t.Status], t)
	}

	type col struct {
		status boardstore.TaskStatus
		label  string
		color  string
	}
	order := []col{
		{boardstore.StatusToDo, "TO DO", colorWhite},
		{boardstore.StatusInProgress, "IN PROGRESS", colorBlue},
		{boardstore.StatusBlocked, "BLOCKED", colorRed},
		{boardstore.StatusDone, "DONE", colorGreen},
	}

	colWidth := 24
	headerLine := ""
	sepLine := ""
	for _, c := range order {
		count := len(columns[c.status])
		header := fmt.Sprintf(" %s%s%s (%d)", c.color+colorBold, c.label, colorReset, count)
		visibleLen := len(fmt.Sprintf(" %s (%d)", c.label, count))
		padding := colWidth - visibleLen
		if padding < 0 {
			padding = 0
		}
		headerLine += header + strings.Repeat(" ", padding)
		sepLine += strings.Repeat("─", colWidth)
	}
	fmt.Fprintln(cmd.OutOrStdout(), headerLine)
	fmt.Fprintln(cmd.OutOrStdout(), colorDim + sepLine + colorReset)

	maxRows := 0
	for _, c := range order {
		if len(columns[c.status]) > maxRows {
			maxRows = len(columns[c.status])
		}
	}

	for i := 0; i < maxRows; i++ {
		line := ""
		for _, c := range order {
			tasks := columns[c.status]
			if i < len(tasks) {
				t := tasks[i]
				idStr := fmt.Sprintf("#%d", t.ID)
				titleStr := truncate(t.Title, colWidth-len(idStr)-3)
				card := fmt.Sprintf(" %s%s%s %s", colorYellow, idStr, colorReset, titleStr)
				visibleLen := len(fmt.Sprintf(" %s %s", idStr, titleStr))
				padding := colWidth - visibleLen
				if padding < 0 {
					padding = 0
				}
				line += card + strings.Repeat(" ", padding)
			} else {
				line += strings.Repeat(" ", colWidth)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)

		detailLine := ""
		for _, c := range order {
			tasks := columns[c.status]
			if i < len(tasks) {
				t := tasks[i]
				detail := ""
				visibleDetail := ""
				if t.AgentID != nil {
					label := "agent:" + strconv.Itoa(*t.AgentID)
					detail = fmt.Sprintf("    %s[%s]%s", colorCyan, label, colorReset)
					visibleDetail = fmt.Sprintf("    [%s]", label)
				}
				padding := colWidth - len(visibleDetail)
				if padding < 0 {
					padding = 0
				}
				detailLine += detail + strings.Repeat(" ", padding)
			} else {
				detailLine += strings.Repeat(" ", colWidth)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), detailLine)
		fmt.Fprintln(cmd.OutOrStdout())
	}

	total := len(board.Tasks)
	doneCount := len(columns[boardstore.StatusDone])
	inProgress := len(columns[boardstore.StatusInProgress])
	blockedCount := len(columns[boardstore.StatusBlocked])

	fmt.Fprintf(cmd.OutOrStdout(), "%s%d tasks%s", colorBold, total, colorReset)
	if doneCount > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s✓ %d done%s", colorGreen, doneCount, colorReset)
	}
	if inProgress > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s● %d in progress%s", colorBlue, inProgress, colorReset)
	}
	if blockedCount > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s⚠ %d blocked%s", colorRed, blockedCount, colorReset)
	}
	fmt.Fprintln(cmd.OutOrStdout())

	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
