package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomatyss/taskter/internal/boardstore"
)

var (
	taskTitle       string
	taskDescription string
	taskStatus      string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create or manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new task",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by status",
	RunE:  runTaskList,
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign <task-id> <agent-id>",
	Short: "Assign an agent to a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskAssign,
}

var taskUnassignCmd = &cobra.Command{
	Use:   "unassign <task-id>",
	Short: "Clear a task's agent assignment",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskUnassign,
}

var taskExecuteCmd = &cobra.Command{
	Use:   "execute <task-id>",
	Short: "Run the assigned agent's reason/act loop against a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskExecute,
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id> [comment]",
	Short: "Mark a task Done with an optional comment, without running an agent",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskComplete,
}

var taskCommentCmd = &cobra.Command{
	Use:   "comment <task-id> <text>",
	Short: "Set a task's comment",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskComment,
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <task-id>",
	Short: "Edit a task's title and/or description",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskEdit,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskTitle, "title", "t", "", "task title (required)")
	taskAddCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "task description")
	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "filter by status: ToDo, InProgress, Blocked, Done")
	taskEditCmd.Flags().StringVarP(&taskTitle, "title", "t", "", "new title")
	taskEditCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "new description")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskAssignCmd, taskUnassignCmd, taskExecuteCmd, taskCompleteCmd, taskCommentCmd, taskEditCmd, taskDeleteCmd)
}

func parseTaskID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid task id: %s", s)
	}
	return id, nil
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(taskTitle) == "" {
		return fmt.Errorf("--title is required")
	}
	s, err := mustStore()
	if err != nil {
		return err
	}
	board, err := s.MutateBoard(func(b *boardstore.Board) error {
		id := b.NextTaskID()
		b.Tasks = append(b.Tasks, boardstore.Task{
			ID:          id,
			Title:       taskTitle,
			Description: taskDescription,
			Status:      boardstore.StatusToDo,
		})
		return nil
	})
	if err != nil {
		return err
	}
	created := board.Tasks[len(board.Tasks)-1]
	_ = s.AppendLog(fmt.Sprintf("task %d created: %s", created.ID, created.Title))
	fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d: %s [%s]\n", created.ID, created.Title, created.Status)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	board, err := s.LoadBoard()
	if err != nil {
		return err
	}

	filter := boardstore.TaskStatus(taskStatus)
	printed := 0
	for _, t := range board.Tasks {
		if filter != "" && t.Status != filter {
			continue
		}
		agentLabel := "-"
		if t.AgentID != nil {
			agentLabel = strconv.Itoa(*t.AgentID)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "#%-4d %-11s agent:%-4s %s\n", t.ID, t.Status, agentLabel, t.Title)
		printed++
	}
	if printed == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tasks found.")
	}
	return nil
}

func runTaskAssign(cmd *cobra.Command, args []string) error {
	taskID, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	agentID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid agent id: %s", args[1])
	}
	s, err := mustStore()
	if err != nil {
		return err
	}

	if _, err := s.LoadAgents(); err != nil {
		return err
	}
	_, err = s.MutateBoard(func(b *boardstore.Board) error {
		t, ok := findTaskPtrCLI(b, taskID)
		if !ok {
			return fmt.Errorf("task #%d not found", taskID)
		}
		t.AgentID = &agentID
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Assigned task #%d to agent #%d\n", taskID, agentID)
	return nil
}

func runTaskUnassign(cmd *cobra.Command, args []string) error {
	taskID, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	s, err := mustStore()
	if err != nil {
		return err
	}
	_, err = s.MutateBoard(func(b *boardstore.Board) error {
		t, ok := findTaskPtrCLI(b, taskID)
		if !ok {
			return fmt.Errorf("task #%d not found", taskID)
		}
		t.AgentID = nil
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Unassigned task #%d\n", taskID)
	return nil
}

// runTaskExecute always exits 0 on structural success: an agent failure
// surfaces via the printed comment and the task's updated status, not via
// a non-zero exit code — a documented quirk this CLI preserves rather than
// silently "fixing" it.
func runTaskExecute(cmd *cobra.Command, args []string) error {
	taskID, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	s, err := mustStore()
	if err != nil {
		return err
	}
	exec, err := executorFor(s)
	if err != nil {
		return err
	}

	task, err := exec.Execute(cmd.Context(), taskID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Task #%d: %s\n", task.ID, task.Status)
	if task.Comment != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", task.Comment)
	}
	return nil
}

func runTaskComplete(cmd *cobra.Command, args []string) error {
	taskID, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	comment := strings.Join(args[1:], " ")
	s, err := mustStore()
	if err != nil {
		return err
	}
	_, err = s.MutateBoard(func(b *boardstore.Board) error {
		t, ok := findTaskPtrCLI(b, taskID)
		if !ok {
			return fmt.Errorf("task #%d not found", taskID)
		}
		t.Status = boardstore.StatusDone
		if comment != "" {
			t.Comment = comment
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Task #%d marked Done\n", taskID)
	return nil
}

func runTaskComment(cmd *cobra.Command, args []string) error {
	taskID, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	comment := strings.Join(args[1:], " ")
	s, err := mustStore()
	if err != nil {
		return err
	}
	_, err = s.MutateBoard(func(b *boardstore.Board) error {
		t, ok := findTaskPtrCLI(b, taskID)
		if !ok {
			return fmt.Errorf("task #%d not found", taskID)
		}
		t.Comment = comment
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Task #%d comment updated\n", taskID)
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	taskID, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	s, err := mustStore()
	if err != nil {
		return err
	}
	_, err = s.MutateBoard(func(b *boardstore.Board) error {
		t, ok := findTaskPtrCLI(b, taskID)
		if !ok {
			return fmt.Errorf("task #%d not found", taskID)
		}
		if cmd.Flags().Changed("title") {
			t.Title = taskTitle
		}
		if cmd.Flags().Changed("description") {
			t.Description = taskDescription
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Task #%d updated\n", taskID)
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	taskID, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	s, err := mustStore()
	if err != nil {
		return err
	}

	running, err := s.LoadRunningAgents()
	if err != nil {
		return err
	}
	_, err = s.MutateBoard(func(b *boardstore.Board) error {
		t, ok := findTaskPtrCLI(b, taskID)
		if !ok {
			return fmt.Errorf("task #%d not found", taskID)
		}
		if t.AgentID != nil {
			for _, r := range running {
				if r == *t.AgentID {
					return fmt.Errorf("task #%d is currently executing, cannot delete", taskID)
				}
			}
		}
		out := b.Tasks[:0]
		for _, existing := range b.Tasks {
			if existing.ID != taskID {
				out = append(out, existing)
			}
		}
		b.Tasks = out
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted task #%d\n", taskID)
	return nil
}

func findTaskPtrCLI(b *boardstore.Board, id int) (*boardstore.Task, bool) {
	for i := range b.Tasks {
		if b.Tasks[i].ID == id {
			return &b.Tasks[i], true
		}
	}
	return nil, false
}
