package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomatyss/taskter/internal/scheduler"
)

var schedulerStopDeadline time.Duration

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run agents on their configured cron schedules",
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the cron daemon and block until interrupted",
	RunE:  runSchedulerRun,
}

func init() {
	schedulerRunCmd.Flags().DurationVar(&schedulerStopDeadline, "stop-deadline", 30*time.Second, "how long to wait for in-flight executors on shutdown")
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runSchedulerRun(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	exec, err := executorFor(s)
	if err != nil {
		return err
	}

	sched := scheduler.New(s, exec)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Scheduler running. Press Ctrl+C to stop.")

	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "Stopping scheduler...")
	sched.Stop(schedulerStopDeadline)
	fmt.Fprintln(cmd.OutOrStdout(), "Scheduler stopped.")
	return nil
}
