package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomatyss/taskter/internal/boardstore"
)

var (
	agentPrompt   string
	agentModel    string
	agentProvider string
	agentTools    []string

	scheduleCron string
	scheduleOnce bool
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Create or manage agents",
}

var agentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new agent",
	RunE:  runAgentAdd,
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agents",
	RunE:  runAgentList,
}

var agentUpdateCmd = &cobra.Command{
	Use:   "update <agent-id>",
	Short: "Replace an agent's prompt, model, provider, and tool list",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentUpdate,
}

var agentRemoveCmd = &cobra.Command{
	Use:   "remove <agent-id>",
	Short: "Remove an agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentRemove,
}

var agentScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage an agent's cron schedule",
}

var agentScheduleSetCmd = &cobra.Command{
	Use:   "set <agent-id>",
	Short: "Set or replace an agent's cron schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentScheduleSet,
}

var agentScheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every agent's schedule",
	RunE:  runAgentScheduleList,
}

var agentScheduleRemoveCmd = &cobra.Command{
	Use:   "remove <agent-id>",
	Short: "Remove an agent's schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentScheduleRemove,
}

func init() {
	agentAddCmd.Flags().StringVar(&agentPrompt, "prompt", "", "system prompt (required)")
	agentAddCmd.Flags().StringVar(&agentModel, "model", "", "model name, e.g. gemini-2.5-pro, gpt-4.1, ollama:llama3 (required)")
	agentAddCmd.Flags().StringVar(&agentProvider, "provider", "", "explicit provider tag, overriding model-prefix inference")
	agentAddCmd.Flags().StringArrayVar(&agentTools, "tool", nil, "tool name to grant this agent (repeatable)")

	agentUpdateCmd.Flags().StringVar(&agentPrompt, "prompt", "", "new system prompt")
	agentUpdateCmd.Flags().StringVar(&agentModel, "model", "", "new model name")
	agentUpdateCmd.Flags().StringVar(&agentProvider, "provider", "", "new provider tag")
	agentUpdateCmd.Flags().StringArrayVar(&agentTools, "tool", nil, "tool name to grant this agent (repeatable, replaces the full list)")

	agentScheduleSetCmd.Flags().StringVar(&scheduleCron, "cron", "", "six-field cron expression, e.g. \"0 0 9 * * *\" (required)")
	agentScheduleSetCmd.Flags().BoolVar(&scheduleOnce, "once", false, "remove the schedule after its first trigger")

	agentScheduleCmd.AddCommand(agentScheduleSetCmd, agentScheduleListCmd, agentScheduleRemoveCmd)
	agentCmd.AddCommand(agentAddCmd, agentListCmd, agentUpdateCmd, agentRemoveCmd, agentScheduleCmd)
}

func parseAgentID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid agent id: %s", s)
	}
	return id, nil
}

// toolDeclarations resolves each --tool spec the way `agent add`/`agent
// update` always have: a spec naming an existing file is read and decoded
// as a full FunctionDeclaration (picking up description/parameters); any
// other spec falls back to a builtin tool name in the registry; a spec
// matching neither is an error.
func toolDeclarations(s *boardstore.Store, specs []string) ([]boardstore.FunctionDeclaration, error) {
	reg := registryFor(s)
	decls := make([]boardstore.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		if _, err := os.Stat(spec); err == nil {
			data, err := os.ReadFile(spec)
			if err != nil {
				return nil, fmt.Errorf("read tool spec %s: %w", spec, err)
			}
			var decl boardstore.FunctionDeclaration
			if err := json.Unmarshal(data, &decl); err != nil {
				return nil, fmt.Errorf("parse tool spec %s: %w", spec, err)
			}
			decls = append(decls, decl)
			continue
		}
		tool, ok := reg.Lookup(spec)
		if !ok {
			return nil, fmt.Errorf("unknown tool: %s", spec)
		}
		decls = append(decls, tool.Declaration)
	}
	return decls, nil
}

func runAgentAdd(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(agentPrompt) == "" || strings.TrimSpace(agentModel) == "" {
		return fmt.Errorf("--prompt and --model are required")
	}
	s, err := mustStore()
	if err != nil {
		return err
	}
	decls, err := toolDeclarations(s, agentTools)
	if err != nil {
		return err
	}
	af, err := s.MutateAgents(func(a *boardstore.AgentsFile) error {
		a.Agents = append(a.Agents, boardstore.Agent{
			ID:           a.NextAgentID(),
			SystemPrompt: agentPrompt,
			Model:        agentModel,
			Provider:     agentProvider,
			Tools:        decls,
		})
		return nil
	})
	if err != nil {
		return err
	}
	created := af.Agents[len(af.Agents)-1]
	fmt.Fprintf(cmd.OutOrStdout(), "Created agent #%d (model %s)\n", created.ID, created.Model)
	return nil
}

func runAgentList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	af, err := s.LoadAgents()
	if err != nil {
		return err
	}
	running, err := s.LoadRunningAgents()
	if err != nil {
		return err
	}
	runningSet := map[int]bool{}
	for _, id := range running {
		runningSet[id] = true
	}

	if len(af.Agents) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No agents found.")
		return nil
	}
	for _, a := range af.Agents {
		names := make([]string, len(a.Tools))
		for i, t := range a.Tools {
			names[i] = t.Name
		}
		status := ""
		if runningSet[a.ID] {
			status = " (running)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "#%-3d %-20s tools:[%s]%s\n", a.ID, a.Model, strings.Join(names, ","), status)
	}
	return nil
}

func runAgentUpdate(cmd *cobra.Command, args []string) error {
	agentID, err := parseAgentID(args[0])
	if err != nil {
		return err
	}
	s, err := mustStore()
	if err != nil {
		return err
	}
	var decls []boardstore.FunctionDeclaration
	if cmd.Flags().Changed("tool") {
		decls, err = toolDeclarations(s, agentTools)
		if err != nil {
			return err
		}
	}
	_, err = s.MutateAgents(func(a *boardstore.AgentsFile) error {
		idx := -1
		for i, existing := range a.Agents {
			if existing.ID == agentID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return fmt.Errorf("agent #%d not found", agentID)
		}
		if cmd.Flags().Changed("prompt") {
			a.Agents[idx].SystemPrompt = agentPrompt
		}
		if cmd.Flags().Changed("model") {
			a.Agents[idx].Model = agentModel
		}
		if cmd.Flags().Changed("provider") {
			a.Agents[idx].Provider = agentProvider
		}
		if cmd.Flags().Changed("tool") {
			a.Agents[idx].Tools = decls
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated agent #%d\n", agentID)
	return nil
}

func runAgentRemove(cmd *cobra.Command, args []string) error {
	agentID, err := parseAgentID(args[0])
	if err != nil {
		return err
	}
	s, err := mustStore()
	if err != nil {
		return err
	}

	board, err := s.LoadBoard()
	if err != nil {
		return err
	}
	for _, t := range board.Tasks {
		if t.AgentID != nil && *t.AgentID == agentID {
			return fmt.Errorf("agent #%d is still assigned to task #%d; unassign it first", agentID, t.ID)
		}
	}

	_, err = s.MutateAgents(func(a *boardstore.AgentsFile) error {
		out := a.Agents[:0]
		found := false
		for _, existing := range a.Agents {
			if existing.ID == agentID {
				found = true
				continue
			}
			out = append(out, existing)
		}
		if !found {
			return fmt.Errorf("agent #%d not found", agentID)
		}
		a.Agents = out
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := s.MutateSchedules(func(sf boardstore.SchedulesFile) (boardstore.SchedulesFile, error) {
		delete(sf, strconv.Itoa(agentID))
		return sf, nil
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed agent #%d\n", agentID)
	return nil
}

func runAgentScheduleSet(cmd *cobra.Command, args []string) error {
	agentID, err := parseAgentID(args[0])
	if err != nil {
		return err
	}
	if strings.TrimSpace(scheduleCron) == "" {
		return fmt.Errorf("--cron is required")
	}
	s, err := mustStore()
	if err != nil {
		return err
	}
	if _, err := s.MutateSchedules(func(sf boardstore.SchedulesFile) (boardstore.SchedulesFile, error) {
		sf[strconv.Itoa(agentID)] = boardstore.Schedule{
			Cron:     scheduleCron,
			Timezone: "America/New_York",
			Once:     scheduleOnce,
		}
		return sf, nil
	}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schedule set for agent #%d: %s (once=%v)\n", agentID, scheduleCron, scheduleOnce)
	return nil
}

func runAgentScheduleList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	sf, err := s.LoadSchedules()
	if err != nil {
		return err
	}
	if len(sf) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No schedules found.")
		return nil
	}
	for agentID, sched := range sf {
		fmt.Fprintf(cmd.OutOrStdout(), "agent #%-4s %-25s once=%v\n", agentID, sched.Cron, sched.Once)
	}
	return nil
}

func runAgentScheduleRemove(cmd *cobra.Command, args []string) error {
	agentID, err := parseAgentID(args[0])
	if err != nil {
		return err
	}
	s, err := mustStore()
	if err != nil {
		return err
	}
	if _, err := s.MutateSchedules(func(sf boardstore.SchedulesFile) (boardstore.SchedulesFile, error) {
		delete(sf, strconv.Itoa(agentID))
		return sf, nil
	}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed schedule for agent #%d\n", agentID)
	return nil
}
