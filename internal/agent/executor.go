// Package agent implements the Agent Executor: the bounded reason/act
// loop that drives a single Agent against a single Task, routing model
// responses through the tool registry and committing the outcome back to
// the Board Store.
package agent

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/tomatyss/taskter/internal/boardstore"
	"github.com/tomatyss/taskter/internal/errs"
	"github.com/tomatyss/taskter/internal/provider"
	"github.com/tomatyss/taskter/internal/tools"
)

// MaxIterations bounds the reason/act loop. The source carried two
// different defaults (10 and 20) in different places; this picks 20.
const MaxIterations = 20

// Executor runs a single task to completion against its assigned agent.
// It holds no per-task state between calls — every field is a shared,
// concurrency-safe collaborator, so N executors may run concurrently
// against N distinct tasks.
type Executor struct {
	store       *boardstore.Store
	registry    *tools.Registry
	providerCfg provider.Config
	client      *http.Client
}

// NewExecutor wires an Executor to its store, tool registry, and provider
// configuration (endpoint/env overrides).
func NewExecutor(store *boardstore.Store, registry *tools.Registry, cfg provider.Config) *Executor {
	return &Executor{
		store:       store,
		registry:    registry,
		providerCfg: cfg,
		client:      provider.NewHTTPClient(),
	}
}

// Execute runs the reason/act loop for taskID and returns the task's
// final on-disk state. A non-nil error means the run could not even
// start (unknown task/agent, no agent assigned, or a store failure) —
// those are fatal to the caller. Provider errors, tool errors, and
// iteration-limit exhaustion are NOT returned as errors: they are
// captured as a ToDo/unassigned/commented task, matching the documented
// CLI quirk that agent failures surface via task state, not exit code.
func (e *Executor) Execute(ctx context.Context, taskID int) (boardstore.Task, error) {
	board, err := e.store.LoadBoard()
	if err != nil {
		return boardstore.Task{}, err
	}
	task, ok := findTask(board, taskID)
	if !ok {
		return boardstore.Task{}, errs.New(errs.NotFound, fmt.Sprintf("task %d", taskID), nil)
	}
	if task.AgentID == nil {
		return boardstore.Task{}, errs.New(errs.InvalidArg, fmt.Sprintf("task %d has no assigned agent", taskID), nil)
	}

	agentsFile, err := e.store.LoadAgents()
	if err != nil {
		return boardstore.Task{}, err
	}
	ag, ok := findAgent(agentsFile, *task.AgentID)
	if !ok {
		return boardstore.Task{}, errs.New(errs.NotFound, fmt.Sprintf("agent %d", *task.AgentID), nil)
	}

	guard, err := AcquireRunningGuard(e.store, ag.ID)
	if err != nil {
		return boardstore.Task{}, err
	}
	defer guard.Release()

	e.logf("agent %d starting task %d", ag.ID, task.ID)

	userPrompt := composeUserPrompt(task)
	p := provider.Select(ag, e.providerCfg)
	apiKey := e.resolveAPIKey(p)

	if p.RequiresAPIKey() && strings.TrimSpace(apiKey) == "" {
		return e.offlineSimulate(task, ag)
	}

	history := p.BuildHistory(ag, userPrompt)
	for i := 0; i < MaxIterations; i++ {
		action, err := provider.Infer(ctx, e.client, e.store, p, ag, apiKey, history)
		if err != nil {
			return e.finishFailure(task.ID, errs.New(errs.ProviderError, "", err))
		}

		switch action.Kind {
		case provider.ActionText:
			return e.finishSuccess(task.ID, action.Content)
		case provider.ActionToolCall:
			e.logf("agent %d invoking tool %s for task %d", ag.ID, action.Name, task.ID)
			result := e.registry.Dispatch(ctx, action.Name, action.Args)
			toolResponse := result.Output
			if !result.OK {
				toolResponse = result.Error
				toolErr := errs.New(errs.ToolError, action.Name, fmt.Errorf("%s", result.Error))
				e.logf("agent %d tool %s failed for task %d (recovered into history): %v", ag.ID, action.Name, task.ID, toolErr)
			}
			history = p.AppendToolResult(ag, history, action.Name, action.Args, toolResponse, action.CallID)
		default:
			return e.finishFailure(task.ID, errs.New(errs.ProviderError, "", fmt.Errorf("unrecognized model action")))
		}
	}

	return e.finishFailure(task.ID, errs.New(errs.IterationLimit, "", fmt.Errorf("maximum iterations exceeded")))
}

// composeUserPrompt builds the task prompt as title plus, when present,
// two newlines and description.
func composeUserPrompt(task boardstore.Task) string {
	if task.Description == "" {
		return task.Title
	}
	return task.Title + "\n\n" + task.Description
}

// offlineSimulate is entered when the provider's required API key is
// absent. An agent carrying send_email among its tools gets a
// deterministic stubbed success; every other agent gets a deterministic
// failure asking for real credentials.
func (e *Executor) offlineSimulate(task boardstore.Task, ag boardstore.Agent) (boardstore.Task, error) {
	if hasTool(ag, "send_email") {
		return e.finishSuccess(task.ID, "simulated send: no GEMINI_API_KEY/OPENAI_API_KEY configured, email was not actually sent")
	}
	return e.finishFailure(task.ID, errs.New(errs.ConfigError, "", fmt.Errorf("real API credentials are required to execute this task")))
}

// resolveAPIKey prefers the layered config resolver's key for p (TOML file,
// TASKTER__PROVIDERS__* env, then --openai-api-key/--gemini-api-key/
// --ollama-api-key CLI flags, in that precedence) and falls back to the
// provider's raw env var only when the config layer found nothing — the
// same config-then-env order as the source's agent.rs, which tries
// config::provider_api_key(provider.name()) before std::env::var.
func (e *Executor) resolveAPIKey(p provider.ModelProvider) string {
	if key := strings.TrimSpace(e.providerCfg.APIKeyFor(p.Name())); key != "" {
		return key
	}
	return os.Getenv(p.APIKeyEnv())
}

func hasTool(ag boardstore.Agent, name string) bool {
	for _, t := range ag.Tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

func (e *Executor) finishSuccess(taskID int, comment string) (boardstore.Task, error) {
	board, err := e.store.MutateBoard(func(b *boardstore.Board) error {
		t, ok := findTaskPtr(b, taskID)
		if !ok {
			return errs.New(errs.NotFound, fmt.Sprintf("task %d", taskID), nil)
		}
		t.Status = boardstore.StatusDone
		t.Comment = comment
		return nil
	})
	if err != nil {
		return boardstore.Task{}, err
	}
	e.logf("task %d completed successfully", taskID)
	final, _ := findTask(board, taskID)
	return final, nil
}

// finishFailure transitions taskID back to ToDo and unassigned, setting its
// comment to cause's message. cause carries one of the §7 failure kinds
// (ProviderError, IterationLimit, ConfigError) so the taxonomy stays live
// end to end rather than collapsing into ad hoc strings.
func (e *Executor) finishFailure(taskID int, cause *errs.Error) (boardstore.Task, error) {
	comment := cause.Error()
	board, err := e.store.MutateBoard(func(b *boardstore.Board) error {
		t, ok := findTaskPtr(b, taskID)
		if !ok {
			return errs.New(errs.NotFound, fmt.Sprintf("task %d", taskID), nil)
		}
		t.Status = boardstore.StatusToDo
		t.AgentID = nil
		t.Comment = comment
		return nil
	})
	if err != nil {
		return boardstore.Task{}, err
	}
	e.logf("task %d failed: %s", taskID, comment)
	final, _ := findTask(board, taskID)
	return final, nil
}

// ExecuteTaskless runs a single provider round-trip for an agent with no
// pending tasks. The source's scheduler tick still invokes the agent even
// when it has nothing assigned, as a status check-in; this carries that
// behaviour forward without any board mutation, since there is no task to
// update. Outcomes are logged, never returned as a board-visible failure.
func (e *Executor) ExecuteTaskless(ctx context.Context, agentID int) error {
	agentsFile, err := e.store.LoadAgents()
	if err != nil {
		return err
	}
	ag, ok := findAgent(agentsFile, agentID)
	if !ok {
		return errs.New(errs.NotFound, fmt.Sprintf("agent %d", agentID), nil)
	}

	guard, err := AcquireRunningGuard(e.store, ag.ID)
	if err != nil {
		return err
	}
	defer guard.Release()

	e.logf("agent %d has no pending tasks; running task-less check-in", ag.ID)

	p := provider.Select(ag, e.providerCfg)
	apiKey := e.resolveAPIKey(p)
	if p.RequiresAPIKey() && strings.TrimSpace(apiKey) == "" {
		e.logf("agent %d task-less run: offline simulation, no action taken", ag.ID)
		return nil
	}

	history := p.BuildHistory(ag, "No tasks are currently assigned. Report status only.")
	action, err := provider.Infer(ctx, e.client, e.store, p, ag, apiKey, history)
	if err != nil {
		e.logf("agent %d task-less run failed: %v", ag.ID, err)
		return nil
	}
	if action.Kind == provider.ActionText {
		e.logf("agent %d task-less check-in: %s", ag.ID, action.Content)
	}
	return nil
}

func (e *Executor) logf(format string, args ...interface{}) {
	_ = e.store.AppendLog(fmt.Sprintf(format, args...))
}

func findTask(board boardstore.Board, id int) (boardstore.Task, bool) {
	for _, t := range board.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return boardstore.Task{}, false
}

func findTaskPtr(board *boardstore.Board, id int) (*boardstore.Task, bool) {
	for i := range board.Tasks {
		if board.Tasks[i].ID == id {
			return &board.Tasks[i], true
		}
	}
	return nil, false
}

func findAgent(file boardstore.AgentsFile, id int) (boardstore.Agent, bool) {
	for _, a := range file.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return boardstore.Agent{}, false
}
