package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomatyss/taskter/internal/boardstore"
	"github.com/tomatyss/taskter/internal/errs"
	"github.com/tomatyss/taskter/internal/provider"
	"github.com/tomatyss/taskter/internal/tools"
)

func newTestExecutor(t *testing.T) (*Executor, *boardstore.Store) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".taskter")
	store := boardstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	reg := tools.NewRegistry()
	tools.RegisterBuiltins(reg, store)
	return NewExecutor(store, reg, provider.Config{}), store
}

func newTestExecutorWithConfig(t *testing.T, cfg provider.Config) (*Executor, *boardstore.Store) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".taskter")
	store := boardstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	reg := tools.NewRegistry()
	tools.RegisterBuiltins(reg, store)
	return NewExecutor(store, reg, cfg), store
}

func seedTaskAndAgent(t *testing.T, store *boardstore.Store, agentTools []string, model string) int {
	t.Helper()
	var decls []boardstore.FunctionDeclaration
	for _, name := range agentTools {
		decls = append(decls, boardstore.FunctionDeclaration{Name: name})
	}

	agentsFile, err := store.MutateAgents(func(a *boardstore.AgentsFile) error {
		a.Agents = append(a.Agents, boardstore.Agent{
			ID:           a.NextAgentID(),
			SystemPrompt: "you are a helper",
			Tools:        decls,
			Model:        model,
		})
		return nil
	})
	if err != nil {
		t.Fatalf("MutateAgents: %v", err)
	}
	agentID := agentsFile.Agents[len(agentsFile.Agents)-1].ID

	board, err := store.MutateBoard(func(b *boardstore.Board) error {
		id := b.NextTaskID()
		b.Tasks = append(b.Tasks, boardstore.Task{
			ID:      id,
			Title:   "Do the thing",
			Status:  boardstore.StatusToDo,
			AgentID: &agentID,
		})
		return nil
	})
	if err != nil {
		t.Fatalf("MutateBoard: %v", err)
	}
	return board.Tasks[len(board.Tasks)-1].ID
}

func TestExecute_OfflineSimulationWithSendEmail(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	exec, store := newTestExecutor(t)
	taskID := seedTaskAndAgent(t, store, []string{"send_email"}, "gemini-2.5-pro")

	task, err := exec.Execute(context.Background(), taskID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != boardstore.StatusDone {
		t.Errorf("expected Done, got %s", task.Status)
	}
	if !strings.HasPrefix(task.Comment, "simulated") {
		t.Errorf("expected comment to start with 'simulated', got %q", task.Comment)
	}
	if task.AgentID == nil {
		t.Error("expected agent to remain assigned on success")
	}
}

func TestExecute_OfflineSimulationWithoutSendEmail(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	exec, store := newTestExecutor(t)
	taskID := seedTaskAndAgent(t, store, []string{"run_bash"}, "gemini-2.5-pro")

	task, err := exec.Execute(context.Background(), taskID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != boardstore.StatusToDo {
		t.Errorf("expected ToDo, got %s", task.Status)
	}
	if task.AgentID != nil {
		t.Error("expected agent to be unassigned on failure")
	}
	if task.Comment == "" {
		t.Error("expected a failure comment")
	}
}

// TestExecute_ConfigResolvedAPIKeyBypassesOfflineSimulation proves that a
// key supplied only through provider.Config (standing in for the layered
// config resolver's config.toml/TASKTER__PROVIDERS__*/--openai-api-key
// layers) is enough to unlock a real call, even with the provider's raw
// env var unset — matching the source's config-then-env precedence.
func TestExecute_ConfigResolvedAPIKeyBypassesOfflineSimulation(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "done"}}]}`)
	}))
	defer srv.Close()

	exec, store := newTestExecutorWithConfig(t, provider.Config{
		OpenAIBaseURL: srv.URL,
		OpenAIAPIKey:  "configured-key",
	})
	taskID := seedTaskAndAgent(t, store, []string{"run_bash"}, "gpt-4o")

	task, err := exec.Execute(context.Background(), taskID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != boardstore.StatusDone {
		t.Errorf("expected Done (config key should unlock a real call), got %s with comment %q", task.Status, task.Comment)
	}
	if task.Comment != "done" {
		t.Errorf("expected comment %q, got %q", "done", task.Comment)
	}
}

func TestExecute_UnassignedTaskFailsFast(t *testing.T) {
	exec, store := newTestExecutor(t)
	board, err := store.MutateBoard(func(b *boardstore.Board) error {
		id := b.NextTaskID()
		b.Tasks = append(b.Tasks, boardstore.Task{ID: id, Title: "orphan", Status: boardstore.StatusToDo})
		return nil
	})
	if err != nil {
		t.Fatalf("MutateBoard: %v", err)
	}
	taskID := board.Tasks[0].ID

	_, err = exec.Execute(context.Background(), taskID)
	if !errors.Is(err, errs.Of(errs.InvalidArg)) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestExecute_UnknownTaskNotFound(t *testing.T) {
	exec, _ := newTestExecutor(t)
	_, err := exec.Execute(context.Background(), 999)
	if !errors.Is(err, errs.Of(errs.NotFound)) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestComposeUserPrompt(t *testing.T) {
	withDesc := composeUserPrompt(boardstore.Task{Title: "A", Description: "B"})
	if withDesc != "A\n\nB" {
		t.Errorf("unexpected prompt: %q", withDesc)
	}
	withoutDesc := composeUserPrompt(boardstore.Task{Title: "A"})
	if withoutDesc != "A" {
		t.Errorf("unexpected prompt: %q", withoutDesc)
	}
}

// TestExecute_AlwaysToolCallHitsIterationLimit drives the reason/act loop
// against a live httptest server that always answers with a run_bash tool
// call, never a text response, so the loop can only terminate by exhausting
// MaxIterations. The task must come back to ToDo, unassigned, carrying the
// IterationLimit-kind comment.
func TestExecute_AlwaysToolCallHitsIterationLimit(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{
			"choices": [{
				"message": {
					"role": "assistant",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "run_bash", "arguments": "{\"command\": \"false\"}"}
					}]
				}
			}]
		}`)
	}))
	defer srv.Close()

	exec, store := newTestExecutorWithConfig(t, provider.Config{
		OpenAIBaseURL: srv.URL,
	})
	taskID := seedTaskAndAgent(t, store, []string{"run_bash"}, "gpt-4o")

	task, err := exec.Execute(context.Background(), taskID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if requests != MaxIterations {
		t.Errorf("expected %d requests, got %d", MaxIterations, requests)
	}
	if task.Status != boardstore.StatusToDo {
		t.Errorf("expected ToDo, got %s", task.Status)
	}
	if task.AgentID != nil {
		t.Error("expected agent to be unassigned after hitting the iteration limit")
	}
	if task.Comment != "IterationLimit: maximum iterations exceeded" {
		t.Errorf("expected iteration-limit comment, got %q", task.Comment)
	}
}

func TestRunningGuard_ReleaseClearsMembership(t *testing.T) {
	_, store := newTestExecutor(t)
	guard, err := AcquireRunningGuard(store, 5)
	if err != nil {
		t.Fatalf("AcquireRunningGuard: %v", err)
	}
	ids, _ := store.LoadRunningAgents()
	if len(ids) != 1 || ids[0] != 5 {
		t.Fatalf("expected [5], got %v", ids)
	}
	guard.Release()
	ids, _ = store.LoadRunningAgents()
	if len(ids) != 0 {
		t.Fatalf("expected empty after release, got %v", ids)
	}
}
