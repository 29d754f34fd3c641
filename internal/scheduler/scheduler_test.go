package scheduler

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/tomatyss/taskter/internal/agent"
	"github.com/tomatyss/taskter/internal/boardstore"
	"github.com/tomatyss/taskter/internal/provider"
	"github.com/tomatyss/taskter/internal/tools"
)

func newTestScheduler(t *testing.T) (*Scheduler, *boardstore.Store) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	dir := filepath.Join(t.TempDir(), ".taskter")
	store := boardstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	reg := tools.NewRegistry()
	tools.RegisterBuiltins(reg, store)
	exec := agent.NewExecutor(store, reg, provider.Config{})
	return New(store, exec), store
}

func seedAgent(t *testing.T, store *boardstore.Store) int {
	t.Helper()
	af, err := store.MutateAgents(func(a *boardstore.AgentsFile) error {
		a.Agents = append(a.Agents, boardstore.Agent{
			ID:           a.NextAgentID(),
			SystemPrompt: "status reporter",
			Model:        "gemini-2.5-pro",
			Tools:        []boardstore.FunctionDeclaration{{Name: "send_email"}},
		})
		return nil
	})
	if err != nil {
		t.Fatalf("MutateAgents: %v", err)
	}
	return af.Agents[len(af.Agents)-1].ID
}

func seedTask(t *testing.T, store *boardstore.Store, agentID int) int {
	t.Helper()
	board, err := store.MutateBoard(func(b *boardstore.Board) error {
		id := b.NextTaskID()
		b.Tasks = append(b.Tasks, boardstore.Task{ID: id, Title: "ping", Status: boardstore.StatusToDo, AgentID: &agentID})
		return nil
	})
	if err != nil {
		t.Fatalf("MutateBoard: %v", err)
	}
	return board.Tasks[len(board.Tasks)-1].ID
}

func TestAddSchedule_PersistsAndRegistersWhenRunning(t *testing.T) {
	s, store := newTestScheduler(t)
	agentID := seedAgent(t, store)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(time.Second)

	sched := boardstore.Schedule{Cron: "0 0 0 1 1 *", Once: false}
	if err := s.AddSchedule(ctx, agentID, sched); err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}

	persisted, err := s.ListSchedules()
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	got, ok := persisted[strconv.Itoa(agentID)]
	if !ok || got.Cron != sched.Cron {
		t.Fatalf("expected persisted schedule for agent %d, got %+v", agentID, persisted)
	}
	if got.Timezone != "America/New_York" {
		t.Errorf("expected default timezone filled in, got %q", got.Timezone)
	}

	s.mu.Lock()
	_, registered := s.entries[agentID]
	s.mu.Unlock()
	if !registered {
		t.Error("expected a live cron entry for the agent")
	}
}

func TestRemoveSchedule_RemovesPersistedAndLiveEntry(t *testing.T) {
	s, store := newTestScheduler(t)
	agentID := seedAgent(t, store)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(time.Second)

	if err := s.AddSchedule(ctx, agentID, boardstore.Schedule{Cron: "0 0 0 1 1 *"}); err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}
	if err := s.RemoveSchedule(agentID); err != nil {
		t.Fatalf("RemoveSchedule: %v", err)
	}

	persisted, err := s.ListSchedules()
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if _, ok := persisted[strconv.Itoa(agentID)]; ok {
		t.Error("expected schedule to be removed from the persisted map")
	}
	s.mu.Lock()
	_, registered := s.entries[agentID]
	s.mu.Unlock()
	if registered {
		t.Error("expected the live cron entry to be removed")
	}
}

func TestTick_DispatchesPendingTasksConcurrently(t *testing.T) {
	s, store := newTestScheduler(t)
	agentID := seedAgent(t, store)
	taskA := seedTask(t, store, agentID)
	taskB := seedTask(t, store, agentID)

	s.tick(context.Background(), agentID, false)

	board, err := store.LoadBoard()
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	for _, id := range []int{taskA, taskB} {
		found := false
		for _, tsk := range board.Tasks {
			if tsk.ID == id {
				found = true
				if tsk.Status != boardstore.StatusDone {
					t.Errorf("task %d expected Done after offline-simulated tick, got %s", id, tsk.Status)
				}
			}
		}
		if !found {
			t.Errorf("task %d missing from board", id)
		}
	}
}

func TestTick_OnceRemovesScheduleBeforeCompletion(t *testing.T) {
	s, store := newTestScheduler(t)
	agentID := seedAgent(t, store)
	seedTask(t, store, agentID)

	if _, err := store.MutateSchedules(func(sf boardstore.SchedulesFile) (boardstore.SchedulesFile, error) {
		sf[strconv.Itoa(agentID)] = boardstore.Schedule{Cron: "0 0 0 1 1 *", Once: true}
		return sf, nil
	}); err != nil {
		t.Fatalf("MutateSchedules: %v", err)
	}

	s.tick(context.Background(), agentID, true)

	persisted, err := s.ListSchedules()
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if _, ok := persisted[strconv.Itoa(agentID)]; ok {
		t.Error("expected the once-schedule to be removed by tick")
	}
}

func TestTick_TasklessAgentRunsCheckIn(t *testing.T) {
	s, store := newTestScheduler(t)
	agentID := seedAgent(t, store)

	s.tick(context.Background(), agentID, false)

	ids, err := store.LoadRunningAgents()
	if err != nil {
		t.Fatalf("LoadRunningAgents: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no agent left marked running after a task-less tick, got %v", ids)
	}
}
