// Package scheduler drives agents on a cron cadence. It loads the persisted
// agent_id -> Schedule map from the board store, registers one cron entry
// per agent, and on each tick fans out one Agent Executor run per non-Done
// task currently assigned to that agent — concurrently, one goroutine per
// task, with no bound on how many run at once.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomatyss/taskter/internal/agent"
	"github.com/tomatyss/taskter/internal/boardstore"
)

// location is fixed per the board's single-timezone design: every cron
// expression is interpreted in America/New_York regardless of where the
// process runs.
var location = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// Scheduler owns a cron.Cron instance and the live agent_id -> entry map
// needed to add or remove schedules while running.
type Scheduler struct {
	store    *boardstore.Store
	executor *agent.Executor
	cron     *cron.Cron

	mu      sync.Mutex
	entries map[int]cron.EntryID
	running bool
}

// New wires a Scheduler to its store and executor. The cron instance runs
// six-field (seconds-enabled) expressions in America/New_York.
func New(store *boardstore.Store, executor *agent.Executor) *Scheduler {
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))
	return &Scheduler{
		store:    store,
		executor: executor,
		cron:     c,
		entries:  map[int]cron.EntryID{},
	}
}

// Start loads every persisted schedule, registers a cron entry for each,
// and begins the cron clock. It does not block.
func (s *Scheduler) Start(ctx context.Context) error {
	schedules, err := s.store.LoadSchedules()
	if err != nil {
		return err
	}
	for agentIDStr, sched := range schedules {
		agentID, convErr := strconv.Atoi(agentIDStr)
		if convErr != nil {
			s.logf("scheduler: skipping malformed agent id %q in schedules.json", agentIDStr)
			continue
		}
		if err := s.register(ctx, agentID, sched); err != nil {
			s.logf("scheduler: failed to register agent %d (%s): %v", agentID, sched.Cron, err)
		}
	}
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	s.cron.Start()
	return nil
}

// Stop ceases new triggers and waits for in-flight ticks to finish, up to
// softDeadline. A tick that outlives the deadline is abandoned in place —
// its goroutines keep running against the store, but Stop returns anyway.
func (s *Scheduler) Stop(softDeadline time.Duration) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(softDeadline):
		s.logf("scheduler: stop deadline exceeded with executors still in-flight")
	}
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// AddSchedule persists sched for agentID and, when the scheduler is
// already running, registers its cron entry immediately.
func (s *Scheduler) AddSchedule(ctx context.Context, agentID int, sched boardstore.Schedule) error {
	if sched.Timezone == "" {
		sched.Timezone = "America/New_York"
	}
	if _, err := s.store.MutateSchedules(func(sf boardstore.SchedulesFile) (boardstore.SchedulesFile, error) {
		sf[strconv.Itoa(agentID)] = sched
		return sf, nil
	}); err != nil {
		return err
	}

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return nil
	}
	s.unregister(agentID)
	return s.register(ctx, agentID, sched)
}

// RemoveSchedule deletes agentID's persisted schedule and, if live, its
// cron entry.
func (s *Scheduler) RemoveSchedule(agentID int) error {
	if _, err := s.store.MutateSchedules(func(sf boardstore.SchedulesFile) (boardstore.SchedulesFile, error) {
		delete(sf, strconv.Itoa(agentID))
		return sf, nil
	}); err != nil {
		return err
	}
	s.unregister(agentID)
	return nil
}

// ListSchedules returns the current agent_id -> Schedule map.
func (s *Scheduler) ListSchedules() (boardstore.SchedulesFile, error) {
	return s.store.LoadSchedules()
}

func (s *Scheduler) register(ctx context.Context, agentID int, sched boardstore.Schedule) error {
	entryID, err := s.cron.AddFunc(sched.Cron, func() {
		s.tick(ctx, agentID, sched.Once)
	})
	if err != nil {
		return fmt.Errorf("add cron entry for agent %d: %w", agentID, err)
	}
	s.mu.Lock()
	s.entries[agentID] = entryID
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) unregister(agentID int) {
	s.mu.Lock()
	entryID, ok := s.entries[agentID]
	delete(s.entries, agentID)
	s.mu.Unlock()
	if ok {
		s.cron.Remove(entryID)
	}
}

// tick is the cron callback: it loads every non-Done task assigned to
// agentID, runs one Executor.Execute per task concurrently, and — for a
// one-shot ("once") schedule — removes the schedule entry just before
// spawning the executors, so it is gone before any of them is awaited. This is a deliberate
// departure from the source's remove-after-completion ordering: a
// long-running task can no longer re-trigger itself on a subsequent tick
// while it is still in flight.
func (s *Scheduler) tick(ctx context.Context, agentID int, once bool) {
	board, err := s.store.LoadBoard()
	if err != nil {
		s.logf("scheduler: agent %d tick aborted, could not load board: %v", agentID, err)
		return
	}

	var pending []int
	for _, t := range board.Tasks {
		if t.AgentID != nil && *t.AgentID == agentID && t.Status != boardstore.StatusDone {
			pending = append(pending, t.ID)
		}
	}

	if once {
		s.unregister(agentID)
		_ = s.RemoveSchedule(agentID)
	}

	if len(pending) == 0 {
		if err := s.executor.ExecuteTaskless(ctx, agentID); err != nil {
			s.logf("scheduler: agent %d task-less run failed: %v", agentID, err)
		}
		return
	}

	var wg sync.WaitGroup
	for _, taskID := range pending {
		wg.Add(1)
		go func(taskID int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logf("scheduler: agent %d task %d panicked: %v", agentID, taskID, r)
				}
			}()
			if _, err := s.executor.Execute(ctx, taskID); err != nil {
				s.logf("scheduler: agent %d task %d failed to start: %v", agentID, taskID, err)
			}
		}(taskID)
	}
	wg.Wait()
}

func (s *Scheduler) logf(format string, args ...interface{}) {
	_ = s.store.AppendLog(fmt.Sprintf(format, args...))
}
