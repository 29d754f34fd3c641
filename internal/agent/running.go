package agent

import "github.com/tomatyss/taskter/internal/boardstore"

// RunningGuard marks an agent as currently executing for the lifetime of
// a single Execute call, mirroring the source's RAII running_agents
// tracker: acquire on entry, release via defer on every exit path
// (success, failure, or panic unwinding through a recover higher up).
type RunningGuard struct {
	store   *boardstore.Store
	agentID int
}

// AcquireRunningGuard records agentID as running in running_agents.json.
func AcquireRunningGuard(store *boardstore.Store, agentID int) (*RunningGuard, error) {
	if err := store.SetAgentRunning(agentID, true); err != nil {
		return nil, err
	}
	return &RunningGuard{store: store, agentID: agentID}, nil
}

// Release clears the running marker. Call via defer immediately after
// AcquireRunningGuard succeeds.
func (g *RunningGuard) Release() {
	_ = g.store.SetAgentRunning(g.agentID, false)
}
