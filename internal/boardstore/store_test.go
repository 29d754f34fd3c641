package boardstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomatyss/taskter/internal/errs"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".taskter")
	s := New(dir)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func TestInit_CreatesProjectDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".taskter")
	s := New(dir)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "board.json")); os.IsNotExist(err) {
		t.Fatal("board.json not created")
	}
}

func TestEnsureInitialized_FailsOnAbsentDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"))
	err := s.EnsureInitialized()
	if err == nil {
		t.Fatal("expected NotInitialized error")
	}
	if !errors.Is(err, errs.Of(errs.NotInitialized)) {
		t.Errorf("expected NotInitialized, got %v", err)
	}
}

func TestMutateBoard_AssignsMonotonicIDs(t *testing.T) {
	s := testStore(t)

	b, err := s.MutateBoard(func(b *Board) error {
		b.Tasks = append(b.Tasks, Task{ID: b.NextTaskID(), Title: "A", Status: StatusToDo})
		return nil
	})
	if err != nil {
		t.Fatalf("MutateBoard: %v", err)
	}
	if len(b.Tasks) != 1 || b.Tasks[0].ID != 1 {
		t.Fatalf("expected one task with id 1, got %+v", b.Tasks)
	}

	b, err = s.MutateBoard(func(b *Board) error {
		b.Tasks = append(b.Tasks, Task{ID: b.NextTaskID(), Title: "B", Status: StatusToDo})
		return nil
	})
	if err != nil {
		t.Fatalf("MutateBoard: %v", err)
	}
	if len(b.Tasks) != 2 || b.Tasks[1].ID != 2 {
		t.Fatalf("expected second task with id 2, got %+v", b.Tasks)
	}
}

func TestMutateBoard_PersistsAcrossLoads(t *testing.T) {
	s := testStore(t)
	if _, err := s.MutateBoard(func(b *Board) error {
		b.Tasks = append(b.Tasks, Task{ID: b.NextTaskID(), Title: "A", Status: StatusToDo})
		return nil
	}); err != nil {
		t.Fatalf("MutateBoard: %v", err)
	}

	loaded, err := s.LoadBoard()
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	if len(loaded.Tasks) != 1 || loaded.Tasks[0].Title != "A" {
		t.Fatalf("expected persisted task A, got %+v", loaded.Tasks)
	}
}

func TestLoadBoard_CorruptFileSurfacesCorruptStore(t *testing.T) {
	s := testStore(t)
	if err := os.WriteFile(filepath.Join(s.Dir(), "board.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt board: %v", err)
	}

	_, err := s.LoadBoard()
	if err == nil {
		t.Fatal("expected CorruptStore error")
	}
	if !errors.Is(err, errs.Of(errs.CorruptStore)) {
		t.Errorf("expected CorruptStore, got %v", err)
	}
}

func TestAppendLog_WritesRFC3339Line(t *testing.T) {
	s := testStore(t)
	if err := s.AppendLog("hello"); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir(), "logs.log"))
	if err != nil {
		t.Fatalf("read logs.log: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty log file")
	}
}

func TestSetAgentRunning_TracksMembership(t *testing.T) {
	s := testStore(t)
	if err := s.SetAgentRunning(7, true); err != nil {
		t.Fatalf("SetAgentRunning: %v", err)
	}
	ids, err := s.LoadRunningAgents()
	if err != nil {
		t.Fatalf("LoadRunningAgents: %v", err)
	}
	if len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("expected [7], got %v", ids)
	}

	if err := s.SetAgentRunning(7, false); err != nil {
		t.Fatalf("SetAgentRunning: %v", err)
	}
	ids, err = s.LoadRunningAgents()
	if err != nil {
		t.Fatalf("LoadRunningAgents: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty, got %v", ids)
	}
}
