// Package boardstore implements Taskter's file-backed persistence layer:
// atomic, human-readable JSON documents under a project directory
// (".taskter/" by default), plus the append-only operation log.
package boardstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tomatyss/taskter/internal/errs"
)

const (
	boardFile         = "board.json"
	agentsFile        = "agents.json"
	okrsFile          = "okrs.json"
	schedulesFile     = "schedules.json"
	descriptionFile   = "description.md"
	emailConfigFile   = "email_config.json"
	runningAgentsFile = "running_agents.json"
	logFile           = "logs.log"
	responsesLogFile  = "api_responses.log"
)

// Store is a process-wide handle over a single project directory. All
// mutating methods are safe for concurrent use: full-document writes are
// serialised by mu so that two executors in the same process cannot
// interleave a load-mutate-write sequence. Readers not holding the lock
// always see a fully-consistent prior file, never a partial write, because
// every write goes through writeAtomic.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New returns a handle over dir. It does not check that dir is initialized;
// call EnsureInitialized or Init for that.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the project directory this store is rooted at.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// Init creates the project directory and seeds empty documents. It is
// idempotent: calling it on an already-initialized directory leaves
// existing files untouched.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	seeds := []struct {
		name string
		val  interface{}
	}{
		{boardFile, Board{Tasks: []Task{}, NextID: 1}},
		{agentsFile, AgentsFile{Agents: []Agent{}, NextID: 1}},
		{okrsFile, []OKR{}},
		{schedulesFile, SchedulesFile{}},
		{runningAgentsFile, []int{}},
	}
	for _, seed := range seeds {
		p := s.path(seed.name)
		if _, err := os.Stat(p); err == nil {
			continue
		}
		if err := s.writeAtomic(seed.name, seed.val); err != nil {
			return err
		}
	}
	descPath := s.path(descriptionFile)
	if _, err := os.Stat(descPath); os.IsNotExist(err) {
		if err := os.WriteFile(descPath, []byte(""), 0o644); err != nil {
			return fmt.Errorf("create %s: %w", descPath, err)
		}
	}
	return nil
}

// EnsureInitialized fails with NotInitialized if the project directory is
// absent.
func (s *Store) EnsureInitialized() error {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return errs.New(errs.NotInitialized, s.dir, err)
	}
	return nil
}

// writeAtomic serializes val as indented JSON and writes it to name via
// write-temp-then-rename, so a process crash mid-write never leaves a
// truncated document: readers either see the pre-state or the post-state.
func (s *Store) writeAtomic(name string, val interface{}) error {
	data, err := json.MarshalIndent(val, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	target := s.path(name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, target, err)
	}
	return nil
}

func (s *Store) readDoc(name string, out interface{}) error {
	p := s.path(name)
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.New(errs.NotInitialized, p, err)
		}
		return fmt.Errorf("read %s: %w", p, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.New(errs.CorruptStore, p, err)
	}
	return nil
}

// LoadBoard returns the current board snapshot.
func (s *Store) LoadBoard() (Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b Board
	if err := s.readDoc(boardFile, &b); err != nil {
		return Board{}, err
	}
	return b, nil
}

// MutateBoard loads the board, applies fn, validates nothing more than what
// fn itself enforces, and writes the result back atomically.
func (s *Store) MutateBoard(fn func(*Board) error) (Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b Board
	if err := s.readDoc(boardFile, &b); err != nil {
		return Board{}, err
	}
	if err := fn(&b); err != nil {
		return Board{}, err
	}
	if err := s.writeAtomic(boardFile, b); err != nil {
		return Board{}, err
	}
	return b, nil
}

// NextTaskID assigns the next task id as max(existing)+1, never lower than
// the board's persisted next_id counter, so an id is never reused.
func (b *Board) NextTaskID() int {
	id := b.NextID
	for _, t := range b.Tasks {
		if t.ID >= id {
			id = t.ID + 1
		}
	}
	b.NextID = id + 1
	return id
}

// LoadAgents returns the current agents snapshot.
func (s *Store) LoadAgents() (AgentsFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var a AgentsFile
	if err := s.readDoc(agentsFile, &a); err != nil {
		return AgentsFile{}, err
	}
	return a, nil
}

// MutateAgents loads, transforms, and atomically persists agents.json.
func (s *Store) MutateAgents(fn func(*AgentsFile) error) (AgentsFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var a AgentsFile
	if err := s.readDoc(agentsFile, &a); err != nil {
		return AgentsFile{}, err
	}
	if err := fn(&a); err != nil {
		return AgentsFile{}, err
	}
	if err := s.writeAtomic(agentsFile, a); err != nil {
		return AgentsFile{}, err
	}
	return a, nil
}

// NextAgentID assigns the next agent id as max(existing)+1, never lower
// than the persisted next_id counter.
func (a *AgentsFile) NextAgentID() int {
	id := a.NextID
	for _, ag := range a.Agents {
		if ag.ID >= id {
			id = ag.ID + 1
		}
	}
	a.NextID = id + 1
	return id
}

// LoadOKRs returns the current OKR list.
func (s *Store) LoadOKRs() ([]OKR, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var o []OKR
	if err := s.readDoc(okrsFile, &o); err != nil {
		return nil, err
	}
	return o, nil
}

// MutateOKRs loads, transforms, and atomically persists okrs.json.
func (s *Store) MutateOKRs(fn func(*[]OKR) error) ([]OKR, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var o []OKR
	if err := s.readDoc(okrsFile, &o); err != nil {
		return nil, err
	}
	if err := fn(&o); err != nil {
		return nil, err
	}
	if err := s.writeAtomic(okrsFile, o); err != nil {
		return nil, err
	}
	return o, nil
}

// LoadSchedules returns the current agent_id -> Schedule map.
func (s *Store) LoadSchedules() (SchedulesFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf := SchedulesFile{}
	if err := s.readDoc(schedulesFile, &sf); err != nil {
		return nil, err
	}
	return sf, nil
}

// MutateSchedules loads, transforms, and atomically persists schedules.json.
func (s *Store) MutateSchedules(fn func(SchedulesFile) (SchedulesFile, error)) (SchedulesFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf := SchedulesFile{}
	if err := s.readDoc(schedulesFile, &sf); err != nil {
		return nil, err
	}
	next, err := fn(sf)
	if err != nil {
		return nil, err
	}
	if err := s.writeAtomic(schedulesFile, next); err != nil {
		return nil, err
	}
	return next, nil
}

// LoadRunningAgents returns the ids of agents currently executing.
func (s *Store) LoadRunningAgents() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int
	if err := s.readDoc(runningAgentsFile, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetAgentRunning adds or removes id from the running-agents set.
func (s *Store) SetAgentRunning(id int, running bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int
	if err := s.readDoc(runningAgentsFile, &ids); err != nil {
		return err
	}
	if running {
		for _, x := range ids {
			if x == id {
				return nil
			}
		}
		ids = append(ids, id)
	} else {
		out := ids[:0]
		for _, x := range ids {
			if x != id {
				out = append(out, x)
			}
		}
		ids = out
	}
	return s.writeAtomic(runningAgentsFile, ids)
}

// LoadEmailConfig reads email_config.json, returning NotFound if absent.
func (s *Store) LoadEmailConfig() (EmailConfig, error) {
	p := s.path(emailConfigFile)
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return EmailConfig{}, errs.New(errs.NotFound, p, err)
		}
		return EmailConfig{}, fmt.Errorf("read %s: %w", p, err)
	}
	var cfg EmailConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return EmailConfig{}, errs.New(errs.CorruptStore, p, err)
	}
	return cfg, nil
}

// LoadDescription reads description.md verbatim.
func (s *Store) LoadDescription() (string, error) {
	data, err := os.ReadFile(s.path(descriptionFile))
	if err != nil {
		return "", fmt.Errorf("read description: %w", err)
	}
	return string(data), nil
}

// SaveDescription overwrites description.md. This is free text, not a
// full JSON document, so it is written directly rather than through
// writeAtomic's JSON marshaling, but still via a temp-then-rename swap.
func (s *Store) SaveDescription(text string) error {
	target := s.path(descriptionFile)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, target)
}

// AppendLog appends a single RFC3339-timestamped line to logs.log. No
// locking is required because only append order matters and small writes
// are atomic at the OS level.
func (s *Store) AppendLog(message string) error {
	f, err := os.OpenFile(s.path(logFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open logs.log: %w", err)
	}
	defer f.Close()
	line := fmt.Sprintf("%s %s\n", time.Now().UTC().Format(time.RFC3339), message)
	_, err = f.WriteString(line)
	return err
}

// LoadLogs returns every line of logs.log in append order, or an empty
// slice if the file does not exist yet.
func (s *Store) LoadLogs() ([]string, error) {
	data, err := os.ReadFile(s.path(logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path(logFile), err)
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// AppendResponseLog appends a single JSON line to api_responses.log — the
// debugging contract for every provider request/response pair.
func (s *Store) AppendResponseLog(line string) error {
	f, err := os.OpenFile(s.path(responsesLogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open api_responses.log: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

// EmailConfigPath returns the absolute path to email_config.json, used by
// the send_email tool to detect "configuration not found".
func (s *Store) EmailConfigPath() string { return s.path(emailConfigFile) }

// DescriptionPath returns the absolute path to description.md.
func (s *Store) DescriptionPath() string { return s.path(descriptionFile) }
