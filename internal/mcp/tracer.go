package mcp

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tomatyss/taskter/internal/config"
)

// tracer writes raw wire traffic to a file (never to stdout, since stdout
// is the protocol channel) unless TASKTER_MCP_TRACE_STDERR opts into
// stderr as well. Disabled entirely unless TASKTER_MCP_TRACE is set.
type tracer struct {
	mu      sync.Mutex
	file    *os.File
	stderr  bool
	enabled bool
}

func newTracer() *tracer {
	t := &tracer{enabled: config.EnvFlag("TASKTER_MCP_TRACE")}
	if !t.enabled {
		return t
	}
	t.stderr = config.EnvFlag("TASKTER_MCP_TRACE_STDERR")

	path := os.Getenv("TASKTER_MCP_TRACE_FILE")
	if path == "" {
		path = filepath.Join(os.TempDir(), "taskter_mcp_trace.log")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err == nil {
		t.file = f
	}
	return t
}

func (t *tracer) logf(format string, args ...interface{}) {
	if t == nil || !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	line := fmt.Sprintf("%s %s\n", time.Now().Format(time.RFC3339Nano), fmt.Sprintf(format, args...))
	if t.file != nil {
		t.file.WriteString(line)
	}
	if t.stderr {
		fmt.Fprint(os.Stderr, line)
	}
}
