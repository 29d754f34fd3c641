// Package tools implements Taskter's built-in tool registry and dispatcher:
// the set of in-process actions an Agent may invoke during its reason/act
// loop (shell, Python, file editing, email, web search, and a handful of
// CLI-reentrant tools), plus the machinery that validates arguments,
// bounds wall-clock time, and wraps results in the provider-facing
// ok/output envelope.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomatyss/taskter/internal/boardstore"
)

// DefaultTimeout bounds any tool invocation that does not specify its own,
// matching the shell/Python default from the tool contract table.
const DefaultTimeout = 60 * time.Second

// Tool pairs a provider-facing declaration with its in-process
// implementation. Invoke receives already-validated arguments.
type Tool struct {
	Declaration boardstore.FunctionDeclaration
	Invoke      func(ctx context.Context, args map[string]interface{}) (string, error)
	// Timeout overrides DefaultTimeout; zero means DefaultTimeout applies.
	// Tools with no meaningful wall-clock bound (get_description) set a
	// negative value to disable the bound entirely.
	Timeout time.Duration
}

func (t Tool) effectiveTimeout() time.Duration {
	switch {
	case t.Timeout < 0:
		return 0
	case t.Timeout == 0:
		return DefaultTimeout
	default:
		return t.Timeout
	}
}

// Result is the dispatcher's outcome for a single call, serialised as
// {"ok":true,"output":"…"} or {"ok":false,"error":"…"} for the provider
// adapter to re-embed in a tool-result message.
type Result struct {
	OK     bool   `json:"ok"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// JSON renders the result as its wire envelope.
func (r Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"ok":false,"error":%q}`, err.Error())
	}
	return string(data)
}

// Registry is a name-keyed set of tools, safe for concurrent dispatch —
// many agent executors may run against the same process-wide registry.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty registry. Use RegisterBuiltins to populate
// it with Taskter's standard tool set.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool under name. Built-in aliases
// (project_files/file_ops, send_email/email) register the same Tool value
// under both names.
func (r *Registry) Register(name string, t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Declarations returns the declaration for every registered tool, sorted
// by name — the shape `tools/list` and a provider's tools_payload both
// consume.
func (r *Registry) Declarations() []boardstore.FunctionDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls := make([]boardstore.FunctionDeclaration, 0, len(r.tools))
	for _, name := range r.sortedNamesLocked() {
		decls = append(decls, r.tools[name].Declaration)
	}
	return decls
}

func (r *Registry) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// UnknownToolError marks a dispatch against a name absent from the
// registry.
type UnknownToolError struct{ Name string }

func (e *UnknownToolError) Error() string { return fmt.Sprintf("unknown tool: %s", e.Name) }

// Dispatch looks up name, validates args against its declared parameters,
// invokes it under a bounded context, and always returns a Result —
// callers never need to distinguish a dispatch failure from a tool
// failure, matching the executor's "recover tool errors in the loop"
// policy.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]interface{}) Result {
	tool, ok := r.Lookup(name)
	if !ok {
		return Result{OK: false, Error: (&UnknownToolError{Name: name}).Error()}
	}
	if err := validate(tool.Declaration.Parameters, args); err != nil {
		return Result{OK: false, Error: err.Error()}
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if d := tool.effectiveTimeout(); d > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	type outcome struct {
		out string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := tool.Invoke(callCtx, args)
		done <- outcome{out, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return Result{OK: false, Error: o.err.Error()}
		}
		return Result{OK: true, Output: o.out}
	case <-callCtx.Done():
		return Result{OK: false, Error: fmt.Sprintf("tool %q timed out", name)}
	}
}

// schema is the minimal shape of the JSON-Schema-like Parameters value
// every declaration carries: {type, properties, required}.
type schema struct {
	Type       string                 `json:"type"`
	Properties map[string]schemaProp  `json:"properties"`
	Required   []string               `json:"required"`
}

type schemaProp struct {
	Type string `json:"type"`
}

// validate checks that every required key is present and that, for the
// handful of top-level scalar types this registry's own declarations use,
// the supplied value's dynamic type matches. It deliberately does not
// recurse into nested objects/arrays — the contract promises "types match
// top-level", nothing deeper.
func validate(parameters interface{}, args map[string]interface{}) error {
	if parameters == nil {
		return nil
	}
	raw, err := json.Marshal(parameters)
	if err != nil {
		return nil
	}
	var s schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	for _, req := range s.Required {
		if _, ok := args[req]; !ok {
			return fmt.Errorf("missing required argument %q", req)
		}
	}
	for key, val := range args {
		prop, ok := s.Properties[key]
		if !ok || prop.Type == "" {
			continue
		}
		if !typeMatches(prop.Type, val) {
			return fmt.Errorf("argument %q: expected %s", key, prop.Type)
		}
	}
	return nil
}

func typeMatches(want string, val interface{}) bool {
	switch want {
	case "string":
		_, ok := val.(string)
		return ok
	case "number":
		_, ok := val.(float64)
		return ok
	case "integer":
		f, ok := val.(float64)
		return ok && f == float64(int64(f))
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "array":
		_, ok := val.([]interface{})
		return ok
	case "object":
		_, ok := val.(map[string]interface{})
		return ok
	default:
		return true
	}
}
