package cli

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tomatyss/taskter/internal/agent"
	"github.com/tomatyss/taskter/internal/boardstore"
	"github.com/tomatyss/taskter/internal/config"
	"github.com/tomatyss/taskter/internal/provider"
	"github.com/tomatyss/taskter/internal/tools"
)

var (
	resolvedOnce sync.Once
	resolved     *config.Resolved
	resolvedErr  error
)

// loadConfig resolves the layered configuration exactly once per process,
// honouring whatever CLI flags root.go has already parsed into overrides.
func loadConfig() (*config.Resolved, error) {
	resolvedOnce.Do(func() {
		resolved, resolvedErr = config.Load(overrides)
	})
	return resolved, resolvedErr
}

// mustStore resolves configuration and returns a store handle, failing
// with a friendly message if the project directory has not been created.
func mustStore() (*boardstore.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s := boardstore.New(cfg.Paths.DataDir)
	if err := s.EnsureInitialized(); err != nil {
		return nil, fmt.Errorf("taskter not initialized in this directory. Run: taskter init")
	}
	return s, nil
}

// registryFor builds the tool registry for store, including the four
// CLI-reentrant tools wired to this package's own command functions — the
// same code path the CLI itself runs, never a subprocess.
func registryFor(s *boardstore.Store) *tools.Registry {
	reg := tools.NewRegistry()
	tools.RegisterBuiltins(reg, s)
	reg.Register("taskter_task", tools.NewReentrantTool("taskter_task", "Run a `taskter task` subcommand in-process.", runReentrant(taskCmd)))
	reg.Register("taskter_agent", tools.NewReentrantTool("taskter_agent", "Run a `taskter agent` subcommand in-process.", runReentrant(agentCmd)))
	reg.Register("taskter_okrs", tools.NewReentrantTool("taskter_okrs", "Run a `taskter okrs` subcommand in-process.", runReentrant(okrsCmd)))
	reg.Register("taskter_tools", tools.NewReentrantTool("taskter_tools", "Run a `taskter tools` subcommand in-process.", runReentrant(toolsCmd)))
	return reg
}

// executorFor wires an Agent Executor for store using the resolved
// provider configuration.
func executorFor(s *boardstore.Store) (*agent.Executor, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	pcfg := provider.Config{
		OpenAIAPIKey:            cfg.OpenAI.APIKey,
		OpenAIBaseURL:           cfg.OpenAI.BaseURL,
		OpenAIChatEndpoint:      cfg.OpenAI.ChatEndpoint,
		OpenAIResponsesEndpoint: cfg.OpenAI.ResponsesEndpoint,
		OpenAIRequestStyle:      cfg.OpenAI.RequestStyle,
		OpenAIResponseFormat:    cfg.OpenAI.ResponseFormat,
		GeminiAPIKey:            cfg.Gemini.APIKey,
		OllamaAPIKey:            cfg.Ollama.APIKey,
		OllamaBaseURL:           cfg.Ollama.BaseURL,
	}
	return agent.NewExecutor(s, registryFor(s), pcfg), nil
}

// reentrantMu serializes CLI-reentrant tool calls. cmd and its flag vars
// (taskTitle, agentPrompt, ...) are package-level singletons shared by every
// caller, so two concurrent calls into the same command tree — e.g. two
// scheduler-dispatched tasks whose agents both carry taskter_task — must not
// run cmd.Execute() at once. The lock scopes to this closure's body only, so
// it never blocks a task's own Agent Executor loop, just another reentrant
// CLI call racing for the same cobra.Command.
var reentrantMu sync.Mutex

// runReentrant runs args against cmd's subcommand tree in-process, capturing
// its output in a buffer private to this call via cmd.SetOut/SetErr instead
// of the process-global os.Stdout.
func runReentrant(cmd *cobra.Command) tools.CLIRunner {
	return func(args []string) (string, error) {
		reentrantMu.Lock()
		defer reentrantMu.Unlock()

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetErr(&buf)
		defer cmd.SetOut(nil)
		defer cmd.SetErr(nil)
		// cobra always executes from the root command, so the subcommand
		// name is prefixed and the args are set on the root.
		root := cmd.Root()
		if root != cmd {
			args = append([]string{cmd.Name()}, args...)
		}
		root.SetArgs(args)
		defer root.SetArgs(nil)
		err := root.Execute()
		return buf.String(), err
	}
}
