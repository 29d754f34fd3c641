package tools

import (
	"context"
	"fmt"

	"github.com/tomatyss/taskter/internal/boardstore"
)

// CLIRunner re-enters a CLI verb in-process and captures what it would
// have printed to stdout. Implemented by the cli package, which calls the
// same in-process function the CLI itself uses — tools that wrap the CLI
// must never shell out, to keep behaviour identical and testing
// synchronous.
type CLIRunner func(args []string) (string, error)

func reentrantDeclaration(name, description string) boardstore.FunctionDeclaration {
	return boardstore.FunctionDeclaration{
		Name:        name,
		Description: description,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"args": map[string]interface{}{
					"type":        "array",
					"description": "Positional CLI arguments, e.g. [\"add\", \"-t\", \"Title\"].",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			"required": []string{"args"},
		},
	}
}

// NewReentrantTool wraps exec as a tool named name, declared with
// description. args are decoded from the JSON array argument the provider
// supplies.
func NewReentrantTool(name, description string, exec CLIRunner) Tool {
	return Tool{
		Declaration: reentrantDeclaration(name, description),
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			raw, ok := args["args"].([]interface{})
			if !ok {
				return "", fmt.Errorf("args missing")
			}
			strArgs := make([]string, len(raw))
			for i, v := range raw {
				s, ok := v.(string)
				if !ok {
					return "", fmt.Errorf("args[%d] is not a string", i)
				}
				strArgs[i] = s
			}
			return exec(strArgs)
		},
	}
}
