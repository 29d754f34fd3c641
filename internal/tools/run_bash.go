package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tomatyss/taskter/internal/boardstore"
)

func runBashDeclaration() boardstore.FunctionDeclaration {
	return boardstore.FunctionDeclaration{
		Name:        "run_bash",
		Description: "Run a shell command inside the project directory and return its trimmed stdout.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"command": map[string]interface{}{"type": "string", "description": "Shell command to execute via /bin/sh -c."},
			},
			"required": []string{"command"},
		},
	}
}

// runBash spawns /bin/sh -c <command>. It is intentionally unsandboxed:
// the tool dispatcher runs with the same privileges as the invoking user.
func runBash(ctx context.Context, args map[string]interface{}) (string, error) {
	command, _ := args["command"].(string)
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command failed: %s", strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
