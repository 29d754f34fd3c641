package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tomatyss/taskter/internal/boardstore"
)

func runPythonDeclaration() boardstore.FunctionDeclaration {
	return boardstore.FunctionDeclaration{
		Name:        "run_python",
		Description: "Run inline Python code via the system interpreter and return its trimmed stdout.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"code": map[string]interface{}{"type": "string", "description": "Python source passed to python3 -c."},
			},
			"required": []string{"code"},
		},
	}
}

func runPython(ctx context.Context, args map[string]interface{}) (string, error) {
	code, _ := args["code"].(string)
	cmd := exec.CommandContext(ctx, "python3", "-c", code)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("python execution failed: %s", strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
