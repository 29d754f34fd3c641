package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomatyss/taskter/internal/boardstore"
)

func projectFilesDeclaration() boardstore.FunctionDeclaration {
	return boardstore.FunctionDeclaration{
		Name:        "project_files",
		Description: "Create, read, update, or search files by path, using the path verbatim with no sandboxing.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"action":  map[string]interface{}{"type": "string", "description": "One of create, read, update, search."},
				"path":    map[string]interface{}{"type": "string", "description": "File path, required for create/read/update."},
				"content": map[string]interface{}{"type": "string", "description": "File content, required for update; optional for create (defaults to empty)."},
				"query":   map[string]interface{}{"type": "string", "description": "Substring to search for, required for search."},
			},
			"required": []string{"action"},
		},
	}
}

// projectFiles implements create/read/update/search against the caller's
// working directory. There is no sandbox: callers must be trusted, and the
// path is used exactly as supplied.
func projectFiles(ctx context.Context, args map[string]interface{}) (string, error) {
	action, _ := args["action"].(string)
	switch action {
	case "create":
		path, ok := args["path"].(string)
		if !ok {
			return "", fmt.Errorf("path missing")
		}
		content, _ := args["content"].(string)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", err
		}
		return fmt.Sprintf("Created %s", path), nil
	case "read":
		path, ok := args["path"].(string)
		if !ok {
			return "", fmt.Errorf("path missing")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "update":
		path, ok := args["path"].(string)
		if !ok {
			return "", fmt.Errorf("path missing")
		}
		content, ok := args["content"].(string)
		if !ok {
			return "", fmt.Errorf("content missing")
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", err
		}
		return fmt.Sprintf("Updated %s", path), nil
	case "search":
		query, ok := args["query"].(string)
		if !ok {
			return "", fmt.Errorf("query missing")
		}
		return searchFiles(ctx, query)
	default:
		return "", fmt.Errorf("unknown action")
	}
}

func searchFiles(ctx context.Context, query string) (string, error) {
	var matches []string
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if strings.Contains(string(data), query) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "No matches found", nil
	}
	return strings.Join(matches, "\n"), nil
}
