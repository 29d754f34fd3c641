package tools

import (
	"context"

	"github.com/tomatyss/taskter/internal/boardstore"
)

func getDescriptionDeclaration() boardstore.FunctionDeclaration {
	return boardstore.FunctionDeclaration{
		Name:        "get_description",
		Description: "Read the project's description.md verbatim.",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	}
}

// DescriptionLoader is satisfied by *boardstore.Store.
type DescriptionLoader interface {
	LoadDescription() (string, error)
}

// NewGetDescriptionTool binds get_description to a board store. There is
// no meaningful wall-clock bound on a local file read, so the tool
// disables the dispatcher's default timeout.
func NewGetDescriptionTool(store DescriptionLoader) Tool {
	return Tool{
		Declaration: getDescriptionDeclaration(),
		Timeout:     -1,
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return store.LoadDescription()
		},
	}
}
