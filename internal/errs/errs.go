// Package errs defines the error kinds surfaced by Taskter's core components.
package errs

import "fmt"

// Kind identifies one of the error categories from the error handling design.
type Kind string

const (
	NotInitialized Kind = "NotInitialized"
	CorruptStore   Kind = "CorruptStore"
	NotFound       Kind = "NotFound"
	InvalidArg     Kind = "InvalidArgument"
	ToolError      Kind = "ToolError"
	ProviderError  Kind = "ProviderError"
	IterationLimit Kind = "IterationLimit"
	ConfigError    Kind = "ConfigError"
)

// Error is a typed Taskter error carrying a Kind for errors.Is comparisons.
type Error struct {
	Kind Kind
	Path string // relevant file path, when applicable (e.g. CorruptStore)
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, errs.New(kind, "", nil)) style comparisons by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error of the given kind.
func New(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// Of returns a bare sentinel of the given kind, suitable for errors.Is checks:
// errors.Is(err, errs.Of(errs.NotFound))
func Of(kind Kind) *Error {
	return &Error{Kind: kind}
}
