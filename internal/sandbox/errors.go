package sandbox

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// SandboxInitError reports an invalid document URL or unparseable
// template markup.
type SandboxInitError struct {
	Reason string
	Err    error
}

func (e *SandboxInitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sandbox init failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("sandbox init failed: %s", e.Reason)
}

func (e *SandboxInitError) Unwrap() error { return e.Err }

// ModuleNotFoundError reports a require for a module id absent from
// the compiled asset set. ID is the id as requested, before
// normalization.
type ModuleNotFoundError struct {
	ID string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module not found: attempted require(%q)", e.ID)
}

// ExecutionError reports an uncaught fault while evaluating bundle
// code, preserving the original fault's message and trace.
type ExecutionError struct {
	Message string
	Stack   string
}

func (e *ExecutionError) Error() string {
	if e.Stack != "" {
		return fmt.Sprintf("execution failed: %s\n%s", e.Message, e.Stack)
	}
	return fmt.Sprintf("execution failed: %s", e.Message)
}

// unwrapJSError converts a goja evaluation error into the taxonomy:
// Go errors thrown through the VM (loader failures) pass through
// unchanged, everything else becomes an ExecutionError carrying the
// original message and stack.
func unwrapJSError(err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		if obj, ok := ex.Value().(*goja.Object); ok {
			if v := obj.Get("value"); v != nil {
				if goErr, ok := v.Export().(error); ok {
					return goErr
				}
			}
		}
		return &ExecutionError{Message: ex.Value().String(), Stack: ex.String()}
	}
	return &ExecutionError{Message: err.Error()}
}
