package build

import (
	"fmt"
	"strings"
)

// ChildCompilationError reports error diagnostics from the nested
// build. The message concatenates every diagnostic so the offending
// entry can be located without inspecting internals.
type ChildCompilationError struct {
	RequestID string
	Details   []string
}

func (e *ChildCompilationError) Error() string {
	return fmt.Sprintf("prerender %s: child compilation failed:\n%s",
		e.RequestID, strings.Join(e.Details, "\n"))
}
