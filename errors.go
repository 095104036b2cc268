package prerender

import (
	"github.com/GriffinCanCode/prerender/internal/build"
	"github.com/GriffinCanCode/prerender/internal/resolve"
	"github.com/GriffinCanCode/prerender/internal/sandbox"
)

// The pipeline fails with exactly one of these types; callers can
// switch on them with errors.As.

// ChildCompilationError reports a failed nested build, carrying every
// diagnostic the build produced.
type ChildCompilationError = build.ChildCompilationError

// ModuleNotFoundError reports a require of an asset the nested build
// did not produce. ID is the identifier exactly as requested.
type ModuleNotFoundError = sandbox.ModuleNotFoundError

// ExecutionError reports a fault thrown during bundle evaluation,
// with the sandbox stack trace when available.
type ExecutionError = sandbox.ExecutionError

// SandboxInitError reports a sandbox that could not be constructed:
// malformed document URL, unparseable template, or missing entry.
type SandboxInitError = sandbox.SandboxInitError

// PrerenderExecutionError reports a rejected awaitable or a fault from
// invoking the resolved export.
type PrerenderExecutionError = resolve.PrerenderExecutionError
