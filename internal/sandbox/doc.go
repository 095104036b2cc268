// Package sandbox builds the simulated browser environment a compiled
// bundle executes in: a DOM tree parsed from the render template, a
// constrained set of browser-API shims, and a CommonJS-style module
// loader backed by the nested build's asset set.
//
// An Environment belongs to exactly one render and one goroutine. It
// is built after compilation succeeds and discarded when the render
// completes; nothing here is safe for reuse or concurrent access.
//
// The shims are deliberately inert. Scheduling APIs hand back counter
// ids without ever firing, and capabilities that cannot exist at build
// time (custom element upgrades, service workers) answer with
// awaitables that never settle. Application code that awaits one of
// those during prerendering stalls by design; callers are expected to
// branch on the prerender define instead.
package sandbox
