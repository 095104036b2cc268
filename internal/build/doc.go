// Package build runs the nested, entry-scoped build pass that produces
// in-memory compiled bundle text for the sandbox to execute.
//
// The nested build is fully isolated from the host build: output files
// are never written to disk, only a configured subset of host plugins
// carries over, and a compile-time boolean define is flipped true so
// application code can branch on the prerender pass. Results are cached
// in a per-request partition of the host's cache store so repeated
// renders of an unchanged entry skip recompilation.
package build
