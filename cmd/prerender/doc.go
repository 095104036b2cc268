// Package main is the command-line front end for the prerenderer.
//
// It compiles an application entry in a nested build, executes the
// bundle in a simulated browser document, and writes the prerendered
// HTML to stdout or a file.
//
// Pipeline:
//
//	Template + Entry → Nested Build → Sandbox Execution → Export
//	Resolution → Injection → HTML
//
// Configuration:
//   - Environment variables (PRERENDER_ prefix)
//   - Optional YAML config file (overrides env)
//   - CLI flags (override both)
//
// Usage:
//
//	# Prerender an entry into a template with a {{prerender}} marker
//	prerender -context ./app -template index.html -entry src/main.js
//
//	# Whole-document capture, no template
//	prerender -context ./app -entry src/main.js -o dist/index.html
//
//	# Emit a string module instead of raw HTML
//	prerender -context ./app -entry src/main.js -string
package main
