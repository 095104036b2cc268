package prerender

import "github.com/evanw/esbuild/pkg/api"

// Request identifies what to render: the content the render was
// invoked on and the build context it compiles in.
type Request struct {
	// ID correlates all log output and cache partitions for one
	// render. Generated when empty.
	ID string
	// ContextDir is the nested build's working directory; module
	// resolution is relative to it.
	ContextDir string
	// Entry is the inherited entry specification, used when neither an
	// option override nor a placeholder spec names one.
	Entry Entry
	// Source is the content the render was invoked on. Markup sources
	// become the template and may carry a placeholder marker; script
	// sources and the empty string leave the sandbox on its minimal
	// default document.
	Source string
	// Plugins are the host build's plugins. Only those whose name
	// matches the configured style tag carry into the nested build.
	Plugins []api.Plugin
}

// Options tune one render.
type Options struct {
	// String wraps the output as a module exporting the markup as a
	// JSON-encoded string literal.
	String bool
	// Disabled short-circuits the whole pipeline and returns Source
	// unchanged (still subject to String wrapping).
	Disabled bool
	// DocumentURL overrides the simulated document location.
	DocumentURL string
	// Params is passed as the single argument when the resolved export
	// is invokable. Nil invokes with null.
	Params interface{}
	// Entry overrides every other entry source when non-empty.
	Entry string
	// Template is an explicitly supplied template. When set it shapes
	// the sandbox document and, if the export resolves to a defined
	// value, receives that value as an HTML fragment at its
	// placeholder position.
	Template string
}
