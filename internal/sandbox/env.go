package sandbox

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/prerender/internal/build"
)

// Anchor records where prerendered content should be inserted: before
// NextSibling under Parent. Once consumed the anchor element itself is
// gone from the DOM and the anchor is never re-derived.
type Anchor struct {
	Parent      *html.Node
	NextSibling *html.Node
}

// Options configures one sandbox environment.
type Options struct {
	// DocumentURL is the simulated document location. Defaults to
	// http://localhost.
	DocumentURL string
	// Template is the render template; nil parses a minimal empty
	// document instead.
	Template *Template
	// Assets backs the module loader.
	Assets *build.AssetSet
	// DefineName is the boolean global mirroring the compile-time
	// prerender define.
	DefineName string
	Logger     *zap.Logger
}

// Environment is the simulated document/window a bundle executes in.
// It belongs to one render on one goroutine, built after compilation
// succeeds and discarded when the render completes.
type Environment struct {
	vm       *goja.Runtime
	doc      *html.Node
	anchor   *Anchor
	loader   *loader
	logger   *zap.Logger
	executed bool
}

// New parses the template (or default document), derives the injection
// anchor from the placeholder marker, and installs shims and loader.
func New(opts Options) (*Environment, error) {
	if opts.DocumentURL == "" {
		opts.DocumentURL = "http://localhost"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	docURL, err := url.Parse(opts.DocumentURL)
	if err != nil {
		return nil, &SandboxInitError{Reason: fmt.Sprintf("malformed document URL %q", opts.DocumentURL), Err: err}
	}
	if docURL.Scheme == "" {
		return nil, &SandboxInitError{Reason: fmt.Sprintf("malformed document URL %q: missing scheme", opts.DocumentURL)}
	}

	markup := defaultDocument
	if opts.Template != nil {
		markup = opts.Template.withAnchor()
	}
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, &SandboxInitError{Reason: "unparseable template markup", Err: err}
	}

	env := &Environment{
		vm:     goja.New(),
		doc:    doc,
		logger: opts.Logger,
	}
	env.anchor = consumeAnchor(doc)

	env.loader = newLoader(env.vm, opts.Assets)
	if err := env.vm.Set("require", env.loader.requireVal); err != nil {
		return nil, &SandboxInitError{Reason: "failed to install module loader", Err: err}
	}
	if err := installDocument(env.vm, doc, docURL); err != nil {
		return nil, &SandboxInitError{Reason: "failed to install document", Err: err}
	}
	if err := installShims(env.vm, opts.DefineName, opts.Logger); err != nil {
		return nil, &SandboxInitError{Reason: "failed to install shims", Err: err}
	}
	return env, nil
}

// consumeAnchor locates the temporary anchor element, records its
// position and removes it from the tree.
func consumeAnchor(doc *html.Node) *Anchor {
	node := htmlquery.FindOne(doc, "//"+anchorTag)
	if node == nil {
		return nil
	}
	anchor := &Anchor{Parent: node.Parent, NextSibling: node.NextSibling}
	node.Parent.RemoveChild(node)
	return anchor
}

// Execute evaluates the main bundle source in the sandbox global scope
// and returns the raw value bound to globalName. It runs exactly once
// per environment; faults surface as ExecutionError (or the loader's
// typed error when a require failed).
func (env *Environment) Execute(source, globalName string) (goja.Value, error) {
	if env.executed {
		return nil, fmt.Errorf("sandbox already executed its bundle")
	}
	env.executed = true

	if _, err := env.vm.RunString(source); err != nil {
		return nil, unwrapJSError(err)
	}
	return env.vm.Get(globalName), nil
}

// Require resolves a module directly, outside bundle evaluation.
func (env *Environment) Require(id string) (goja.Value, error) {
	return env.loader.load(id)
}

// VM exposes the underlying runtime for export resolution.
func (env *Environment) VM() *goja.Runtime { return env.vm }

// Document returns the sandbox DOM root.
func (env *Environment) Document() *html.Node { return env.doc }

// Anchor returns the recorded injection anchor, nil if the template
// had no marker.
func (env *Environment) Anchor() *Anchor { return env.anchor }
