// Package prerender performs build-time prerendering: it compiles a
// client-application bundle in an isolated nested build, executes it
// inside a simulated browser document, captures the resulting markup,
// and merges it into an HTML template, yielding static HTML without a
// real browser or server round-trip.
package prerender

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/prerender/internal/build"
	"github.com/GriffinCanCode/prerender/internal/config"
	"github.com/GriffinCanCode/prerender/internal/id"
	"github.com/GriffinCanCode/prerender/internal/inject"
	"github.com/GriffinCanCode/prerender/internal/logging"
	"github.com/GriffinCanCode/prerender/internal/resolve"
	"github.com/GriffinCanCode/prerender/internal/sandbox"
)

// Entry specifies the nested build's entry modules.
type Entry = build.Entry

// EntryPath specifies a single entry module.
func EntryPath(path string) Entry { return build.EntryPath(path) }

// EntryPaths specifies an array of entry modules; the first becomes
// the main bundle.
func EntryPaths(paths ...string) Entry { return build.EntryPaths(paths...) }

// EntryMap specifies named entry modules.
func EntryMap(named map[string]string) Entry { return build.EntryMap(named) }

// Renderer runs prerender pipelines. One Renderer serves many renders;
// concurrent renders share only its partitioned cache store.
type Renderer struct {
	cfg     config.PipelineConfig
	logger  *zap.Logger
	invoker *build.Invoker
}

// Config tunes a Renderer. Zero values fall back to defaults. The
// naming knobs exist so several pipelines in one process never collide
// on shared identifiers.
type Config struct {
	// DefineName is the compile-time boolean define, true for the
	// nested build. Default PRERENDER.
	DefineName string
	// GlobalName is the binding the bundle populates with the entry's
	// export value. Default __PRERENDER_RESULT__.
	GlobalName string
	// BundleName names the main nested-build output. Default main.
	BundleName string
	// StylePluginTag selects which host plugins carry into the nested
	// build. Default style-extract.
	StylePluginTag string
	// DocumentURL is the default sandbox document location. Default
	// http://localhost.
	DocumentURL string
	// Logger receives pipeline and sandbox console output. Defaults
	// to a no-op logger.
	Logger *zap.Logger
}

// New creates a Renderer with a fresh cache store.
func New(cfg Config) *Renderer {
	defaults := config.Default().Pipeline
	pc := config.PipelineConfig{
		DefineName:     orDefault(cfg.DefineName, defaults.DefineName),
		GlobalName:     orDefault(cfg.GlobalName, defaults.GlobalName),
		BundleName:     orDefault(cfg.BundleName, defaults.BundleName),
		StylePluginTag: orDefault(cfg.StylePluginTag, defaults.StylePluginTag),
		DocumentURL:    orDefault(cfg.DocumentURL, defaults.DocumentURL),
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Renderer{
		cfg:    pc,
		logger: logger,
		invoker: build.NewInvoker(build.Config{
			DefineName:     pc.DefineName,
			GlobalName:     pc.GlobalName,
			BundleName:     pc.BundleName,
			StylePluginTag: pc.StylePluginTag,
		}, build.NewStore(), logger),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Render runs one prerender pipeline to completion: nested build,
// sandbox construction, execution, export resolution, injection or
// serialization. It fails with one of the taxonomy errors and no
// partial output; the only recoverable short-circuit is
// Options.Disabled.
func (r *Renderer) Render(ctx context.Context, req Request, opts Options) (string, error) {
	requestID := req.ID
	if requestID == "" {
		requestID = id.NewRenderID().String()
	}
	logger := logging.ForRender(r.logger, requestID)

	if opts.Disabled {
		return r.finish(req.Source, opts)
	}

	// Classify the source: non-script markup becomes the template and
	// arms the inject flag when a marker is present.
	var srcTemplate *sandbox.Template
	if req.Source != "" && isMarkup(req.Source) {
		t := sandbox.ParseTemplate(req.Source)
		srcTemplate = &t
	}
	injectFlag := srcTemplate != nil && srcTemplate.HasMarker()

	var explicitTemplate *sandbox.Template
	if opts.Template != "" {
		t := sandbox.ParseTemplate(opts.Template)
		explicitTemplate = &t
	}

	// The explicitly supplied template shapes the sandbox document
	// when present; otherwise the markup source does.
	sandboxTemplate := explicitTemplate
	if sandboxTemplate == nil {
		sandboxTemplate = srcTemplate
	}

	entry, err := r.pickEntry(req, opts, explicitTemplate, srcTemplate)
	if err != nil {
		return "", err
	}

	assets, err := r.invoker.Build(ctx, requestID, build.Request{
		ContextDir: req.ContextDir,
		Entry:      entry,
		Plugins:    req.Plugins,
	})
	if err != nil {
		return "", err
	}

	docURL := opts.DocumentURL
	if docURL == "" {
		docURL = r.cfg.DocumentURL
	}
	env, err := sandbox.New(sandbox.Options{
		DocumentURL: docURL,
		Template:    sandboxTemplate,
		Assets:      assets,
		DefineName:  r.cfg.DefineName,
		Logger:      logger,
	})
	if err != nil {
		return "", err
	}

	raw, err := env.Execute(assets.MainSource(), r.cfg.GlobalName)
	if err != nil {
		return "", err
	}

	value, err := resolve.Resolve(env.VM(), raw, opts.Params)
	if err != nil {
		return "", err
	}

	output, err := inject.Merge(inject.Input{
		Template: explicitTemplate,
		Source:   srcTemplate,
		Document: env.Document(),
		Anchor:   env.Anchor(),
		Value:    value,
		Inject:   injectFlag,
	})
	if err != nil {
		return "", err
	}

	logger.Debug("render complete",
		zap.Bool("inject", injectFlag),
		zap.Bool("value_defined", value.Defined),
		zap.Int("output_bytes", len(output)))
	return r.finish(output, opts)
}

// pickEntry applies the entry precedence: explicit option override,
// then the placeholder's captured spec, then the request's inherited
// entry.
func (r *Renderer) pickEntry(req Request, opts Options, templates ...*sandbox.Template) (Entry, error) {
	if opts.Entry != "" {
		return build.EntryPath(opts.Entry), nil
	}
	for _, t := range templates {
		if t != nil && t.EntrySpec != "" {
			return build.EntryPath(t.EntrySpec), nil
		}
	}
	if !req.Entry.IsZero() {
		return req.Entry, nil
	}
	return Entry{}, &SandboxInitError{Reason: "no entry module: supply Request.Entry, Options.Entry or a {{prerender: <entry>}} marker"}
}

// finish applies string-output mode.
func (r *Renderer) finish(output string, opts Options) (string, error) {
	if !opts.String {
		return output, nil
	}
	return inject.WrapStringModule(output)
}

// isMarkup reports whether content is non-script markup.
func isMarkup(content string) bool {
	if strings.HasPrefix(strings.TrimSpace(content), "<") {
		return true
	}
	return mimetype.Detect([]byte(content)).Is("text/html")
}
