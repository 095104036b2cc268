package build

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"
)

// Config holds the constants threaded through each invoker instance.
// These were process-wide globals in earlier designs; per-instance
// values keep concurrent pipelines from colliding.
type Config struct {
	// DefineName is the compile-time boolean define: "true" inside the
	// nested build, "false" in the host build.
	DefineName string
	// GlobalName is the binding the bundle populates with the entry's
	// export value.
	GlobalName string
	// BundleName is the output name of the main bundle (without
	// extension).
	BundleName string
	// StylePluginTag selects host plugins to carry over: only plugins
	// whose name starts with this tag participate in the nested build.
	StylePluginTag string
}

// Entry specifies the nested build's entry modules: a single path, an
// array of paths, or a named map.
type Entry struct {
	paths []string
	named map[string]string
}

// EntryPath specifies a single entry module.
func EntryPath(path string) Entry {
	return Entry{paths: []string{path}}
}

// EntryPaths specifies an array of entry modules. The first one
// becomes the main bundle.
func EntryPaths(paths ...string) Entry {
	return Entry{paths: paths}
}

// EntryMap specifies named entry modules.
func EntryMap(named map[string]string) Entry {
	return Entry{named: named}
}

// IsZero reports whether no entry was specified.
func (e Entry) IsZero() bool {
	return len(e.paths) == 0 && len(e.named) == 0
}

// key returns a stable cache key for the entry specification.
func (e Entry) key() string {
	if len(e.named) > 0 {
		names := make([]string, 0, len(e.named))
		for name := range e.named {
			names = append(names, name+"="+e.named[name])
		}
		sort.Strings(names)
		return "map:" + strings.Join(names, ",")
	}
	return "paths:" + strings.Join(e.paths, ",")
}

// points expands the entry specification into esbuild entry points,
// naming the main output bundleName.
func (e Entry) points(bundleName string) []api.EntryPoint {
	if len(e.named) > 0 {
		names := make([]string, 0, len(e.named))
		for name := range e.named {
			names = append(names, name)
		}
		sort.Strings(names)

		points := make([]api.EntryPoint, 0, len(names))
		for _, name := range names {
			points = append(points, api.EntryPoint{InputPath: e.named[name], OutputPath: name})
		}
		return points
	}

	points := make([]api.EntryPoint, 0, len(e.paths))
	for i, path := range e.paths {
		out := bundleName
		if i > 0 {
			base := filepath.Base(path)
			out = strings.TrimSuffix(base, filepath.Ext(base))
		}
		points = append(points, api.EntryPoint{InputPath: path, OutputPath: out})
	}
	return points
}

// Request describes one nested build pass.
type Request struct {
	ContextDir string
	Entry      Entry
	// Plugins holds the host build's plugin set; only the
	// style-extraction subset carries over.
	Plugins []api.Plugin
}

// Invoker runs isolated, entry-scoped nested builds.
type Invoker struct {
	cfg    Config
	store  *Store
	logger *zap.Logger
}

// NewInvoker creates an invoker backed by the given cache store.
func NewInvoker(cfg Config, store *Store, logger *zap.Logger) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewStore()
	}
	return &Invoker{cfg: cfg, store: store, logger: logger}
}

// Build compiles the request's entry modules into an in-memory asset
// set. Output never merges into the host's real output set. Error
// diagnostics fail the build with ChildCompilationError; no partial
// asset set is returned.
func (inv *Invoker) Build(ctx context.Context, requestID string, req Request) (*AssetSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Entry.IsZero() {
		return nil, fmt.Errorf("prerender %s: no entry module specified", requestID)
	}

	part := inv.store.Partition(requestID)
	cacheKey := req.Entry.key() + "|" + inv.cfg.DefineName
	if set, ok := part.get(cacheKey); ok {
		inv.logger.Debug("nested build cache hit",
			zap.String("request_id", requestID),
			zap.String("entry", req.Entry.key()))
		return set, nil
	}

	result := api.Build(api.BuildOptions{
		AbsWorkingDir:       req.ContextDir,
		EntryPointsAdvanced: req.Entry.points(inv.cfg.BundleName),
		Bundle:              true,
		Write:               false,
		Outdir:              "prerender-dist",
		Format:              api.FormatIIFE,
		GlobalName:          inv.cfg.GlobalName,
		Platform:            api.PlatformBrowser,
		Define:              map[string]string{inv.cfg.DefineName: "true"},
		Plugins:             inv.carryPlugins(req.Plugins),
		LogLevel:            api.LogLevelSilent,
	})

	// Diagnostics still reach the host for observability.
	for _, msg := range api.FormatMessages(result.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage}) {
		inv.logger.Warn("nested build diagnostic",
			zap.String("request_id", requestID),
			zap.String("detail", strings.TrimSpace(msg)))
	}

	if len(result.Errors) > 0 {
		details := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		for i, detail := range details {
			details[i] = strings.TrimSpace(detail)
		}
		return nil, &ChildCompilationError{RequestID: requestID, Details: details}
	}

	files := make(map[string]string, len(result.OutputFiles))
	for _, out := range result.OutputFiles {
		files[filepath.Base(out.Path)] = string(out.Contents)
	}
	set := NewAssetSet(files, inv.cfg.BundleName+".js")

	part.put(cacheKey, set)
	inv.logger.Debug("nested build complete",
		zap.String("request_id", requestID),
		zap.String("main", set.Main()),
		zap.Int("assets", set.Len()))
	return set, nil
}

// carryPlugins filters the host plugin set down to the
// style-extraction subset.
func (inv *Invoker) carryPlugins(plugins []api.Plugin) []api.Plugin {
	if inv.cfg.StylePluginTag == "" {
		return nil
	}
	var carried []api.Plugin
	for _, plugin := range plugins {
		if strings.HasPrefix(plugin.Name, inv.cfg.StylePluginTag) {
			carried = append(carried, plugin)
		}
	}
	return carried
}
