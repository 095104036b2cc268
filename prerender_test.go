package prerender_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/prerender"
)

func appDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	return dir
}

func TestRenderSubstitutesMarker(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `export default "Hello";`,
	})

	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
		Source:     `<div id="root">{{prerender}}</div>`,
	}, prerender.Options{})
	require.NoError(t, err)

	// Literal substitution into the original text: no document
	// wrapper, no doctype.
	assert.Equal(t, `<div id="root">Hello</div>`, out)
}

func TestRenderCapturesWholeDocument(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `
			var el = document.createElement("main");
			el.textContent = "app";
			document.body.appendChild(el);
		`,
	})

	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
	}, prerender.Options{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<main>app</main>")
}

func TestRenderInsertsIntoExplicitTemplate(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `export default "<p>Hi</p>";`,
	})

	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
	}, prerender.Options{
		Template: `<html><body><div id="app">{{prerender}}</div></body></html>`,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, `<div id="app"><p>Hi</p></div>`)
}

func TestRenderInvokesExportWithParams(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `export default function (params) { return "Hello " + params.name; };`,
	})

	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
		Source:     `<div>{{prerender}}</div>`,
	}, prerender.Options{
		Params: map[string]interface{}{"name": "X"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<div>Hello X</div>", out)
}

func TestRenderAwaitsAsyncExport(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `export default Promise.resolve("<span>async</span>");`,
	})

	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
		Source:     `<div>{{prerender}}</div>`,
	}, prerender.Options{})
	require.NoError(t, err)
	assert.Equal(t, "<div><span>async</span></div>", out)
}

func TestRenderEntryFromMarkerSpec(t *testing.T) {
	dir := appDir(t, map[string]string{
		"widget.js": `export default "W";`,
	})

	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Source:     `<div>{{prerender: widget.js}}</div>`,
	}, prerender.Options{})
	require.NoError(t, err)
	assert.Equal(t, "<div>W</div>", out)
}

func TestRenderEntryOptionOverridesMarkerSpec(t *testing.T) {
	dir := appDir(t, map[string]string{
		"a.js": `export default "A";`,
		"b.js": `export default "B";`,
	})

	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Source:     `<div>{{prerender: a.js}}</div>`,
	}, prerender.Options{
		Entry: "b.js",
	})
	require.NoError(t, err)
	assert.Equal(t, "<div>B</div>", out)
}

func TestRenderDisabledShortCircuits(t *testing.T) {
	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		Source: `<div>{{prerender}}</div>`,
	}, prerender.Options{Disabled: true})
	require.NoError(t, err)

	// Input passes through untouched, marker and all.
	assert.Equal(t, `<div>{{prerender}}</div>`, out)
}

func TestRenderStringMode(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `export default "Hi";`,
	})

	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
		Source:     `<div>{{prerender}}</div>`,
	}, prerender.Options{String: true})
	require.NoError(t, err)
	assert.Equal(t, `module.exports = "<div>Hi</div>";`, out)
}

func TestRenderStringModeWithDisabled(t *testing.T) {
	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		Source: "<p>static</p>",
	}, prerender.Options{Disabled: true, String: true})
	require.NoError(t, err)
	assert.Equal(t, `module.exports = "<p>static</p>";`, out)
}

func TestRenderCompilationFailure(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `import { gone } from "./missing.js"; export default gone;`,
	})

	_, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
	}, prerender.Options{})
	require.Error(t, err)

	var compErr *prerender.ChildCompilationError
	assert.True(t, errors.As(err, &compErr))
}

func TestRenderExecutionFailure(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `throw new Error("boot failed");`,
	})

	_, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
	}, prerender.Options{})
	require.Error(t, err)

	var execErr *prerender.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Message, "boot failed")
}

func TestRenderRejectedExportFails(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `export default Promise.reject(new Error("fetch blocked"));`,
	})

	_, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
	}, prerender.Options{})
	require.Error(t, err)

	var execErr *prerender.PrerenderExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Reason, "fetch blocked")
}

func TestRenderNoEntryAnywhere(t *testing.T) {
	_, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		Source: `<div>{{prerender}}</div>`,
	}, prerender.Options{})
	require.Error(t, err)

	var initErr *prerender.SandboxInitError
	require.True(t, errors.As(err, &initErr))
	assert.Contains(t, err.Error(), "no entry module")
}

func TestRenderDocumentURLVisibleToBundle(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `export default location.origin + location.pathname;`,
	})

	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
		Source:     `<div>{{prerender}}</div>`,
	}, prerender.Options{
		DocumentURL: "https://shop.example/catalog",
	})
	require.NoError(t, err)
	assert.Equal(t, "<div>https://shop.example/catalog</div>", out)
}

func TestRenderDefineVisibleToBundle(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `export default PRERENDER ? "prerendered" : "live";`,
	})

	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
		Source:     `<div>{{prerender}}</div>`,
	}, prerender.Options{})
	require.NoError(t, err)
	assert.Equal(t, "<div>prerendered</div>", out)
}

func TestRenderUndefinedExportLeavesMarkerEmpty(t *testing.T) {
	dir := appDir(t, map[string]string{
		"entry.js": `document.body.setAttribute("data-ran", "1");`,
	})

	out, err := prerender.New(prerender.Config{}).Render(context.Background(), prerender.Request{
		ContextDir: dir,
		Entry:      prerender.EntryPath("entry.js"),
		Source:     `<div>[{{prerender}}]</div>`,
	}, prerender.Options{})
	require.NoError(t, err)
	assert.Equal(t, "<div>[]</div>", out)
}
