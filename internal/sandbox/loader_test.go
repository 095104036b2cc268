package sandbox

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/prerender/internal/build"
)

func newTestEnv(t *testing.T, markup string, files map[string]string) *Environment {
	t.Helper()

	var tmpl *Template
	if markup != "" {
		parsed := ParseTemplate(markup)
		tmpl = &parsed
	}
	env, err := New(Options{
		Template:   tmpl,
		Assets:     build.NewAssetSet(files, "main.js"),
		DefineName: "PRERENDER",
	})
	require.NoError(t, err)
	return env
}

func TestRequireEvaluatesModule(t *testing.T) {
	env := newTestEnv(t, "", map[string]string{
		"greet.js": `module.exports = "Hello";`,
	})

	exports, err := env.Require("greet.js")
	require.NoError(t, err)
	assert.Equal(t, "Hello", exports.String())
}

func TestRequireMemoizesExports(t *testing.T) {
	env := newTestEnv(t, "", map[string]string{
		"state.js": `exports.items = [];`,
	})

	// All spellings of the id resolve to the same evaluation; the
	// returned exports are the identical object, not a re-run.
	same, err := env.Execute(`
		var a = require("state.js");
		a.items.push(1);
		var b = require("./state.js");
		var c = require("/state.js");
		var same = (a === b) && (b === c) && (b.items.length === 1);
	`, "same")
	require.NoError(t, err)
	assert.True(t, same.ToBoolean())
}

func TestRequireMissingModule(t *testing.T) {
	env := newTestEnv(t, "", map[string]string{
		"main.js": `module.exports = 1;`,
	})

	_, err := env.Require("./missing")
	require.Error(t, err)

	var notFound *ModuleNotFoundError
	require.True(t, errors.As(err, &notFound))
	// The id is reported exactly as requested, before normalization.
	assert.Equal(t, "./missing", notFound.ID)
	assert.Contains(t, err.Error(), `require("./missing")`)
}

func TestRequireMissingModuleFromBundle(t *testing.T) {
	env := newTestEnv(t, "", nil)

	_, err := env.Execute(`require("./nope.js");`, "")
	require.Error(t, err)

	var notFound *ModuleNotFoundError
	require.True(t, errors.As(err, &notFound), "typed error should survive the VM boundary, got %T", err)
	assert.Equal(t, "./nope.js", notFound.ID)
}

func TestRequireCycleFailsFast(t *testing.T) {
	env := newTestEnv(t, "", map[string]string{
		"a.js": `require("b.js"); module.exports = "a";`,
		"b.js": `require("a.js"); module.exports = "b";`,
	})

	_, err := env.Require("a.js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular require")
}

func TestRequireModuleExportsReassignment(t *testing.T) {
	env := newTestEnv(t, "", map[string]string{
		"fn.js": `module.exports = function (name) { return "hi " + name; };`,
	})

	result, err := env.Execute(`var out = require("fn.js")("dev");`, "out")
	require.NoError(t, err)
	assert.Equal(t, "hi dev", result.String())
}

func TestRequireFailedModuleIsNotMemoized(t *testing.T) {
	env := newTestEnv(t, "", map[string]string{
		"bad.js": `throw new Error("boom");`,
	})

	_, err := env.Require("bad.js")
	require.Error(t, err)

	// A failed evaluation leaves no half-initialized record behind.
	_, err = env.Require("bad.js")
	require.Error(t, err)
	var exec *ExecutionError
	require.True(t, errors.As(err, &exec))
	assert.Contains(t, exec.Message, "boom")
}
