package resolve

import (
	"errors"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, vm *goja.Runtime, script string) goja.Value {
	t.Helper()
	v, err := vm.RunString(script)
	require.NoError(t, err)
	return v
}

func TestClassify(t *testing.T) {
	vm := goja.New()

	tests := []struct {
		name   string
		script string
		want   Shape
	}{
		{"undefined", "undefined", Missing},
		{"null", "null", Missing},
		{"string literal", `"hello"`, Literal},
		{"number literal", "42", Literal},
		{"boolean literal", "true", Literal},
		{"plain object", `({ html: "<p/>" })`, Composite},
		{"function", "(function() {})", Callable},
		{"native promise", "Promise.resolve(1)", Awaitable},
		{"bare thenable", `({ then: function() {} })`, Awaitable},
		{"object with non-callable then", `({ then: 3 })`, Composite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(vm, eval(t, vm, tt.script)))
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.Equal(t, Missing, Classify(goja.New(), nil))
}

func TestResolveLiteral(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `"<h1>Hi</h1>"`), nil)
	require.NoError(t, err)
	assert.True(t, result.Defined)
	assert.Equal(t, "<h1>Hi</h1>", result.Text)
}

func TestResolveMissing(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, goja.Undefined(), nil)
	require.NoError(t, err)
	assert.False(t, result.Defined)
}

func TestResolveUnwrapsDefaultExport(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `({ __esModule: true, other: "B", default: "A" })`), nil)
	require.NoError(t, err)
	assert.Equal(t, "A", result.Text)
}

func TestResolveUnwrapsFirstNonMarkerKey(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `({ __esModule: true, render: "first", later: "second" })`), nil)
	require.NoError(t, err)
	assert.Equal(t, "first", result.Text)
}

func TestResolveEmptyCompositeIsUndefined(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `({ __esModule: true })`), nil)
	require.NoError(t, err)
	assert.False(t, result.Defined)
}

func TestResolveInvokesWithParams(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `(function(p) { return "Hello " + p.name; })`), map[string]interface{}{"name": "X"})
	require.NoError(t, err)
	assert.Equal(t, "Hello X", result.Text)
}

func TestResolveInvokesWithNullWhenNoParams(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `(function(p) { return String(p); })`), nil)
	require.NoError(t, err)
	assert.Equal(t, "null", result.Text)
}

func TestResolveUnwrapThenInvoke(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `({ default: function() { return "run"; } })`), nil)
	require.NoError(t, err)
	assert.Equal(t, "run", result.Text)
}

func TestResolveInvokeThenAwait(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `(function() { return Promise.resolve("async html"); })`), nil)
	require.NoError(t, err)
	assert.Equal(t, "async html", result.Text)
}

func TestResolveInvocationFault(t *testing.T) {
	vm := goja.New()
	_, err := Resolve(vm, eval(t, vm, `(function() { throw new Error("render exploded"); })`), nil)
	require.Error(t, err)

	var execErr *PrerenderExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Reason, "render exploded")
}

func TestResolveFulfilledPromise(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `Promise.resolve("<div/>")`), nil)
	require.NoError(t, err)
	assert.Equal(t, "<div/>", result.Text)
}

func TestResolveRejectedPromise(t *testing.T) {
	vm := goja.New()
	_, err := Resolve(vm, eval(t, vm, `Promise.reject(new Error("no data"))`), nil)
	require.Error(t, err)

	var execErr *PrerenderExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Reason, "no data")
}

func TestResolveChainedPromise(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `Promise.resolve("a").then(function(v) { return v + "b"; })`), nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", result.Text)
}

func TestResolveCustomThenable(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `({
		then: function(onFulfilled) { onFulfilled("custom"); }
	})`), nil)
	require.NoError(t, err)
	assert.Equal(t, "custom", result.Text)
}

func TestResolveNeverSettlingThenable(t *testing.T) {
	vm := goja.New()
	_, err := Resolve(vm, eval(t, vm, `({ then: function() {} })`), nil)
	require.Error(t, err)

	var execErr *PrerenderExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Reason, "never settles")
}

func TestResolveAwaitableCompositeIsAwaitedNotUnwrapped(t *testing.T) {
	vm := goja.New()
	// default would win if unwrapping applied; the thenable wins instead.
	result, err := Resolve(vm, eval(t, vm, `({
		default: "wrong",
		then: function(onFulfilled) { onFulfilled("right"); }
	})`), nil)
	require.NoError(t, err)
	assert.Equal(t, "right", result.Text)
}

func TestResolveNullSettledValueIsUndefined(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `Promise.resolve(null)`), nil)
	require.NoError(t, err)
	assert.False(t, result.Defined)
}

func TestResolveNonStringSettledValueStringifies(t *testing.T) {
	vm := goja.New()
	result, err := Resolve(vm, eval(t, vm, `Promise.resolve(7)`), nil)
	require.NoError(t, err)
	assert.Equal(t, "7", result.Text)
}
