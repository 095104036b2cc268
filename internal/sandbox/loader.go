package sandbox

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/prerender/internal/build"
)

type moduleState uint8

const (
	stateUninitialized moduleState = iota
	stateEvaluating
	stateDone
)

type moduleRecord struct {
	state   moduleState
	exports goja.Value
}

// loader is the per-sandbox CommonJS-style module loader. Each module
// id evaluates at most once per sandbox instance; subsequent requires
// return the memoized exports reference.
type loader struct {
	vm         *goja.Runtime
	assets     *build.AssetSet
	arena      map[string]*moduleRecord
	requireVal goja.Value
}

func newLoader(vm *goja.Runtime, assets *build.AssetSet) *loader {
	l := &loader{
		vm:     vm,
		assets: assets,
		arena:  make(map[string]*moduleRecord),
	}
	l.requireVal = vm.ToValue(l.jsRequire)
	return l
}

// jsRequire is the require binding exposed to sandboxed code.
// Failures propagate as thrown GoError values; unwrapJSError recovers
// the typed error on the way back out.
func (l *loader) jsRequire(call goja.FunctionCall) goja.Value {
	exports, err := l.load(call.Argument(0).String())
	if err != nil {
		panic(l.vm.NewGoError(err))
	}
	return exports
}

// load resolves, evaluates and memoizes a module.
func (l *loader) load(rawID string) (goja.Value, error) {
	id := normalizeModuleID(rawID)

	if rec, ok := l.arena[id]; ok {
		switch rec.state {
		case stateEvaluating:
			// Cyclic requires are rejected outright rather than
			// handing out partial exports.
			return nil, fmt.Errorf("circular require of module %q", rawID)
		case stateDone:
			return rec.exports, nil
		}
	}

	if l.assets == nil {
		return nil, &ModuleNotFoundError{ID: rawID}
	}
	src, ok := l.assets.Source(id)
	if !ok {
		return nil, &ModuleNotFoundError{ID: rawID}
	}

	rec := &moduleRecord{state: stateEvaluating}
	l.arena[id] = rec

	// Evaluate the body in an isolated function scope receiving
	// (exports, module, require).
	scope, err := l.vm.RunString("(function(exports, module, require) {\n" + src + "\n})")
	if err != nil {
		delete(l.arena, id)
		return nil, unwrapJSError(err)
	}
	fn, ok := goja.AssertFunction(scope)
	if !ok {
		delete(l.arena, id)
		return nil, fmt.Errorf("module %q did not evaluate to a callable scope", id)
	}

	exportsObj := l.vm.NewObject()
	moduleObj := l.vm.NewObject()
	if err := moduleObj.Set("exports", exportsObj); err != nil {
		delete(l.arena, id)
		return nil, err
	}

	if _, err := fn(goja.Undefined(), exportsObj, moduleObj, l.requireVal); err != nil {
		delete(l.arena, id)
		return nil, unwrapJSError(err)
	}

	// The body may have reassigned module.exports.
	rec.exports = moduleObj.Get("exports")
	rec.state = stateDone
	return rec.exports, nil
}

// normalizeModuleID strips leading ./ and / prefixes so require("./x")
// and require("x") resolve to the same asset.
func normalizeModuleID(id string) string {
	for {
		switch {
		case strings.HasPrefix(id, "./"):
			id = id[2:]
		case strings.HasPrefix(id, "/"):
			id = id[1:]
		default:
			return id
		}
	}
}
