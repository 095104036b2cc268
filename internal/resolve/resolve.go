// Package resolve normalizes the raw value a bundle leaves behind into
// the final markup value. Export shapes are ambiguous (a module
// exports object, a render function, an awaitable, or a literal), so
// the shape is inspected once into a tagged variant and a fixed
// three-step algorithm (unwrap, invoke, await) runs each step at most
// once, in order. Resolution always terminates in at most three
// transitions.
package resolve

import (
	"fmt"

	"github.com/dop251/goja"
)

// Shape tags the inspected variant of a value.
type Shape int

const (
	// Missing is nil, undefined or null.
	Missing Shape = iota
	// Composite is a non-callable, non-thenable object export.
	Composite
	// Callable is an invokable function.
	Callable
	// Awaitable exposes a callable "then". A value that is both
	// composite and awaitable classifies as Awaitable: it is awaited
	// without unwrapping.
	Awaitable
	// Literal is any other primitive.
	Literal
)

// esModuleMarker is the module-system key skipped during unwrapping.
const esModuleMarker = "__esModule"

// PrerenderExecutionError reports a rejected awaitable or a fault
// thrown by an invoked export, preserving the original reason.
type PrerenderExecutionError struct {
	Reason string
}

func (e *PrerenderExecutionError) Error() string {
	return fmt.Sprintf("prerender execution failed: %s", e.Reason)
}

// Result is the resolver's normalized output: undefined, or a literal
// string.
type Result struct {
	Defined bool
	Text    string
}

// Classify inspects a value once. Callable wins over Awaitable (the
// invoke step precedes the await step), Awaitable wins over Composite
// (awaited without unwrapping).
func Classify(vm *goja.Runtime, v goja.Value) Shape {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return Missing
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return Literal
	}
	if _, ok := goja.AssertFunction(v); ok {
		return Callable
	}
	if isThenable(obj) {
		return Awaitable
	}
	return Composite
}

func isThenable(obj *goja.Object) bool {
	then := obj.Get("then")
	if then == nil {
		return false
	}
	_, ok := goja.AssertFunction(then)
	return ok
}

// Resolve runs the fixed algorithm: unwrap a composite export, invoke
// a callable with params (or null), await a thenable. params comes
// from the render options and is passed as the single invocation
// argument.
func Resolve(vm *goja.Runtime, raw goja.Value, params interface{}) (Result, error) {
	v := raw

	// Step 1: unwrap, at most once. Objects produced by later steps
	// are not re-unwrapped.
	if Classify(vm, v) == Composite {
		v = unwrap(v.(*goja.Object))
	}

	// Step 2: invoke.
	if Classify(vm, v) == Callable {
		fn, _ := goja.AssertFunction(v)
		arg := goja.Null()
		if params != nil {
			arg = vm.ToValue(params)
		}
		ret, err := fn(goja.Undefined(), arg)
		if err != nil {
			return Result{}, &PrerenderExecutionError{Reason: faultReason(err)}
		}
		v = ret
	}

	// Step 3: await.
	if Classify(vm, v) == Awaitable {
		settled, err := await(vm, v.(*goja.Object))
		if err != nil {
			return Result{}, err
		}
		v = settled
	}

	return finalize(v), nil
}

// unwrap selects the best inner value of an object export: the
// conventional default-export key when bound, otherwise the first own
// property in stable enumeration order whose key is not the
// module-system marker. No qualifying property yields undefined.
func unwrap(obj *goja.Object) goja.Value {
	if d := obj.Get("default"); d != nil && !goja.IsUndefined(d) {
		return d
	}
	for _, key := range obj.Keys() {
		if key == esModuleMarker {
			continue
		}
		return obj.Get(key)
	}
	return goja.Undefined()
}

// await settles a thenable. Native promises are read directly from
// their state; other thenables get callbacks registered through their
// own then. With no event loop behind the sandbox a value that has not
// settled once the job queue drains never will; that is reported as a
// failure naming the caller responsibility, rather than stalling the
// render forever.
func await(vm *goja.Runtime, obj *goja.Object) (goja.Value, error) {
	if p, ok := obj.Export().(*goja.Promise); ok {
		switch p.State() {
		case goja.PromiseStateFulfilled:
			return p.Result(), nil
		case goja.PromiseStateRejected:
			return nil, &PrerenderExecutionError{Reason: rejectionReason(p.Result())}
		}
		// Pending falls through to then-registration below, which
		// also drains any outstanding reaction jobs.
	}

	thenFn, ok := goja.AssertFunction(obj.Get("then"))
	if !ok {
		return obj, nil
	}

	var (
		fulfilled, rejected bool
		value, reason       goja.Value
	)
	onFulfilled := vm.ToValue(func(call goja.FunctionCall) goja.Value {
		fulfilled = true
		value = call.Argument(0)
		return goja.Undefined()
	})
	onRejected := vm.ToValue(func(call goja.FunctionCall) goja.Value {
		rejected = true
		reason = call.Argument(0)
		return goja.Undefined()
	})

	if _, err := thenFn(obj, onFulfilled, onRejected); err != nil {
		return nil, &PrerenderExecutionError{Reason: faultReason(err)}
	}

	// Re-entering the VM drained the reaction job queue, so a settled
	// thenable has called back by now.
	switch {
	case rejected:
		return nil, &PrerenderExecutionError{Reason: rejectionReason(reason)}
	case fulfilled:
		return value, nil
	default:
		return nil, &PrerenderExecutionError{
			Reason: "awaited value never settles; avoid awaiting disabled-capability results during prerendering",
		}
	}
}

// finalize coerces the settled value into the resolver contract:
// undefined or null stay undefined, everything else stringifies.
func finalize(v goja.Value) Result {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return Result{}
	}
	return Result{Defined: true, Text: v.String()}
}

func rejectionReason(v goja.Value) string {
	if v == nil {
		return "rejected"
	}
	return v.String()
}

func faultReason(err error) string {
	if ex, ok := err.(*goja.Exception); ok {
		return ex.Value().String()
	}
	return err.Error()
}
