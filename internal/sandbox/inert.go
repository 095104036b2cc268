package sandbox

import "github.com/dop251/goja"

// InertAwaitable is a thenable that deliberately never settles. It
// stands in for browser capabilities disabled during prerendering
// (custom-element definition queries, service-worker registration) so
// sandboxed code cannot schedule long-lived asynchronous work through
// them. Callbacks passed to then/catch/finally are counted and
// discarded, which lets tests assert non-settlement directly instead
// of waiting.
type InertAwaitable struct {
	vm       *goja.Runtime
	obj      *goja.Object
	retained int
}

// NewInertAwaitable creates an inert thenable bound to the given VM.
func NewInertAwaitable(vm *goja.Runtime) *InertAwaitable {
	i := &InertAwaitable{vm: vm}
	obj := vm.NewObject()
	obj.Set("then", i.retain)
	obj.Set("catch", i.retain)
	obj.Set("finally", i.retain)
	i.obj = obj
	return i
}

// retain counts callable arguments without ever invoking them.
// Chaining returns a fresh inert awaitable, so derived awaitables
// never settle either.
func (i *InertAwaitable) retain(call goja.FunctionCall) goja.Value {
	for _, arg := range call.Arguments {
		if _, ok := goja.AssertFunction(arg); ok {
			i.retained++
		}
	}
	return NewInertAwaitable(i.vm).Value()
}

// Value returns the JS-facing thenable.
func (i *InertAwaitable) Value() goja.Value { return i.obj }

// Settled always reports false.
func (i *InertAwaitable) Settled() bool { return false }

// Retained returns how many callbacks were handed to the awaitable and
// will never run.
func (i *InertAwaitable) Retained() int { return i.retained }
