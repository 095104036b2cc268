package sandbox

import (
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// installShims populates the constrained browser-API surface. None of
// these schedule real work: scheduling calls hand back counter ids and
// never fire, and disabled capabilities answer with inert awaitables.
func installShims(vm *goja.Runtime, defineName string, logger *zap.Logger) error {
	installConsole(vm, logger)
	installTimers(vm)
	installAnimationFrame(vm)
	installCustomElements(vm)
	installMessageChannel(vm)
	installMatchMedia(vm)
	installNavigator(vm)

	// Mirror of the compile-time prerender define, for code paths that
	// check the global directly instead of relying on the bundler's
	// conditional compilation.
	if defineName == "" {
		return nil
	}
	return vm.Set(defineName, true)
}

func installConsole(vm *goja.Runtime, logger *zap.Logger) {
	logger = logger.Named("console")
	console := vm.NewObject()

	logFunc := func(log func(string, ...zap.Field)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			log(strings.Join(parts, " "))
			return goja.Undefined()
		}
	}

	console.Set("log", logFunc(logger.Info))
	console.Set("info", logFunc(logger.Info))
	console.Set("warn", logFunc(logger.Warn))
	console.Set("error", logFunc(logger.Error))
	console.Set("debug", logFunc(logger.Debug))
	vm.Set("console", console)
}

// installTimers stubs the timer APIs: ids increase monotonically but
// callbacks never fire. Real timers would keep a render open past the
// single synchronous evaluation pass.
func installTimers(vm *goja.Runtime) {
	var nextID int64
	schedule := func(call goja.FunctionCall) goja.Value {
		nextID++
		return vm.ToValue(nextID)
	}
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }

	vm.Set("setTimeout", schedule)
	vm.Set("setInterval", schedule)
	vm.Set("clearTimeout", noop)
	vm.Set("clearInterval", noop)
}

// installAnimationFrame returns a monotonically increasing counter id
// per request; cancellation is a no-op since nothing was scheduled.
func installAnimationFrame(vm *goja.Runtime) {
	var counter int64
	vm.Set("requestAnimationFrame", func(call goja.FunctionCall) goja.Value {
		counter++
		return vm.ToValue(counter)
	})
	vm.Set("cancelAnimationFrame", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
}

// installCustomElements stubs the registry. Registration, lookup and
// upgrade are no-ops and "defined" queries never settle, so custom
// elements prerender as their light DOM only.
func installCustomElements(vm *goja.Runtime) {
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }

	registry := vm.NewObject()
	registry.Set("define", noop)
	registry.Set("get", noop)
	registry.Set("upgrade", noop)
	registry.Set("whenDefined", func(call goja.FunctionCall) goja.Value {
		return NewInertAwaitable(vm).Value()
	})
	vm.Set("customElements", registry)
}

// installMessageChannel provides a constructor producing a pair of
// event-target-like ports whose sends go nowhere.
func installMessageChannel(vm *goja.Runtime) {
	newPort := func() *goja.Object {
		noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
		port := vm.NewObject()
		port.Set("postMessage", noop)
		port.Set("start", noop)
		port.Set("close", noop)
		port.Set("addEventListener", noop)
		port.Set("removeEventListener", noop)
		port.Set("onmessage", goja.Null())
		return port
	}

	vm.Set("MessageChannel", func(call goja.ConstructorCall) *goja.Object {
		call.This.Set("port1", newPort())
		call.This.Set("port2", newPort())
		return nil
	})
}

// installMatchMedia always reports a non-match and ignores listeners.
func installMatchMedia(vm *goja.Runtime) {
	vm.Set("matchMedia", func(call goja.FunctionCall) goja.Value {
		noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
		mql := vm.NewObject()
		mql.Set("matches", false)
		mql.Set("media", call.Argument(0).String())
		mql.Set("onchange", goja.Null())
		mql.Set("addListener", noop)
		mql.Set("removeListener", noop)
		mql.Set("addEventListener", noop)
		mql.Set("removeEventListener", noop)
		mql.Set("dispatchEvent", func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(false)
		})
		return mql
	})
}

func installNavigator(vm *goja.Runtime) {
	serviceWorker := vm.NewObject()
	serviceWorker.Set("register", func(call goja.FunctionCall) goja.Value {
		return NewInertAwaitable(vm).Value()
	})
	serviceWorker.Set("ready", NewInertAwaitable(vm).Value())

	navigator := vm.NewObject()
	navigator.Set("userAgent", "Mozilla/5.0 (prerender)")
	navigator.Set("serviceWorker", serviceWorker)
	vm.Set("navigator", navigator)
}
