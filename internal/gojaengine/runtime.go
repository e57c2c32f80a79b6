// Package gojaengine adapts the dop251/goja engine to the core JSRuntime
// contract. Goja is a pure-Go ECMAScript implementation with direct value
// interop; whether the operation library's embedded zlib survives it is
// probed empirically on first use rather than assumed.
package gojaengine

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/williballenthin/ida-cyberchef/internal/core"
)

// Runtime implements core.JSRuntime for the goja engine.
type Runtime struct {
	vm      *goja.Runtime
	loaded  bool
	loadErr error

	probeOnce     sync.Once
	needsFallback bool
}

var _ core.JSRuntime = (*Runtime)(nil)

// New creates a goja runtime. Goja has no memory ceiling knob; the
// MemoryLimitMB config field is ignored here.
func New(cfg core.Config) (*Runtime, error) {
	return &Runtime{vm: goja.New()}, nil
}

// Name returns the engine identifier.
func (r *Runtime) Name() core.RuntimeName { return core.RuntimeGoja }

// Load evaluates the polyfill prelude, the operation-library bundle and the
// boundary serializer. Idempotent: repeat calls no-op on success and
// re-raise the original error after a corrupt bundle.
func (r *Runtime) Load(bundle string) error {
	if r.loaded || r.loadErr != nil {
		return r.loadErr
	}
	for _, js := range []string{
		core.PolyfillJS,
		core.ModuleScaffoldJS,
		bundle,
		core.BindChefJS,
		core.SerializeDishJS,
	} {
		if err := r.Eval(js); err != nil {
			r.loadErr = fmt.Errorf("loading operation library: %w", err)
			return r.loadErr
		}
	}
	r.loaded = true
	return nil
}

// Eval evaluates JavaScript and discards the result.
func (r *Runtime) Eval(js string) error {
	_, err := r.vm.RunString(js)
	return err
}

// EvalString evaluates JavaScript and returns the result as a Go string.
// Undefined and null evaluate to the empty string.
func (r *Runtime) EvalString(js string) (string, error) {
	val, err := r.vm.RunString(js)
	if err != nil {
		return "", err
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return "", nil
	}
	return val.String(), nil
}

// EvalBool evaluates JavaScript and returns the result as a Go bool.
func (r *Runtime) EvalBool(js string) (bool, error) {
	val, err := r.vm.RunString(js)
	if err != nil {
		return false, err
	}
	if val == nil {
		return false, nil
	}
	return val.ToBoolean(), nil
}

// EvalInt evaluates JavaScript and returns the result as a Go int.
func (r *Runtime) EvalInt(js string) (int, error) {
	val, err := r.vm.RunString(js)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return 0, nil
	}
	return int(val.ToInteger()), nil
}

// RunMicrotasks evaluates a no-op expression. Goja drains its promise job
// queue whenever the call stack empties, so an empty evaluation is exactly
// a microtask checkpoint.
func (r *Runtime) RunMicrotasks() {
	_, _ = r.vm.RunString("void 0")
}

// NeedsCompressionFallback probes the loaded operation library once with a
// small deflate and caches the verdict. An unloaded or broken runtime
// reports true so compression routes to the native substitutes.
func (r *Runtime) NeedsCompressionFallback() bool {
	r.probeOnce.Do(func() {
		if !r.loaded {
			r.needsFallback = true
			return
		}
		ok, err := r.EvalBool(core.CompressionProbeJS)
		r.needsFallback = err != nil || !ok
	})
	return r.needsFallback
}

// SupportsEventLoopAsync is false: goja has no event loop of its own, and
// this bridge deliberately runs without one.
func (r *Runtime) SupportsEventLoopAsync() bool { return false }

// Close releases the runtime. Goja is garbage collected; nothing to free.
func (r *Runtime) Close() error { return nil }
