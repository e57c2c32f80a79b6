//go:build v8

// Package v8engine adapts the tommie/v8go engine to the core JSRuntime
// contract. V8 has the broadest compatibility with the operation library
// (its embedded zlib and wasm-backed operations both work) but is the
// heaviest to embed, so it sits behind the v8 build tag.
package v8engine

import (
	"fmt"

	v8 "github.com/tommie/v8go"
	"github.com/williballenthin/ida-cyberchef/internal/core"
)

// Runtime implements core.JSRuntime for the V8 engine.
type Runtime struct {
	iso     *v8.Isolate
	ctx     *v8.Context
	loaded  bool
	loadErr error
}

var _ core.JSRuntime = (*Runtime)(nil)

// New creates a V8 isolate and context with the configured heap ceiling.
func New(cfg core.Config) (*Runtime, error) {
	var iso *v8.Isolate
	if cfg.MemoryLimitMB > 0 {
		heapSize := uint64(cfg.MemoryLimitMB) * 1024 * 1024
		iso = v8.NewIsolate(v8.WithResourceConstraints(heapSize/2, heapSize))
	} else {
		iso = v8.NewIsolate()
	}
	ctx := v8.NewContext(iso)
	return &Runtime{iso: iso, ctx: ctx}, nil
}

// Name returns the engine identifier.
func (r *Runtime) Name() core.RuntimeName { return core.RuntimeV8 }

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
	_, err := r.ctx.RunScript(js, "eval.js")
	return err
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *Runtime) EvalString(js string) (string, error) {
	val, err := r.ctx.RunScript(js, "eval_string.js")
	if err != nil {
		return "", err
	}
	if val == nil || val.IsUndefined() || val.IsNull() {
		return "", nil
	}
	return val.String(), nil
}

// EvalBool evaluates JavaScript and returns the result as a Go bool.
func (r *Runtime) EvalBool(js string) (bool, error) {
	val, err := r.ctx.RunScript(js, "eval_bool.js")
	if err != nil {
		return false, err
	}
	if val == nil {
		return false, nil
	}
	return val.Boolean(), nil
}

// EvalInt evaluates JavaScript and returns the result as a Go int.
func (r *Runtime) EvalInt(js string) (int, error) {
	val, err := r.ctx.RunScript(js, "eval_int.js")
	if err != nil {
		return 0, err
	}
	if val == nil {
		return 0, nil
	}
	return int(val.Integer()), nil
}

// RunMicrotasks performs a V8 microtask checkpoint.
func (r *Runtime) RunMicrotasks() {
	r.ctx.PerformMicrotaskCheckpoint()
}

// NeedsCompressionFallback is false: V8 runs the operation library's
// embedded zlib correctly.
func (r *Runtime) NeedsCompressionFallback() bool { return false }

// SupportsEventLoopAsync is true: V8's wasm instantiation and promise
// machinery settle under checkpoint pumping alone.
func (r *Runtime) SupportsEventLoopAsync() bool { return true }

// Close releases the context and isolate.
func (r *Runtime) Close() error {
	r.ctx.Close()
	r.iso.Dispose()
	return nil
}
