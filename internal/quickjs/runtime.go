// Package quickjs adapts the modernc.org/quickjs engine to the core
// JSRuntime contract. QuickJS is the most portable engine (pure Go, no
// cgo) but its stricter typed-array bounds checking breaks the operation
// library's embedded zlib, so compression operations are routed to native
// fallbacks.
package quickjs

import (
	"fmt"

	"github.com/williballenthin/ida-cyberchef/internal/core"
	"modernc.org/quickjs"
)

// Runtime implements core.JSRuntime for the QuickJS engine.
type Runtime struct {
	vm      *quickjs.VM
	loaded  bool
	loadErr error
}

var _ core.JSRuntime = (*Runtime)(nil)

// New creates a QuickJS VM with the configured memory ceiling.
func New(cfg core.Config) (*Runtime, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}
	if cfg.MemoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(cfg.MemoryLimitMB) * 1024 * 1024)
	}
	return &Runtime{vm: vm}, nil
}

// Name returns the engine identifier.
func (r *Runtime) Name() core.RuntimeName { return core.RuntimeQuickJS }

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

// Eval evaluates JavaScript and discards the result (frees the Value).
func (r *Runtime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *Runtime) EvalString(js string) (string, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// EvalBool evaluates JavaScript and returns the result as a Go bool.
func (r *Runtime) EvalBool(js string) (bool, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", result)
	}
	return b, nil
}

// EvalInt evaluates JavaScript and returns the result as a Go int.
func (r *Runtime) EvalInt(js string) (int, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return 0, err
	}
	switch v := result.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected int, got %T", result)
	}
}

// RunMicrotasks pumps the QuickJS pending-job queue until it is empty.
func (r *Runtime) RunMicrotasks() {
	executePendingJobs(r.vm)
}

// NeedsCompressionFallback is true: QuickJS typed-array bounds checking
// breaks the operation library's zlib Huffman encoding. Verified against
// modernc.org/quickjs v0.17; re-check when the pinned version moves.
func (r *Runtime) NeedsCompressionFallback() bool { return true }

// SupportsEventLoopAsync is false: QuickJS has no event loop, so async
// work that needs more than microtask draining can never settle here.
func (r *Runtime) SupportsEventLoopAsync() bool { return false }

// Close releases the VM.
func (r *Runtime) Close() error {
	r.vm.Close()
	return nil
}
