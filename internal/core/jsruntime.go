package core

// RuntimeName identifies a JavaScript engine implementation.
type RuntimeName string

const (
	// RuntimeV8 is the full V8 VM (tommie/v8go). Broadest native
	// compatibility with the operation library, heaviest to embed.
	// Only available when built with the v8 build tag.
	RuntimeV8 RuntimeName = "v8"

	// RuntimeGoja is the pure-Go goja engine. Good interop, moderate
	// weight, no cgo.
	RuntimeGoja RuntimeName = "goja"

	// RuntimeQuickJS is the compact QuickJS interpreter
	// (modernc.org/quickjs). Smallest footprint, strictest typed-array
	// bounds checking, no event loop.
	RuntimeQuickJS RuntimeName = "quickjs"
)

// JSRuntime abstracts the JavaScript engine (V8, goja or QuickJS) behind a
// common interface. One implementation instance owns one loaded engine
// context plus the evaluated operation-library bundle; construction and
// Load are seconds-scale and callers are expected to cache the handle.
//
// Implementations are not safe for concurrent use. The caller serializes
// access (engine contexts are not re-entrant).
type JSRuntime interface {
	// Name returns the engine identifier.
	Name() RuntimeName

	// Load evaluates the operation-library bundle source in the engine
	// context, after installing the browser/Node polyfill prelude and the
	// boundary serializer. Load is idempotent: a second call on a
	// successfully loaded runtime is a no-op, and a second call after a
	// failed load returns the original error.
	Load(bundle string) error

	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// EvalBool evaluates JavaScript and returns the result as a Go bool.
	EvalBool(js string) (bool, error)

	// EvalInt evaluates JavaScript and returns the result as a Go int.
	EvalInt(js string) (int, error)

	// RunMicrotasks pumps the engine's microtask queue (Promise callbacks).
	// V8: PerformMicrotaskCheckpoint, QuickJS: ExecutePendingJob loop,
	// goja: a no-op evaluation (goja drains its job queue whenever the
	// call stack empties).
	RunMicrotasks()

	// NeedsCompressionFallback reports whether compression-family
	// operations must be routed to native substitutes on this engine.
	// QuickJS's stricter typed-array bounds checking breaks the operation
	// library's embedded zlib; V8 runs it fine. This is an engine-version
	// fact, re-verified per engine, not derived per call.
	NeedsCompressionFallback() bool

	// SupportsEventLoopAsync reports whether event-loop-dependent
	// asynchronous operations (wasm module instantiation and the like)
	// can settle on this engine through microtask pumping alone.
	SupportsEventLoopAsync() bool

	// Close releases the engine context. The runtime must not be used
	// afterwards.
	Close() error
}
