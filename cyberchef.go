// Package cyberchef embeds the CyberChef operation library in a JavaScript
// engine and exposes its recipes to Go. One LoadCyberChef call selects an
// engine (V8 behind the v8 build tag, goja, or QuickJS), evaluates the
// bundle, and returns a handle whose Bake method runs recipes end to end:
// host values are wrapped into typed dishes, marshaled across the engine
// boundary, cooked step by step, and unwrapped back into host values.
//
// Operations the selected engine cannot run, compression on engines with
// broken typed-array handling and wasm-backed operations on engines without
// an event loop, are routed transparently to native Go substitutes that
// reproduce the library's byte output.
package cyberchef

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/williballenthin/ida-cyberchef/internal/core"
)

// Option adjusts how LoadCyberChef builds the runtime context.
type Option func(*options)

type options struct {
	preferred core.RuntimeName
	cfg       core.Config
	log       zerolog.Logger
	fallbacks *FallbackRegistry
}

// WithRuntime pins the engine choice. Loading fails with ErrConfiguration
// if that engine cannot be constructed or cannot load the bundle; no other
// engine is substituted.
func WithRuntime(name core.RuntimeName) Option {
	return func(o *options) { o.preferred = name }
}

// WithConfig replaces the default engine configuration.
func WithConfig(cfg core.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger attaches a logger for load and bake diagnostics. The default
// logger discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithFallbacks replaces the default native fallback registry.
func WithFallbacks(reg *FallbackRegistry) Option {
	return func(o *options) { o.fallbacks = reg }
}

// LoadCyberChef loads the operation library at bundlePath into an engine
// and returns the runtime context. The first successful load also becomes
// the process default used by the package-level Bake.
//
// Loading is seconds-scale; cache the returned context rather than
// reloading per call.
func LoadCyberChef(bundlePath string, opts ...Option) (*RuntimeContext, error) {
	o := options{
		cfg:       core.DefaultConfig(),
		log:       zerolog.Nop(),
		fallbacks: DefaultFallbacks(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	bundle, err := BundleOperationLibrary(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	reg, err := NewOperationRegistry()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	rt, err := selectRuntime(o.preferred, o.cfg, bundle, o.log)
	if err != nil {
		return nil, err
	}
	o.log.Info().
		Str("engine", string(rt.Name())).
		Str("schema_version", reg.Version()).
		Msg("operation library loaded")

	ctx := &RuntimeContext{
		rt:        rt,
		reg:       reg,
		fallbacks: o.fallbacks,
		cfg:       o.cfg,
		log:       o.log,
	}

	defaultMu.Lock()
	if defaultCtx == nil {
		defaultCtx = ctx
	}
	defaultMu.Unlock()
	return ctx, nil
}

var (
	defaultMu  sync.Mutex
	defaultCtx *RuntimeContext
)

// SetDefault replaces the process default context used by the package-level
// Bake. Passing nil clears it.
func SetDefault(ctx *RuntimeContext) {
	defaultMu.Lock()
	defaultCtx = ctx
	defaultMu.Unlock()
}

// Bake runs a recipe on the process default context. ErrConfiguration if
// no context has been loaded yet.
func Bake(input any, steps ...any) (any, error) {
	defaultMu.Lock()
	ctx := defaultCtx
	defaultMu.Unlock()
	if ctx == nil {
		return nil, fmt.Errorf("%w: no operation library loaded", ErrConfiguration)
	}
	return ctx.Bake(input, steps...)
}
