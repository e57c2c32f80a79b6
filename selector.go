package cyberchef

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/williballenthin/ida-cyberchef/internal/core"
	"github.com/williballenthin/ida-cyberchef/internal/gojaengine"
	"github.com/williballenthin/ida-cyberchef/internal/quickjs"
)

// engineFactory constructs one engine backend.
type engineFactory struct {
	name core.RuntimeName
	new  func(core.Config) (core.JSRuntime, error)
}

// engineFactories lists the backends in probe preference order: the fullest
// engine first, the most portable last.
func engineFactories() []engineFactory {
	return []engineFactory{
		{core.RuntimeV8, newV8Runtime},
		{core.RuntimeGoja, func(cfg core.Config) (core.JSRuntime, error) { return gojaengine.New(cfg) }},
		{core.RuntimeQuickJS, func(cfg core.Config) (core.JSRuntime, error) { return quickjs.New(cfg) }},
	}
}

// selectRuntime picks an engine and loads the bundle into it.
//
// With a preferred name the choice is exact: any failure to construct or
// load that engine is a configuration error, never a silent substitution.
// Without one, the factories are probed in order and the first engine that
// constructs and loads wins.
func selectRuntime(preferred core.RuntimeName, cfg core.Config, bundle string, log zerolog.Logger) (core.JSRuntime, error) {
	if preferred != "" {
		for _, f := range engineFactories() {
			if f.name != preferred {
				continue
			}
			rt, err := f.new(cfg)
			if err != nil {
				return nil, fmt.Errorf("%w: requested engine %s: %v", ErrConfiguration, preferred, err)
			}
			if err := rt.Load(bundle); err != nil {
				rt.Close()
				return nil, fmt.Errorf("%w: requested engine %s: %v", ErrConfiguration, preferred, err)
			}
			return rt, nil
		}
		return nil, fmt.Errorf("%w: unknown engine %q", ErrConfiguration, preferred)
	}

	for _, f := range engineFactories() {
		rt, err := f.new(cfg)
		if err != nil {
			log.Debug().Str("engine", string(f.name)).Err(err).Msg("engine unavailable")
			continue
		}
		if err := rt.Load(bundle); err != nil {
			log.Debug().Str("engine", string(f.name)).Err(err).Msg("bundle load failed")
			rt.Close()
			continue
		}
		log.Debug().Str("engine", string(f.name)).Msg("engine selected")
		return rt, nil
	}
	return nil, fmt.Errorf("%w: no engine could load the operation library", ErrRuntimeUnavailable)
}
