package cyberchef

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/williballenthin/ida-cyberchef/internal/core"
)

// RuntimeContext owns one loaded engine and executes recipes against it.
// A context serializes bakes with a mutex: the underlying engines are not
// safe for concurrent evaluation, so concurrent Bake calls queue.
type RuntimeContext struct {
	mu        sync.Mutex
	rt        core.JSRuntime
	reg       *OperationRegistry
	fallbacks *FallbackRegistry
	cfg       core.Config
	log       zerolog.Logger
	closed    bool
}

// Runtime reports which engine backs this context.
func (c *RuntimeContext) Runtime() core.RuntimeName {
	return c.rt.Name()
}

// Registry exposes the operation schema registry for lookup and search.
func (c *RuntimeContext) Registry() *OperationRegistry {
	return c.reg
}

// Fallbacks exposes the native fallback registry so callers can register
// replacements or remove entries.
func (c *RuntimeContext) Fallbacks() *FallbackRegistry {
	return c.fallbacks
}

// Close releases the engine. The context is unusable afterwards.
func (c *RuntimeContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rt.Close()
}

// resolvedStep pairs a recipe step with its schema entry.
type resolvedStep struct {
	step OperationStep
	op   *Operation
}

// recipeRun is a maximal span of consecutive steps executing on the same
// side of the boundary.
type recipeRun struct {
	steps  []resolvedStep
	native bool
}

// Bake executes a recipe against the input and returns the final host value.
// Steps accept the same loose forms as ParseRecipe. The whole call either
// succeeds or returns an error wrapping one of the package sentinels; there
// are no partial results.
func (c *RuntimeContext) Bake(input any, steps ...any) (any, error) {
	recipe, err := ParseRecipe(steps...)
	if err != nil {
		return nil, err
	}
	if len(recipe) == 0 {
		// An empty recipe is the identity: the input comes back unchanged,
		// having only crossed the marshaler.
		dish, err := NewDish(input)
		if err != nil {
			return nil, err
		}
		return dish.ToHost()
	}

	resolved := make([]resolvedStep, len(recipe))
	for i, s := range recipe {
		op, err := c.reg.ValidateStep(s)
		if err != nil {
			return nil, err
		}
		resolved[i] = resolvedStep{step: s, op: op}
	}

	dish, err := NewDish(input)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("%w: context is closed", ErrConfiguration)
	}

	runs, err := partitionRecipe(c.rt, resolved, c.fallbacks)
	if err != nil {
		return nil, err
	}
	c.log.Debug().
		Str("recipe", describeRecipe(recipe)).
		Int("runs", len(runs)).
		Msg("bake")

	deadline := time.Time{}
	if c.cfg.BakeTimeout > 0 {
		deadline = time.Now().Add(c.cfg.BakeTimeout)
	}

	for _, run := range runs {
		if run.native {
			dish, err = c.runNative(dish, run.steps)
		} else {
			dish, err = c.runEngine(dish, run.steps, deadline)
		}
		if err != nil {
			return nil, err
		}
	}

	last := resolved[len(resolved)-1].op
	dish, err = coerceToDeclared(dish, last.OutputType)
	if err != nil {
		return nil, err
	}
	return dish.ToHost()
}

// partitionRecipe splits a resolved recipe into engine and native runs.
// A step is routed to its native fallback only when the engine cannot run
// it: event-loop-dependent shapes on an engine without event loop async, or
// compression-module operations on an engine whose compression is known
// broken. An event-loop-dependent step with no fallback on such an engine
// fails the whole bake up front.
func partitionRecipe(rt core.JSRuntime, resolved []resolvedStep, fallbacks *FallbackRegistry) ([]recipeRun, error) {
	var runs []recipeRun
	for _, rs := range resolved {
		native, err := routeNative(rt, rs, fallbacks)
		if err != nil {
			return nil, err
		}
		if n := len(runs); n > 0 && runs[n-1].native == native {
			runs[n-1].steps = append(runs[n-1].steps, rs)
			continue
		}
		runs = append(runs, recipeRun{steps: []resolvedStep{rs}, native: native})
	}
	return runs, nil
}

func routeNative(rt core.JSRuntime, rs resolvedStep, fallbacks *FallbackRegistry) (bool, error) {
	_, hasFallback := fallbacks.Lookup(rs.op.Name)
	if classifyOperation(rs.op.Name) == shapeEventLoopDependent && !rt.SupportsEventLoopAsync() {
		if !hasFallback {
			return false, fmt.Errorf("%w: %q needs an event loop that %s does not provide",
				ErrUnsupportedInRuntime, rs.op.Name, rt.Name())
		}
		return true, nil
	}
	if hasFallback && rs.op.Module == "Compression" && rt.NeedsCompressionFallback() {
		return true, nil
	}
	return false, nil
}

// bakeTemplateJS wraps one engine run: reconstruct the dish, bake the run's
// steps, and publish the serialized result through the settlement globals.
// A synchronous result comes back directly; a promise leaves the sentinel
// for the host drain loop.
const bakeTemplateJS = `(() => {
	const chef = globalThis.` + core.ChefGlobal + `;
	delete globalThis.__bake_state;
	delete globalThis.__bake_result;
	const wire = %s;
	const recipe = %s;
	const finish = (d) => {
		globalThis.__bake_result = globalThis.__serializeDish(d);
		globalThis.__bake_state = "fulfilled";
	};
	const fail = (e) => {
		globalThis.__bake_result = String(e && e.message || e);
		globalThis.__bake_state = "rejected";
	};
	try {
		let v = wire.value;
		if (wire.type === 4 && Array.isArray(v)) {
			v = new Uint8Array(v).buffer;
		}
		const dish = new chef.Dish(v, wire.type);
		const out = chef.bake(dish, recipe);
		if (out && typeof out.then === "function") {
			globalThis.__bake_state = "pending";
			out.then(finish, fail);
			return "__pending__";
		}
		finish(out);
	} catch (e) {
		fail(e);
		return "__rejected__";
	}
	return globalThis.__bake_result;
})()`

// runEngine executes a run of steps inside the engine in one evaluation.
func (c *RuntimeContext) runEngine(dish Dish, steps []resolvedStep, deadline time.Time) (Dish, error) {
	wire, err := marshalWire(dish)
	if err != nil {
		return Dish{}, err
	}
	recipe := make(Recipe, len(steps))
	for i, rs := range steps {
		recipe[i] = rs.step
	}
	recipeJSON, err := wireRecipe(c.reg, recipe)
	if err != nil {
		return Dish{}, err
	}

	c.log.Debug().
		Str("engine", string(c.rt.Name())).
		Int("steps", len(steps)).
		Str("first", steps[0].op.Name).
		Msg("engine run")

	raw, err := c.rt.EvalString(fmt.Sprintf(bakeTemplateJS, wire, recipeJSON))
	if err != nil {
		return Dish{}, fmt.Errorf("%w: %v", ErrOperation, err)
	}
	switch raw {
	case "__rejected__":
		msg, _ := c.rt.EvalString("globalThis.__bake_result")
		return Dish{}, fmt.Errorf("%w: %s", ErrOperation, msg)
	case "__pending__":
		if op, ok := syncOnlyRun(steps); ok {
			// The library was expected to take its synchronous path.
			return Dish{}, fmt.Errorf("%w: %s returned a promise on its synchronous path",
				ErrOperation, op.Name)
		}
		raw, err = drainPending(c.rt, c.cfg.MicrotaskDrainLimit, deadline)
		if err != nil {
			return Dish{}, err
		}
	}
	return unmarshalWire(raw)
}

// runNative executes a run of steps through their registered fallbacks.
func (c *RuntimeContext) runNative(dish Dish, steps []resolvedStep) (Dish, error) {
	data, err := dish.Bytes()
	if err != nil {
		return Dish{}, err
	}
	for _, rs := range steps {
		fn, ok := c.fallbacks.Lookup(rs.op.Name)
		if !ok {
			return Dish{}, fmt.Errorf("%w: no native fallback for %q", ErrUnsupportedInRuntime, rs.op.Name)
		}
		c.log.Debug().
			Str("op", rs.op.Name).
			Int("input_len", len(data)).
			Msg("native fallback")
		data, err = fn(data, nativeArgs(rs.op, rs.step.Args))
		if err != nil {
			return Dish{}, err
		}
	}
	return Dish{Type: DishArrayBuffer, Value: data}, nil
}

// nativeArgs merges schema defaults under the caller's arguments so fallback
// implementations always see every declared argument.
func nativeArgs(op *Operation, args map[string]any) map[string]any {
	merged := make(map[string]any, len(op.Args))
	for i := range op.Args {
		arg := &op.Args[i]
		merged[arg.Name] = defaultNativeValue(arg)
	}
	for k, v := range args {
		merged[k] = v
	}
	return merged
}

func defaultNativeValue(arg *OperationArg) any {
	if arg.Type == "option" {
		if choices, ok := arg.Value.([]any); ok && len(choices) > 0 {
			return choices[0]
		}
	}
	return arg.Value
}

// describeRecipe renders a recipe for log lines.
func describeRecipe(recipe Recipe) string {
	names := make([]string, len(recipe))
	for i, s := range recipe {
		names[i] = s.Name
	}
	return strings.Join(names, " > ")
}
