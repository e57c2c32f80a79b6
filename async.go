package cyberchef

import (
	"fmt"
	"time"

	"github.com/williballenthin/ida-cyberchef/internal/core"
)

// asyncShape classifies how an operation's result settles inside an engine.
type asyncShape int

const (
	// shapeSync: the operation returns a settled value synchronously.
	shapeSync asyncShape = iota
	// shapeMicrotaskPending: the operation returns a promise that settles
	// under microtask pumping alone, with no host event loop.
	shapeMicrotaskPending
	// shapeSyncCapable: nominally async, but the underlying library takes a
	// synchronous path when invoked without a callback. Treated as sync; a
	// promise appearing anyway is an operation failure, not a drain target.
	shapeSyncCapable
	// shapeEventLoopDependent: settling requires host event loop turns
	// (wasm instantiation, timers) that microtask pumping cannot provide.
	shapeEventLoopDependent
)

func (s asyncShape) String() string {
	switch s {
	case shapeSync:
		return "sync"
	case shapeMicrotaskPending:
		return "microtask-pending"
	case shapeSyncCapable:
		return "sync-capable"
	case shapeEventLoopDependent:
		return "event-loop-dependent"
	default:
		return fmt.Sprintf("asyncShape(%d)", int(s))
	}
}

// Shape tables are curated per operation-library version and revisited on
// bundle upgrades. Operations absent from both tables are microtask-pending:
// bake always hands back a promise, and most settle under pumping.
var (
	// syncCapableOps resolve synchronously when the library's no-callback
	// path is taken.
	syncCapableOps = map[string]bool{
		"Bcrypt": true,
		"Scrypt": true,
	}

	// eventLoopDependentOps instantiate wasm or otherwise need real event
	// loop turns to settle.
	eventLoopDependentOps = map[string]bool{
		"Argon2":           true,
		"Bzip2 Compress":   true,
		"Bzip2 Decompress": true,
	}
)

// classifyOperation returns the async shape of an operation by name.
func classifyOperation(name string) asyncShape {
	switch {
	case eventLoopDependentOps[name]:
		return shapeEventLoopDependent
	case syncCapableOps[name]:
		return shapeSyncCapable
	default:
		return shapeMicrotaskPending
	}
}

// syncOnlyRun reports whether a pending promise from this run is a defect
// rather than a drain target. A microtask-pending step anywhere in the run
// legitimizes the promise, so the run drains. Otherwise, a run containing a
// sync-capable step was expected to settle synchronously, and the returned
// operation names the step whose library skipped its synchronous path.
func syncOnlyRun(steps []resolvedStep) (*Operation, bool) {
	var offender *Operation
	for _, s := range steps {
		switch classifyOperation(s.op.Name) {
		case shapeMicrotaskPending, shapeEventLoopDependent:
			return nil, false
		case shapeSyncCapable:
			if offender == nil {
				offender = s.op
			}
		}
	}
	return offender, offender != nil
}

// drainPending pumps engine microtasks until the pending bake settles, the
// drain cap is hit, or the deadline passes. Progress is checked after each
// pump by reading the settlement globals the bake harness maintains.
func drainPending(rt core.JSRuntime, drainLimit int, deadline time.Time) (string, error) {
	if drainLimit <= 0 {
		drainLimit = core.DefaultConfig().MicrotaskDrainLimit
	}
	for i := 0; i < drainLimit; i++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return "", fmt.Errorf("%w: bake deadline passed after %d microtask rounds", ErrUnresolvable, i)
		}
		rt.RunMicrotasks()
		state, err := rt.EvalString("globalThis.__bake_state")
		if err != nil {
			return "", fmt.Errorf("%w: reading settlement state: %v", ErrOperation, err)
		}
		switch state {
		case "fulfilled":
			return rt.EvalString("globalThis.__bake_result")
		case "rejected":
			msg, _ := rt.EvalString("globalThis.__bake_result")
			return "", fmt.Errorf("%w: %s", ErrOperation, msg)
		}
	}
	return "", fmt.Errorf("%w: still pending after %d microtask rounds", ErrUnresolvable, drainLimit)
}
