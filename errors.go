package cyberchef

import "errors"

// Error taxonomy for the bridge. Every failure surfaces to the Bake caller
// wrapped around one of these sentinels; callers match with errors.Is.
// The executor never retries and never downgrades a failure to a partial
// result.
var (
	// ErrConfiguration: an explicitly requested engine is unavailable, or
	// Bake was called before any runtime was loaded. Never silently
	// substituted.
	ErrConfiguration = errors.New("runtime configuration error")

	// ErrRuntimeUnavailable: auto-probing found no usable engine.
	ErrRuntimeUnavailable = errors.New("no JavaScript runtime available")

	// ErrMarshal: a boundary conversion would be lossy or is impossible.
	ErrMarshal = errors.New("marshal error")

	// ErrOperationNotFound: a recipe step names an unknown operation.
	ErrOperationNotFound = errors.New("operation not found")

	// ErrInvalidArgument: a step's args do not conform to the operation's
	// declared argument schema.
	ErrInvalidArgument = errors.New("invalid operation argument")

	// ErrOperation: the engine (or a native fallback) reported a failure;
	// the original message is preserved in the wrap chain.
	ErrOperation = errors.New("operation failed")

	// ErrUnsupportedInRuntime: an event-loop-dependent operation with no
	// fallback entry was requested on an engine that cannot settle it.
	ErrUnsupportedInRuntime = errors.New("operation unsupported in this runtime")

	// ErrUnresolvable: a pending promise did not settle within the
	// microtask drain cap or the bake deadline.
	ErrUnresolvable = errors.New("promise did not settle")
)
