package core

import "time"

// Config holds runtime configuration shared by all engine adapters.
type Config struct {
	MemoryLimitMB       int           // per-engine memory ceiling, 0 = unlimited
	BakeTimeout         time.Duration // wall-clock ceiling per bake call
	MicrotaskDrainLimit int           // max drain iterations for a pending promise
}

// DefaultConfig returns the configuration used when the caller supplies none.
func DefaultConfig() Config {
	return Config{
		MemoryLimitMB:       256,
		BakeTimeout:         30 * time.Second,
		MicrotaskDrainLimit: 4096,
	}
}
