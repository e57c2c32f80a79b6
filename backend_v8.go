//go:build v8

package cyberchef

import (
	"github.com/williballenthin/ida-cyberchef/internal/core"
	"github.com/williballenthin/ida-cyberchef/internal/v8engine"
)

func newV8Runtime(cfg core.Config) (core.JSRuntime, error) {
	return v8engine.New(cfg)
}
