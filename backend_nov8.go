//go:build !v8

package cyberchef

import (
	"errors"

	"github.com/williballenthin/ida-cyberchef/internal/core"
)

func newV8Runtime(core.Config) (core.JSRuntime, error) {
	return nil, errors.New("built without the v8 tag")
}
