//go:build !v8

package cyberchef

import (
	"errors"
	"testing"

	"github.com/williballenthin/ida-cyberchef/internal/core"
)

func TestSelectUnknownEngine(t *testing.T) {
	_, err := LoadCyberChef(testBundle, WithRuntime("martian"))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("LoadCyberChef = %v, want ErrConfiguration", err)
	}
}

func TestSelectV8WithoutBuildTag(t *testing.T) {
	_, err := LoadCyberChef(testBundle, WithRuntime(core.RuntimeV8))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("LoadCyberChef = %v, want ErrConfiguration", err)
	}
}

func TestAutoProbePicksAnEngine(t *testing.T) {
	ctx, err := LoadCyberChef(testBundle)
	if err != nil {
		t.Fatalf("LoadCyberChef: %v", err)
	}
	defer ctx.Close()
	// Without the v8 tag the probe order lands on goja first.
	if ctx.Runtime() != core.RuntimeGoja {
		t.Fatalf("auto-probe selected %s", ctx.Runtime())
	}
}

func TestExplicitQuickJS(t *testing.T) {
	ctx, err := LoadCyberChef(testBundle, WithRuntime(core.RuntimeQuickJS))
	if err != nil {
		t.Fatalf("LoadCyberChef: %v", err)
	}
	defer ctx.Close()
	if ctx.Runtime() != core.RuntimeQuickJS {
		t.Fatalf("Runtime = %s", ctx.Runtime())
	}

	got, err := ctx.Bake("hello", "To Base64")
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if got != "aGVsbG8=" {
		t.Fatalf("Bake = %q", got)
	}
}

func TestQuickJSRoutesCompressionNative(t *testing.T) {
	ctx, err := LoadCyberChef(testBundle, WithRuntime(core.RuntimeQuickJS))
	if err != nil {
		t.Fatalf("LoadCyberChef: %v", err)
	}
	defer ctx.Close()

	step := Step("Gzip", nil)
	op, err := ctx.reg.Lookup("Gzip")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	runs, err := partitionRecipe(ctx.rt, []resolvedStep{{step: step, op: op}}, ctx.fallbacks)
	if err != nil {
		t.Fatalf("partitionRecipe: %v", err)
	}
	if len(runs) != 1 || !runs[0].native {
		t.Fatalf("Gzip on QuickJS should route native, got %+v", runs)
	}
}
