package cyberchef

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/williballenthin/ida-cyberchef/internal/core"
)

func TestClassifyOperation(t *testing.T) {
	cases := []struct {
		op   string
		want asyncShape
	}{
		{"To Base64", shapeMicrotaskPending},
		{"MD5", shapeMicrotaskPending},
		{"Bcrypt", shapeSyncCapable},
		{"Scrypt", shapeSyncCapable},
		{"Argon2", shapeEventLoopDependent},
		{"Bzip2 Compress", shapeEventLoopDependent},
		{"Bzip2 Decompress", shapeEventLoopDependent},
	}
	for _, tc := range cases {
		if got := classifyOperation(tc.op); got != tc.want {
			t.Errorf("classifyOperation(%q) = %s, want %s", tc.op, got, tc.want)
		}
	}
}

func TestSyncOnlyRun(t *testing.T) {
	reg := newRegistry(t)
	lookup := func(name string) resolvedStep {
		op, err := reg.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		return resolvedStep{step: OperationStep{Name: name}, op: op}
	}

	// A run of only sync-capable steps must not drain a promise, and the
	// reported operation is the sync-capable one.
	op, ok := syncOnlyRun([]resolvedStep{lookup("Bcrypt")})
	if !ok || op.Name != "Bcrypt" {
		t.Fatalf("syncOnlyRun = %v, %v", op, ok)
	}
	op, ok = syncOnlyRun([]resolvedStep{lookup("Scrypt"), lookup("Bcrypt")})
	if !ok || op.Name != "Scrypt" {
		t.Fatalf("syncOnlyRun = %v, %v", op, ok)
	}

	// A microtask-pending step anywhere in the run legitimizes the promise,
	// regardless of position.
	if _, ok := syncOnlyRun([]resolvedStep{lookup("To Base64"), lookup("Bcrypt")}); ok {
		t.Fatal("mixed run with a microtask-pending step must drain")
	}
	if _, ok := syncOnlyRun([]resolvedStep{lookup("Bcrypt"), lookup("MD5")}); ok {
		t.Fatal("mixed run with a microtask-pending step must drain")
	}
}

// fakeRuntime scripts the settlement states drainPending observes.
type fakeRuntime struct {
	states []string
	result string
	round  int
	pumps  int
}

func (f *fakeRuntime) Name() core.RuntimeName { return "fake" }
func (f *fakeRuntime) Load(string) error      { return nil }
func (f *fakeRuntime) Eval(string) error      { return nil }
func (f *fakeRuntime) EvalString(js string) (string, error) {
	if strings.Contains(js, "__bake_state") {
		if f.round < len(f.states) {
			s := f.states[f.round]
			f.round++
			return s, nil
		}
		return "pending", nil
	}
	return f.result, nil
}
func (f *fakeRuntime) EvalBool(string) (bool, error) { return false, nil }
func (f *fakeRuntime) EvalInt(string) (int, error)   { return 0, nil }
func (f *fakeRuntime) RunMicrotasks()                { f.pumps++ }
func (f *fakeRuntime) NeedsCompressionFallback() bool { return false }
func (f *fakeRuntime) SupportsEventLoopAsync() bool   { return false }
func (f *fakeRuntime) Close() error                   { return nil }

func TestDrainPendingSettles(t *testing.T) {
	rt := &fakeRuntime{states: []string{"pending", "pending", "fulfilled"}, result: `{"value":"ok","type":1}`}
	got, err := drainPending(rt, 10, time.Time{})
	if err != nil {
		t.Fatalf("drainPending: %v", err)
	}
	if got != rt.result {
		t.Fatalf("drainPending = %q", got)
	}
	if rt.pumps != 3 {
		t.Fatalf("pumped %d times, want 3", rt.pumps)
	}
}

func TestDrainPendingRejection(t *testing.T) {
	rt := &fakeRuntime{states: []string{"rejected"}, result: "boom"}
	_, err := drainPending(rt, 10, time.Time{})
	if !errors.Is(err, ErrOperation) {
		t.Fatalf("drainPending = %v, want ErrOperation", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("rejection message lost: %v", err)
	}
}

func TestDrainPendingCap(t *testing.T) {
	rt := &fakeRuntime{}
	_, err := drainPending(rt, 5, time.Time{})
	if !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("drainPending = %v, want ErrUnresolvable", err)
	}
	if rt.pumps != 5 {
		t.Fatalf("pumped %d times, want 5", rt.pumps)
	}
}

func TestDrainPendingDeadline(t *testing.T) {
	rt := &fakeRuntime{}
	_, err := drainPending(rt, 1000000, time.Now().Add(-time.Second))
	if !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("drainPending = %v, want ErrUnresolvable", err)
	}
	if rt.pumps != 0 {
		t.Fatalf("pumped %d times past the deadline", rt.pumps)
	}
}
