package quickjs

import (
	"reflect"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"
)

// executePendingJobs drains the engine's pending-job queue so promise
// reactions run. The Go wrapper exposes no API for this, which would leave
// every .then callback queued forever; the underlying C entry point
// XJS_ExecutePendingJob is reachable through the wrapper's own libquickjs
// binding once we have the runtime pointer and its TLS handle. Returns the
// number of jobs run.
func executePendingJobs(vm *quickjs.VM) int {
	rt, tls, ok := extractRuntime(vm)
	if !ok {
		return 0
	}

	count := 0
	for {
		ret := lib.XJS_ExecutePendingJob(tls, rt, 0)
		if ret <= 0 {
			break
		}
		count++
	}
	return count
}

// extractRuntime reads the wrapper's unexported runtime state by reflection:
// VM holds a *runtime, and that struct's first two fields are the C runtime
// pointer (cRuntime uintptr) and the libc TLS handle (tls *libc.TLS).
// Field names are pinned to modernc.org/quickjs v0.17.1; a version bump that
// renames them degrades to ok=false and the pump becomes a no-op rather
// than corrupting memory.
func extractRuntime(vm *quickjs.VM) (cRuntime uintptr, tls *libc.TLS, ok bool) {
	vmVal := reflect.ValueOf(vm).Elem()

	rtField := vmVal.FieldByName("runtime")
	if !rtField.IsValid() || rtField.IsNil() {
		return 0, nil, false
	}

	rtPtr := unsafe.Pointer(rtField.Pointer())
	rtVal := reflect.NewAt(rtField.Type().Elem(), rtPtr).Elem()

	cRuntimeField := rtVal.FieldByName("cRuntime")
	if !cRuntimeField.IsValid() {
		return 0, nil, false
	}
	cRuntime = uintptr(cRuntimeField.Uint())

	tlsField := rtVal.FieldByName("tls")
	if !tlsField.IsValid() || tlsField.IsNil() {
		return 0, nil, false
	}
	tls = (*libc.TLS)(unsafe.Pointer(tlsField.Pointer()))

	return cRuntime, tls, true
}
