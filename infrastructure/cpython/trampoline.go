//go:build cgo && (linux || darwin)

package cpython

/*
#include "shim.h"
*/
import "C"

// pybridgeTrampoline receives every call of a callable built by NewCallable.
// Returning NULL without an exception makes the interpreter raise
// SystemError, which is what a call before SetTrampoline deserves.
//
//export pybridgeTrampoline
func pybridgeTrampoline(ctx C.uintptr_t, args, kwargs C.pb_ref) C.pb_ref {
	r := active.Load()
	if r == nil || r.trampoline == nil {
		return 0
	}
	return ref(r.trampoline(uintptr(ctx), ptr(args), ptr(kwargs)))
}
