package declare

import (
	"reflect"
	"unsafe"
)

// funcval mirrors the runtime's internal representation of a Go func
// value: a single word, the entry code pointer, addressed indirectly
// through the func variable's own word. This is the same class of trick
// hinako applies to syscall.Proc's unexported addr field via
// reflect.Value.UnsafeAddr, extended here to a func-typed variable instead
// of a struct field.
type funcval struct {
	fn uintptr
}

// detourCodePointer returns the entry address a Go func value dispatches
// to, used as the detour address installed into the target's prologue.
func detourCodePointer(v reflect.Value) uintptr {
	return v.Pointer()
}

// setFuncCodePointer repoints funcVar, an addressable variable of Kind
// Func, at code: a fresh funcval whose only field is code is allocated on
// the Go heap and its address stored into funcVar's word, so a later call
// through funcVar dispatches directly to code.
//
// This assumes code's calling convention matches what the Go runtime
// expects when invoking a func value of funcVar's type; it is sound for
// the register-passed-argument ARM calling conventions this package
// targets, not for arbitrary foreign ABIs.
func setFuncCodePointer(funcVar reflect.Value, code uintptr) {
	fv := &funcval{fn: code}
	word := (*uintptr)(unsafe.Pointer(funcVar.UnsafeAddr()))
	*word = uintptr(unsafe.Pointer(fv))
}
