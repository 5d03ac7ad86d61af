package main

import "unsafe"

// funcval mirrors the runtime's internal func-value representation: a
// pointer to a struct whose first (only, here) field is the code entry
// address. See internal/declare/unsafe.go for the general,
// reflection-driven version of this trick; this one is specialized to a
// single known signature so the demo has no reflection in its hot path.
type funcval struct {
	fn uintptr
}

func makeCallable(addr uint64) func(int32, int32) int32 {
	fv := &funcval{fn: uintptr(addr)}
	var f func(int32, int32) int32
	*(*unsafe.Pointer)(unsafe.Pointer(&f)) = unsafe.Pointer(fv)
	return f
}
