package patch

import "unsafe"

// unsafeView aliases n bytes of process memory starting at addr as a Go
// slice, mirroring the teacher's byte-at-a-time unsafeReadMemory but as a
// single bounded conversion instead of a per-byte loop.
func unsafeView(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}
