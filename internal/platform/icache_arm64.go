//go:build arm64

package platform

func flushICacheAsm(addr uintptr, length uintptr)

func flushICache(addr uintptr, length int) {
	flushICacheAsm(addr, uintptr(length))
}
