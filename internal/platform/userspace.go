package platform

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Userspace is the Adapter backing ordinary process use: executable memory
// via mmap, protection changes via mprotect, cache maintenance via the
// assembly in icache_arm64.s on arm64 (a no-op elsewhere, see
// icache_other.go).
type Userspace struct{}

var _ Adapter = Userspace{}

func (Userspace) AllocExecutable(size int) (*Region, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(ErrOutOfMemory, err.Error())
	}
	return &Region{Addr: uintptr(unsafe.Pointer(&data[0])), Data: data}, nil
}

func (Userspace) FreeExecutable(r *Region) error {
	if r == nil {
		return nil
	}
	if err := unix.Munmap(r.Data); err != nil {
		return errors.Wrap(err, "platform: munmap")
	}
	return nil
}

func (Userspace) MakeWritable(addr uintptr, length int) (func() error, error) {
	page := pageOf(addr, length)
	if err := unix.Mprotect(page, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return nil, errors.Wrap(ErrPermissionDenied, err.Error())
	}
	restore := func() error {
		if err := unix.Mprotect(page, unix.PROT_READ|unix.PROT_EXEC); err != nil {
			return errors.Wrap(ErrPermissionDenied, err.Error())
		}
		return nil
	}
	return restore, nil
}

func (Userspace) WriteCode(dst uintptr, src []byte) error {
	out := unsafe.Slice((*byte)(unsafe.Pointer(dst)), len(src))
	copy(out, src)
	return nil
}

func (Userspace) FlushICache(addr uintptr, length int) {
	flushICache(addr, length)
}

func (Userspace) ResolveSymbol(string) (uintptr, error) {
	return 0, ErrSymbolResolutionUnsupported
}

// pageOf reconstructs a []byte view over the page(s) spanning [addr,
// addr+length) so unix.Mprotect (which operates on a slice, not a raw
// pointer) can be used without a second mapping.
func pageOf(addr uintptr, length int) []byte {
	const pageSize = 4096
	start := addr &^ (pageSize - 1)
	end := (addr + uintptr(length) + pageSize - 1) &^ (pageSize - 1)
	return unsafe.Slice((*byte)(unsafe.Pointer(start)), int(end-start))
}
