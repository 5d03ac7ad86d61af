// Package platform is the narrow contract the rest of the library consumes
// for memory that must be both writable and executable, and for the
// instruction-cache maintenance every write to such memory requires.
package platform

import "github.com/pkg/errors"

// ErrOutOfMemory is returned by Adapter.AllocExecutable when the host
// cannot satisfy the request.
var ErrOutOfMemory = errors.New("platform: executable allocation failed")

// ErrPermissionDenied is returned when a protection change is refused.
var ErrPermissionDenied = errors.New("platform: protection change refused")

// Region is a previously allocated block of executable memory.
type Region struct {
	Addr uintptr
	Data []byte
}

// Adapter is the platform-specific collaborator the registry, trampoline
// builder, and patch sequencer are written against. Userspace and kernel
// deployments each supply their own implementation.
type Adapter interface {
	// AllocExecutable returns a zeroed RWX region at least size bytes long.
	AllocExecutable(size int) (*Region, error)

	// FreeExecutable releases a region returned by AllocExecutable.
	FreeExecutable(r *Region) error

	// MakeWritable widens protection over [addr, addr+length) to permit
	// writes, returning a token that restores it via the paired call.
	MakeWritable(addr uintptr, length int) (restore func() error, err error)

	// WriteCode copies src into the memory at dst. dst must already be
	// writable (see MakeWritable), or the adapter is a kernel adapter that
	// performs its own atomic text patch.
	WriteCode(dst uintptr, src []byte) error

	// FlushICache performs whatever cache-maintenance sequence the
	// architecture requires after code at [addr, addr+length) changes.
	FlushICache(addr uintptr, length int)

	// ResolveSymbol looks up a named symbol (kernel adapters only).
	ResolveSymbol(name string) (uintptr, error)
}

// ErrSymbolResolutionUnsupported is returned by ResolveSymbol on adapters
// that have no symbol table to consult (every userspace adapter).
var ErrSymbolResolutionUnsupported = errors.New("platform: symbol resolution not supported by this adapter")

// KernelAdapter is the contract an out-of-repo kernel-mode build (cgo,
// kallsyms-backed ResolveSymbol, set_memory_rw-backed MakeWritable)
// implements: the same five operations as the user-space adapter plus
// ResolveSymbol. Declared as an alias of Adapter rather than a second,
// near-identical interface, since every Adapter (Userspace included)
// already implements ResolveSymbol — Userspace's just always fails with
// ErrSymbolResolutionUnsupported.
type KernelAdapter = Adapter
