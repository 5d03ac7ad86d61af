package platform

import "github.com/pkg/errors"

// Null is a placeholder KernelAdapter for hosts with no kernel-module
// build target wired up yet. Every method except FlushICache (which has
// no error result and does nothing) fails loudly rather than
// silently behaving like userspace, since kernel text patching has
// different atomicity guarantees than mmap+mprotect and must never be
// silently substituted.
type Null struct{}

var errNoKernelAdapter = errors.New("platform: no kernel adapter configured")

var _ Adapter = Null{}

func (Null) AllocExecutable(int) (*Region, error)         { return nil, errNoKernelAdapter }
func (Null) FreeExecutable(*Region) error                 { return errNoKernelAdapter }
func (Null) MakeWritable(uintptr, int) (func() error, error) { return nil, errNoKernelAdapter }
func (Null) WriteCode(uintptr, []byte) error              { return errNoKernelAdapter }
func (Null) FlushICache(uintptr, int)                     {}
func (Null) ResolveSymbol(string) (uintptr, error)        { return 0, errNoKernelAdapter }
