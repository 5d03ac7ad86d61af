// Package trampoline builds the executable fragment a hook's detour calls
// to invoke the original, unpatched target.
package trampoline

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vmsplit/armhook/internal/arch"
	"github.com/vmsplit/armhook/internal/platform"
)

var log = logrus.WithField("component", "trampoline")

// Built is the result of a successful Build: the trampoline's base address
// plus the region it lives in, kept around so the hook record can later
// free it.
type Built struct {
	Region *platform.Region
	Base   uintptr
}

// Build lays out a trampoline for a hook on target, whose prologue is the
// profile-defined N bytes starting at canonical address targetAddr. It
// relocates each prologue instruction via p.Relocate, appends an absolute
// jump back to targetAddr+N, and publishes the result through adapter.
func Build(p arch.Profile, adapter platform.Adapter, targetAddr uint64, prologue []byte) (*Built, error) {
	buf := arch.NewBuffer(p.TrampolineCapacity())
	p.LandingPad(buf)

	pc := targetAddr
	remaining := prologue
	for len(remaining) > 0 {
		width := p.InstructionWidth(remaining)
		if width > len(remaining) {
			return nil, errors.Wrap(arch.ErrUnsupportedInstruction, "truncated instruction at end of prologue")
		}
		if err := p.Relocate(buf, pc, remaining); err != nil {
			return nil, errors.Wrapf(err, "relocating instruction at 0x%x", pc)
		}
		remaining = remaining[width:]
		pc += uint64(width)
	}

	p.AbsoluteJump(buf, targetAddr+uint64(len(prologue)))

	if buf.Len() > p.TrampolineCapacity() {
		// The capacity bound in §3 is an invariant, not a soft limit: a
		// prologue that defeats it is a bug in the per-profile fan-out
		// accounting, not a runtime condition a caller can work around.
		return nil, errors.Errorf("trampoline builder: emitted %d bytes exceeds capacity %d", buf.Len(), p.TrampolineCapacity())
	}

	region, err := adapter.AllocExecutable(p.TrampolineCapacity())
	if err != nil {
		return nil, err
	}

	if err := adapter.WriteCode(region.Addr, buf.Bytes()); err != nil {
		_ = adapter.FreeExecutable(region)
		return nil, err
	}
	adapter.FlushICache(region.Addr, buf.Len())

	log.WithFields(logrus.Fields{
		"target": targetAddr,
		"base":   region.Addr,
		"size":   buf.Len(),
	}).Debug("trampoline built")

	return &Built{Region: region, Base: region.Addr}, nil
}

// Free releases a trampoline's executable region.
func Free(adapter platform.Adapter, b *Built) error {
	if b == nil || b.Region == nil {
		return nil
	}
	return adapter.FreeExecutable(b.Region)
}
