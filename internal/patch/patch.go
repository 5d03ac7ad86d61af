// Package patch is the sole writer of a hook target's bytes: it installs
// the detour-jump pattern and restores the original prologue, always
// through a scoped widen-write-restore sequence so a target page's
// protection is never left wider than before the call.
package patch

import (
	"github.com/sirupsen/logrus"

	"github.com/vmsplit/armhook/internal/platform"
)

var log = logrus.WithField("component", "patch")

// Write copies code into the target address, widening protection around
// the write and restoring it on every exit path, then flushing the
// instruction cache over the written extent.
func Write(adapter platform.Adapter, target uintptr, code []byte) error {
	restore, err := adapter.MakeWritable(target, len(code))
	if err != nil {
		return err
	}
	defer func() {
		if rerr := restore(); rerr != nil {
			log.WithError(rerr).Warn("failed to restore target page protection")
		}
	}()

	if err := adapter.WriteCode(target, code); err != nil {
		return err
	}
	adapter.FlushICache(target, len(code))
	return nil
}

// Read copies n bytes starting at addr into a returned slice, used once to
// capture a hook's original prologue before any patch is applied.
func Read(addr uintptr, n int) []byte {
	out := make([]byte, n)
	copy(out, unsafeView(addr, n))
	return out
}
