package armhook

import (
	"github.com/sirupsen/logrus"

	"github.com/vmsplit/armhook/internal/arch"
	"github.com/vmsplit/armhook/internal/platform"
)

// Config configures a Manager. The zero value is usable: it selects
// platform.Userspace and the AArch64 profile, matching
// calico's pattern of an explicit config struct with sensible defaults
// over global mutable flags.
type Config struct {
	// Profile forces a specific instruction-set profile; zero value
	// (arch.AArch64) is the default since it has no ambiguity with A32
	// (A32 and Thumb share GOARCH=arm and must be told apart by the
	// caller, who knows which mode the target function is compiled in).
	Profile arch.ID

	// Adapter overrides the platform adapter; nil selects
	// platform.Userspace{}.
	Adapter platform.Adapter

	// Logger overrides the package-level logrus.Entry; nil keeps the
	// default logger.
	Logger *logrus.Entry

	// SkipICacheFlush disables instruction-cache maintenance after every
	// write, for use only in tests that never execute the patched code.
	SkipICacheFlush bool
}

func (c Config) adapter() platform.Adapter {
	if c.Adapter != nil {
		return c.Adapter
	}
	return platform.Userspace{}
}

func (c Config) logger() *logrus.Entry {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.WithField("component", "registry")
}
