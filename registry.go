package armhook

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vmsplit/armhook/internal/arch"
	"github.com/vmsplit/armhook/internal/patch"
	"github.com/vmsplit/armhook/internal/platform"
	"github.com/vmsplit/armhook/internal/trampoline"
)

// State is a hook record's position in the lifecycle of §3: None → Created
// → Active → Created → None.
type State int

const (
	StateNone State = iota
	StateCreated
	StateActive
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Record is a hook's opaque handle. Callers receive a *Record from Create
// and pass it back to Enable/Disable/Destroy; the Manager owns the record,
// the caller only holds a cursor into it (DESIGN NOTES: owning collection +
// non-owning cursor).
type Record struct {
	target   uint64 // canonical, Thumb bit stripped
	thumbBit bool
	detour   uint64

	originalBytes []byte
	tramp         *trampoline.Built

	state State
}

// Target returns the hook's canonical target address.
func (r *Record) Target() uint64 { return r.target }

// Detour returns the hook's detour address.
func (r *Record) Detour() uint64 { return r.detour }

// State returns the hook's current lifecycle state.
func (r *Record) State() State { return r.state }

// Manager owns the process-wide (or kernel-module-wide) hook registry: a
// single mutex-protected collection of records keyed by canonical target
// address, with at most one Active record per key.
type Manager struct {
	mu      sync.Mutex
	profile arch.Profile
	adapter platform.Adapter
	log     *logrus.Entry

	records map[uint64][]*Record
}

// NewManager constructs a Manager from cfg. The zero Config is usable.
func NewManager(cfg Config) *Manager {
	adapter := cfg.adapter()
	if cfg.SkipICacheFlush {
		adapter = noFlushAdapter{adapter}
	}
	return &Manager{
		profile: arch.For(cfg.Profile),
		adapter: adapter,
		log:     cfg.logger(),
		records: make(map[uint64][]*Record),
	}
}

// noFlushAdapter suppresses instruction-cache maintenance, for tests that
// never execute the patched/trampoline code and so have no stale-icache
// hazard to guard against.
type noFlushAdapter struct {
	platform.Adapter
}

func (noFlushAdapter) FlushICache(uintptr, int) {}

// Create allocates a hook record in state Created: it captures the
// target's original prologue and builds a trampoline, without touching
// the target's bytes. It returns the record and the callable address of
// the preserved original (the trampoline base, with the Thumb mode bit
// restored if the target carried one).
func (m *Manager) Create(target, detour uint64) (*Record, uint64, error) {
	if target == 0 || detour == 0 {
		return nil, 0, newStatusf(InvalidArgument, "target and detour must be non-zero")
	}

	canonical, thumbBit := m.profile.CanonicalAddress(target)
	n := m.profile.PrologueSize()

	original := patch.Read(uintptr(canonical), n)

	tramp, err := trampoline.Build(m.profile, m.adapter, canonical, original)
	if err != nil {
		if st, ok := err.(*Status); ok {
			return nil, 0, st
		}
		return nil, 0, newStatus(classifyTrampolineError(err), err)
	}

	rec := &Record{
		target:        canonical,
		thumbBit:      thumbBit,
		detour:        detour,
		originalBytes: original,
		tramp:         tramp,
		state:         StateCreated,
	}

	m.mu.Lock()
	m.records[canonical] = append(m.records[canonical], rec)
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{"target": canonical, "detour": detour}).Debug("hook created")

	callable := m.profile.CallableAddress(uint64(tramp.Base), thumbBit)
	return rec, callable, nil
}

// classifyTrampolineError maps an internal trampoline/relocator failure
// onto the public error taxonomy.
func classifyTrampolineError(err error) Kind {
	if errors.Is(err, arch.ErrUnsupportedInstruction) {
		return UnsupportedInstruction
	}
	return OutOfMemory
}

// Enable transitions rec from Created to Active, writing the detour jump
// into the target's first N bytes. Fails with AlreadyHooked if another
// record for the same canonical target is already Active.
func (m *Manager) Enable(rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.state != StateCreated {
		return newStatusf(InvalidState, "enable requires state Created, got %v", rec.state)
	}
	if m.activeLocked(rec.target) != nil {
		return newStatusf(AlreadyHooked, "target 0x%x already has an active hook", rec.target)
	}

	jump := m.profile.DetourPattern(rec.target, rec.detour)
	if err := patch.Write(m.adapter, uintptr(rec.target), jump); err != nil {
		return newStatus(PermissionDenied, err)
	}

	rec.state = StateActive
	m.log.WithField("target", rec.target).Debug("hook enabled")
	return nil
}

// Disable transitions rec from Active back to Created, restoring the
// saved original bytes.
func (m *Manager) Disable(rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.state != StateActive {
		return newStatusf(NotFound, "disable requires state Active, got %v", rec.state)
	}

	if err := patch.Write(m.adapter, uintptr(rec.target), rec.originalBytes); err != nil {
		return newStatus(PermissionDenied, err)
	}

	rec.state = StateCreated
	m.log.WithField("target", rec.target).Debug("hook disabled")
	return nil
}

// Destroy transitions rec to None: if still Active it restores the
// original bytes best-effort first, then frees the trampoline and removes
// the record from the registry.
func (m *Manager) Destroy(rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.state == StateActive {
		if err := patch.Write(m.adapter, uintptr(rec.target), rec.originalBytes); err != nil {
			m.log.WithError(err).Warn("best-effort restore failed during destroy")
		}
	}

	if err := trampoline.Free(m.adapter, rec.tramp); err != nil {
		m.log.WithError(err).Warn("failed to free trampoline")
	}

	m.removeLocked(rec)
	rec.state = StateNone
	rec.tramp = nil
	m.log.WithField("target", rec.target).Debug("hook destroyed")
	return nil
}

// Hook is the create+enable composite; on enable failure it rolls back
// via Destroy and returns the enable error.
func (m *Manager) Hook(target, detour uint64) (*Record, uint64, error) {
	rec, callable, err := m.Create(target, detour)
	if err != nil {
		return nil, 0, err
	}
	if err := m.Enable(rec); err != nil {
		_ = m.Destroy(rec)
		return nil, 0, err
	}
	return rec, callable, nil
}

// Unhook is the disable+destroy composite.
func (m *Manager) Unhook(rec *Record) error {
	if rec.state == StateActive {
		if err := m.Disable(rec); err != nil {
			return err
		}
	}
	return m.Destroy(rec)
}

// Descriptor is one entry of a HookBatch request.
type Descriptor struct {
	Target uint64
	Detour uint64
}

// HookBatch installs len(descs) hooks transactionally: on the first
// failure at index k, every record 0..k-1 already installed is unhooked
// before the failure is returned.
func (m *Manager) HookBatch(descs []Descriptor) ([]*Record, error) {
	if len(descs) == 0 {
		return nil, newStatusf(InvalidArgument, "hook_batch requires a non-empty descriptor list")
	}

	recs := make([]*Record, 0, len(descs))
	for _, d := range descs {
		rec, _, err := m.Hook(d.Target, d.Detour)
		if err != nil {
			for _, done := range recs {
				_ = m.Unhook(done)
			}
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// UnhookBatch removes every record in recs, reporting the last non-nil
// error seen (if any) after attempting all of them.
func (m *Manager) UnhookBatch(recs []*Record) error {
	var last error
	for _, rec := range recs {
		if err := m.Unhook(rec); err != nil {
			last = err
		}
	}
	return last
}

// Count returns the number of hook records currently tracked, in any
// state.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, recs := range m.records {
		n += len(recs)
	}
	return n
}

// Find returns the Active record for target, or nil if none is active.
func (m *Manager) Find(target uint64) *Record {
	canonical, _ := m.profile.CanonicalAddress(target)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked(canonical)
}

// IsActive reports whether rec is currently in state Active.
func (m *Manager) IsActive(rec *Record) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return rec.state == StateActive
}

// TrampolineOf returns rec's callable trampoline address, or 0 if rec has
// been destroyed.
func (m *Manager) TrampolineOf(rec *Record) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.tramp == nil {
		return 0
	}
	return m.profile.CallableAddress(uint64(rec.tramp.Base), rec.thumbBit)
}

// UnhookAll disables and destroys every tracked record, returning the
// last non-nil error seen.
func (m *Manager) UnhookAll() error {
	m.mu.Lock()
	all := make([]*Record, 0, len(m.records))
	for _, recs := range m.records {
		all = append(all, recs...)
	}
	m.mu.Unlock()

	var last error
	for _, rec := range all {
		if err := m.Unhook(rec); err != nil {
			last = err
		}
	}
	return last
}

// HookInfo is a read-only snapshot of one record, for introspection
// (supplements spec.md's read-only helpers with the debug dump
// original_source's examples/hook_debug2.c exposes).
type HookInfo struct {
	Target     uint64
	Detour     uint64
	Trampoline uint64
	State      State
}

// Describe returns a snapshot of every tracked hook.
func (m *Manager) Describe() []HookInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []HookInfo
	for _, recs := range m.records {
		for _, rec := range recs {
			var tramp uint64
			if rec.tramp != nil {
				tramp = m.profile.CallableAddress(uint64(rec.tramp.Base), rec.thumbBit)
			}
			out = append(out, HookInfo{
				Target:     rec.target,
				Detour:     rec.detour,
				Trampoline: tramp,
				State:      rec.state,
			})
		}
	}
	return out
}

func (m *Manager) activeLocked(canonical uint64) *Record {
	for _, rec := range m.records[canonical] {
		if rec.state == StateActive {
			return rec
		}
	}
	return nil
}

func (m *Manager) removeLocked(rec *Record) {
	recs := m.records[rec.target]
	for i, r := range recs {
		if r == rec {
			m.records[rec.target] = append(recs[:i], recs[i+1:]...)
			break
		}
	}
	if len(m.records[rec.target]) == 0 {
		delete(m.records, rec.target)
	}
}
