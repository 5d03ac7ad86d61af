package armhook

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/vmsplit/armhook/internal/arch"
	"github.com/vmsplit/armhook/internal/platform"
)

// fakeAdapter backs trampoline/patch memory with ordinary Go byte slices
// instead of real mmap/mprotect, so these tests exercise the registry's
// state machine and byte-level bookkeeping without touching real
// executable memory or instruction-cache maintenance (neither of which
// this exercise can verify by actually running the code).
type fakeAdapter struct {
	mu        sync.Mutex
	allocs    int
	failAfter int // 0 means never fail
}

func (a *fakeAdapter) AllocExecutable(size int) (*platform.Region, error) {
	a.mu.Lock()
	a.allocs++
	n := a.allocs
	a.mu.Unlock()

	if a.failAfter > 0 && n > a.failAfter {
		return nil, platform.ErrOutOfMemory
	}
	data := make([]byte, size)
	return &platform.Region{Addr: uintptr(unsafe.Pointer(&data[0])), Data: data}, nil
}

func (a *fakeAdapter) FreeExecutable(*platform.Region) error { return nil }

func (a *fakeAdapter) MakeWritable(uintptr, int) (func() error, error) {
	return func() error { return nil }, nil
}

func (a *fakeAdapter) WriteCode(dst uintptr, src []byte) error {
	out := unsafe.Slice((*byte)(unsafe.Pointer(dst)), len(src))
	copy(out, src)
	return nil
}

func (a *fakeAdapter) FlushICache(uintptr, int) {}

func (a *fakeAdapter) ResolveSymbol(string) (uintptr, error) {
	return 0, platform.ErrSymbolResolutionUnsupported
}

var _ platform.Adapter = (*fakeAdapter)(nil)

// aarch64NopTarget returns the address of a freshly allocated 16-byte
// buffer of AArch64 NOPs (0xD503201F), one per slot of the profile's
// 4-instruction prologue — a relocatable, architecture-neutral stand-in
// for a real function's prologue.
func aarch64NopTarget(t *testing.T) uint64 {
	t.Helper()
	buf := make([]byte, 16)
	for i := 0; i < 4; i++ {
		buf[i*4+0] = 0x1F
		buf[i*4+1] = 0x20
		buf[i*4+2] = 0x03
		buf[i*4+3] = 0xD5
	}
	return uint64(uintptr(unsafe.Pointer(&buf[0])))
}

func newTestManager() *Manager {
	return NewManager(Config{
		Profile:         arch.AArch64,
		Adapter:         &fakeAdapter{},
		SkipICacheFlush: true,
	})
}

func TestCreateThenEnableWritesDetourPattern(t *testing.T) {
	m := newTestManager()
	target := aarch64NopTarget(t)
	const detour = uint64(0x4100000000)

	rec, callable, err := m.Create(target, detour)
	require.NoError(t, err)
	require.NotZero(t, callable)
	require.Equal(t, StateCreated, rec.State())

	require.NoError(t, m.Enable(rec))
	require.Equal(t, StateActive, rec.State())

	got := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(target))), 16)
	want := arch.For(arch.AArch64).DetourPattern(target, detour)
	require.Equal(t, want, got)
}

func TestDisableRestoresOriginalBytes(t *testing.T) {
	m := newTestManager()
	target := aarch64NopTarget(t)
	original := append([]byte(nil), unsafe.Slice((*byte)(unsafe.Pointer(uintptr(target))), 16)...)

	rec, _, err := m.Hook(target, 0x4100000000)
	require.NoError(t, err)

	require.NoError(t, m.Disable(rec))
	require.Equal(t, StateCreated, rec.State())

	got := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(target))), 16)
	require.Equal(t, original, got)
}

func TestEnableFailsWhenAlreadyActive(t *testing.T) {
	m := newTestManager()
	target := aarch64NopTarget(t)

	first, _, err := m.Hook(target, 0x4100000000)
	require.NoError(t, err)

	second, _, err := m.Create(target, 0x4200000000)
	require.NoError(t, err)

	err = m.Enable(second)
	require.Error(t, err)
	require.True(t, IsKind(err, AlreadyHooked))

	require.NoError(t, m.Unhook(first))
	require.NoError(t, m.Destroy(second))
}

func TestHookBatchRollsBackOnFailure(t *testing.T) {
	m := NewManager(Config{
		Profile:         arch.AArch64,
		Adapter:         &fakeAdapter{failAfter: 2},
		SkipICacheFlush: true,
	})

	descs := []Descriptor{
		{Target: aarch64NopTarget(t), Detour: 0x4100000000},
		{Target: aarch64NopTarget(t), Detour: 0x4200000000},
		{Target: aarch64NopTarget(t), Detour: 0x4300000000},
	}

	recs, err := m.HookBatch(descs)
	require.Error(t, err)
	require.Nil(t, recs)
	require.Equal(t, 0, m.Count())
}

func TestUnhookAllDisablesEveryRecord(t *testing.T) {
	m := newTestManager()
	for i := 0; i < 3; i++ {
		_, _, err := m.Hook(aarch64NopTarget(t), 0x4100000000)
		require.NoError(t, err)
	}
	require.Equal(t, 3, m.Count())
	require.NoError(t, m.UnhookAll())
	require.Equal(t, 0, m.Count())
}

func TestConcurrentHookUnhook(t *testing.T) {
	m := newTestManager()

	const n = 16
	targets := make([]uint64, n)
	for i := range targets {
		targets[i] = aarch64NopTarget(t)
	}

	var g errgroup.Group
	for _, target := range targets {
		target := target
		g.Go(func() error {
			rec, _, err := m.Hook(target, 0x4100000000)
			if err != nil {
				return err
			}
			return m.Unhook(rec)
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 0, m.Count())
}
