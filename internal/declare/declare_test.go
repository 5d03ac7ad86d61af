package declare

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/vmsplit/armhook"
	"github.com/vmsplit/armhook/internal/arch"
	"github.com/vmsplit/armhook/internal/platform"
)

// fakeAdapter mirrors the root package's registry_test.go fake: ordinary
// Go byte slices standing in for executable memory, so Install/Uninstall
// can be exercised without real mmap/mprotect/icache maintenance.
type fakeAdapter struct{}

func (fakeAdapter) AllocExecutable(size int) (*platform.Region, error) {
	data := make([]byte, size)
	return &platform.Region{Addr: uintptr(unsafe.Pointer(&data[0])), Data: data}, nil
}
func (fakeAdapter) FreeExecutable(*platform.Region) error { return nil }
func (fakeAdapter) MakeWritable(uintptr, int) (func() error, error) {
	return func() error { return nil }, nil
}
func (fakeAdapter) WriteCode(dst uintptr, src []byte) error {
	copy(unsafe.Slice((*byte)(unsafe.Pointer(dst)), len(src)), src)
	return nil
}
func (fakeAdapter) FlushICache(uintptr, int) {}
func (fakeAdapter) ResolveSymbol(string) (uintptr, error) {
	return 0, platform.ErrSymbolResolutionUnsupported
}

func nopTarget(t *testing.T) uint64 {
	t.Helper()
	buf := make([]byte, 16)
	for i := 0; i < 4; i++ {
		buf[i*4+0], buf[i*4+1], buf[i*4+2], buf[i*4+3] = 0x1F, 0x20, 0x03, 0xD5
	}
	return uint64(uintptr(unsafe.Pointer(&buf[0])))
}

func TestDefineInstallUninstall(t *testing.T) {
	mgr := armhook.NewManager(armhook.Config{
		Profile:         arch.AArch64,
		Adapter:         fakeAdapter{},
		SkipICacheFlush: true,
	})
	table := NewTable(mgr)

	var original func(int32, int32) int32
	_, err := table.Define("add", &original)
	require.NoError(t, err)

	detour := func(a, b int32) int32 { return a + b }
	target := nopTarget(t)

	require.NoError(t, table.Install("add", uintptr(target), detour))
	require.NotNil(t, original)

	require.NoError(t, table.Uninstall("add"))
}

func TestDefineRejectsDuplicateName(t *testing.T) {
	mgr := armhook.NewManager(armhook.Config{Adapter: fakeAdapter{}, SkipICacheFlush: true})
	table := NewTable(mgr)

	var original func()
	_, err := table.Define("dup", &original)
	require.NoError(t, err)

	_, err = table.Define("dup", &original)
	require.Error(t, err)
	require.True(t, armhook.IsKind(err, armhook.AlreadyHooked))
}

func TestCallOriginalFailsBeforeInstall(t *testing.T) {
	mgr := armhook.NewManager(armhook.Config{Adapter: fakeAdapter{}, SkipICacheFlush: true})
	table := NewTable(mgr)

	var original func()
	_, err := table.Define("noop", &original)
	require.NoError(t, err)

	_, err = table.CallOriginal("noop")
	require.Error(t, err)
	require.True(t, armhook.IsKind(err, armhook.InvalidState))
}
