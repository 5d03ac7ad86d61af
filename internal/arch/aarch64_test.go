package arch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAArch64AbsoluteJumpTemplate(t *testing.T) {
	p := For(AArch64)
	buf := NewBuffer(32)
	p.AbsoluteJump(buf, 0x4100000000)

	require.Equal(t, p.AbsoluteJumpSize(), buf.Len())
	got := buf.Bytes()

	// LDR x16,[PC,#8]
	require.Equal(t, uint32(0x58000050), leUint32(got[0:4]))
	// BR x16
	require.Equal(t, uint32(0xD61F0200), leUint32(got[4:8]))
	require.Equal(t, uint64(0x4100000000), leUint64(got[8:16]))
}

func TestAArch64RelocateUnconditionalBranch(t *testing.T) {
	p := For(AArch64)
	buf := NewBuffer(32)
	// B #0x100 encoded at pc=0x1000, target 0x1100
	code := []byte{0x40, 0x00, 0x00, 0x14} // B +0x100 (imm26=0x40 words)
	err := p.Relocate(buf, 0x1000, code)
	require.NoError(t, err)
	require.Equal(t, p.AbsoluteJumpSize(), buf.Len())
	require.Equal(t, uint64(0x1100), leUint64(buf.Bytes()[8:16]))
}

func TestAArch64RelocateConditionalBranchSkipsOverTemplate(t *testing.T) {
	p := For(AArch64)
	buf := NewBuffer(32)
	// B.EQ #0x20 at pc=0x2000 -> target 0x2020
	code := []byte{0x00, 0x01, 0x00, 0x54} // B.EQ, imm19=0x8
	err := p.Relocate(buf, 0x2000, code)
	require.NoError(t, err)
	require.Greater(t, buf.Len(), p.AbsoluteJumpSize())
	tail := buf.Bytes()[buf.Len()-p.AbsoluteJumpSize():]
	require.Equal(t, uint64(0x2020), leUint64(tail[8:16]))
}

func TestAArch64RelocateNonPCRelativeInstructionIsCopiedVerbatim(t *testing.T) {
	p := For(AArch64)
	buf := NewBuffer(16)
	// A plain ADD (no PC operand) should be copied through unchanged.
	code := []byte{0x00, 0x00, 0x00, 0x91} // ADD x0,x0,#0
	err := p.Relocate(buf, 0x3000, code)
	require.NoError(t, err)
	require.Equal(t, code, buf.Bytes())
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
