package arch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestARM32AbsoluteJumpTemplate(t *testing.T) {
	p := For(ARM32)
	buf := NewBuffer(16)
	p.AbsoluteJump(buf, 0x20000)

	require.Equal(t, p.AbsoluteJumpSize(), buf.Len())
	got := buf.Bytes()

	require.Equal(t, uint32(0xEA000000), leUint32(got[0:4])) // B +4 (skip the literal)
	require.Equal(t, uint32(0x20000), leUint32(got[4:8]))
	// LDR PC,[PC,#-12]: the well-known ARM restore-PC opcode.
	require.Equal(t, uint32(0xE51FF00C), leUint32(got[8:12]))
}

func TestARM32RelocateUnconditionalBranch(t *testing.T) {
	p := For(ARM32)
	buf := NewBuffer(16)
	// B #0xF8 at pc=0x8000, cond=AL, imm24=0x3E (0xF8/4); target = pc+8+0xF8
	code := []byte{0x3E, 0x00, 0x00, 0xEA}
	err := p.Relocate(buf, 0x8000, code)
	require.NoError(t, err)
	require.Equal(t, uint64(0x8100), leUint64to32(buf.Bytes()[4:8]))
}

func TestARM32RelocateConditionalBranchInvertsCondition(t *testing.T) {
	p := For(ARM32)
	buf := NewBuffer(32)
	// BEQ #0x20 at pc=0x9000, cond=EQ(0), imm24=6
	code := []byte{0x06, 0x00, 0x00, 0x0A}
	err := p.Relocate(buf, 0x9000, code)
	require.NoError(t, err)
	require.Greater(t, buf.Len(), p.AbsoluteJumpSize())

	head := leUint32(buf.Bytes()[0:4])
	require.Equal(t, uint8(0x1), uint8(head>>28)) // inverted to NE (1)
}

func leUint64to32(b []byte) uint64 {
	return uint64(leUint32(b))
}
