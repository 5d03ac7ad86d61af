package arch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThumbInstructionWidthClassification(t *testing.T) {
	p := For(Thumb)

	require.Equal(t, 2, p.InstructionWidth([]byte{0x00, 0x46, 0, 0})) // MOV r0,r0 (16-bit NOP)
	require.Equal(t, 4, p.InstructionWidth([]byte{0x00, 0xF0, 0x00, 0xF8}))
}

func TestThumbAbsoluteJumpTemplateIsFourByteAligned(t *testing.T) {
	p := For(Thumb)
	buf := NewBuffer(16)
	buf.Emit16(0x1234) // misalign the buffer by one halfword first
	p.AbsoluteJump(buf, 0x9000)

	require.Equal(t, 0, buf.Len()%4)
	tail := buf.Bytes()[buf.Len()-4:]
	require.Equal(t, uint32(0x9001), leUint32(tail)) // mode bit set
}

func TestThumbRelocateUnconditionalBranch(t *testing.T) {
	p := For(Thumb)
	buf := NewBuffer(16)
	// B #0x10 (format 18): imm11 = 0x10/2 = 8, pc=0x1000 -> target 0x1014
	code := []byte{0x08, 0xE0}
	err := p.Relocate(buf, 0x1000, code)
	require.NoError(t, err)
	tail := buf.Bytes()[buf.Len()-4:]
	require.Equal(t, uint32(0x1014)|1, leUint32(tail))
}

func TestThumbRelocateConditionalBranchSkipsTemplate(t *testing.T) {
	p := For(Thumb)
	buf := NewBuffer(32)
	// BEQ #0x10 (format 16): cond=0, imm8=8, pc=0x2000 -> target 0x2014
	code := []byte{0x08, 0xD0}
	err := p.Relocate(buf, 0x2000, code)
	require.NoError(t, err)
	require.Greater(t, buf.Len(), p.AbsoluteJumpSize())
	tail := buf.Bytes()[buf.Len()-4:]
	require.Equal(t, uint32(0x2014)|1, leUint32(tail))
}

func TestThumbRelocateBLXIsUnsupported(t *testing.T) {
	p := For(Thumb)
	buf := NewBuffer(16)
	// BL prefix hi=0xF000; lo=0xE800 has bit 12 clear, which marks a BLX suffix.
	code := []byte{0x00, 0xF0, 0x00, 0xE8}
	err := p.Relocate(buf, 0x3000, code)
	require.ErrorIs(t, err, ErrUnsupportedInstruction)
}
