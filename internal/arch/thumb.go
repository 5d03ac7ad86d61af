package arch

import "encoding/binary"

const (
	thumbPrologueLen    = 12
	thumbPrologueHWords = 6
	thumbCapacity       = 64
)

type thumbProfile struct{}

func (thumbProfile) ID() ID                        { return Thumb }
func (thumbProfile) PrologueSize() int             { return thumbPrologueLen }
func (thumbProfile) PrologueInstructionCount() int { return thumbPrologueHWords }
func (thumbProfile) TrampolineCapacity() int       { return thumbCapacity }

// InstructionWidth inspects the leading halfword to tell a 16-bit Thumb
// instruction from a 32-bit Thumb-2 one: bits[15:11] of 0b11101, 0b11110
// or 0b11111 mark the start of a 32-bit encoding.
func (thumbProfile) InstructionWidth(code []byte) int {
	if len(code) < 2 {
		return 2
	}
	h := binary.LittleEndian.Uint16(code)
	top5 := h >> 11
	if top5 == 0x1D || top5 == 0x1E || top5 == 0x1F {
		return 4
	}
	return 2
}

func (thumbProfile) CanonicalAddress(addr uint64) (uint64, bool) {
	return addr &^ 1, addr&1 != 0
}

func (thumbProfile) CallableAddress(base uint64, thumbBit bool) uint64 {
	if thumbBit {
		return base | 1
	}
	return base
}

func (thumbProfile) LandingPad(buf *Buffer) {
	buf.Emit16(encodeThumbNOP())
}

func (thumbProfile) AbsoluteJumpSize() int { return 12 }

// AbsoluteJump emits the six-halfword template from §4.2: push a scratch
// register, load the target (mode-bit set) via a PC-relative literal, BX
// through it, then a dead pop that keeps the literal aligned. The buffer
// is padded to a 4-byte boundary first, since the literal load's PC-value
// arithmetic requires it and nothing upstream guarantees the trampoline's
// running length is even halfword-count so far.
func (thumbProfile) AbsoluteJump(buf *Buffer, to uint64) {
	buf.AlignTo(4)
	buf.Emit16(encodePushPop(false, thumbScratchReg))
	buf.Emit16(encodeLDRPCImm16(thumbScratchReg, 1))
	buf.Emit16(encodeBX(thumbScratchReg))
	buf.Emit16(encodePushPop(true, thumbScratchReg))
	buf.Emit32LE(uint32(to) | 1)
}

func (p thumbProfile) DetourPattern(_, detour uint64) []byte {
	buf := NewBuffer(p.AbsoluteJumpSize())
	p.AbsoluteJump(buf, detour)
	return buf.Bytes()
}

func (p thumbProfile) Relocate(buf *Buffer, pc uint64, code []byte) error {
	width := p.InstructionWidth(code)
	if len(code) < width {
		return ErrUnsupportedInstruction
	}
	if width == 4 {
		return p.relocate32(buf, pc, code)
	}
	return p.relocate16(buf, pc, code)
}

func (p thumbProfile) relocate16(buf *Buffer, pc uint64, code []byte) error {
	h := binary.LittleEndian.Uint16(code)

	switch {
	case h&0xF800 == 0xE000: // format 18: unconditional branch
		offset := signExtend(int32(h&0x7FF), 11) * 2
		target := uint64(int64(pc) + 4 + int64(offset))
		return p.relocUnconditional(buf, target)

	case h&0xF000 == 0xD000 && h&0xFF00 != 0xDF00: // format 16: conditional branch (excludes SWI)
		cond := uint8((h >> 8) & 0xF)
		offset := signExtend(int32(h&0xFF), 8) * 2
		target := uint64(int64(pc) + 4 + int64(offset))
		return p.relocConditional(buf, cond, target)

	case h&0xFD00 == 0xB100: // CBZ
		rn := uint8(h & 0x7)
		imm5 := uint32((h >> 3) & 0x1F)
		i := uint32((h >> 9) & 1)
		offset := (i<<6 | imm5<<1)
		target := pc + 4 + uint64(offset)
		return p.relocCompareBranch(buf, rn, false, target)

	case h&0xFD00 == 0xB900: // CBNZ
		rn := uint8(h & 0x7)
		imm5 := uint32((h >> 3) & 0x1F)
		i := uint32((h >> 9) & 1)
		offset := (i<<6 | imm5<<1)
		target := pc + 4 + uint64(offset)
		return p.relocCompareBranch(buf, rn, true, target)

	case h&0xF800 == 0x4800: // format 6: PC-relative load
		rd := uint8((h >> 8) & 0x7)
		imm8 := uint32(h & 0xFF)
		target := ((pc + 4) &^ 3) + uint64(imm8*4)
		emitLoadImm32Thumb2(buf, rd, uint32(target))
		hi, lo := encodeLDRImmThumb2(rd, rd, 0)
		buf.Emit16(hi)
		buf.Emit16(lo)
		return nil

	case h&0xF800 == 0xA000: // format 12: ADD Rd,PC,#imm (load address)
		rd := uint8((h >> 8) & 0x7)
		imm8 := uint32(h & 0xFF)
		target := ((pc + 4) &^ 3) + uint64(imm8*4)
		emitLoadImm32Thumb2(buf, rd, uint32(target))
		return nil

	default:
		buf.Emit16(h)
		return nil
	}
}

func (p thumbProfile) relocate32(buf *Buffer, pc uint64, code []byte) error {
	hi := binary.LittleEndian.Uint16(code[0:2])
	lo := binary.LittleEndian.Uint16(code[2:4])

	switch {
	case hi&0xF800 == 0xF000 && lo&0xD000 == 0xC000: // BLX suffix (bit12=0): switches to ARM state
		return ErrUnsupportedInstruction

	case hi&0xF800 == 0xF000 && lo&0xD000 == 0xD000: // BL (T1, bit12=1)
		s := uint32((hi >> 10) & 1)
		imm10 := uint32(hi & 0x3FF)
		j1 := uint32((lo >> 13) & 1)
		j2 := uint32((lo >> 11) & 1)
		imm11 := uint32(lo & 0x7FF)
		i1 := (j1 ^ 1) ^ s
		i2 := (j2 ^ 1) ^ s
		imm := (s << 24) | (i1 << 23) | (i2 << 22) | (imm10 << 12) | (imm11 << 1)
		offset := signExtend32(imm, 25)
		target := uint64(int64(pc) + 4 + int64(offset))
		return p.relocCall(buf, target)

	case hi&0xF800 == 0xF000 && lo&0xD000 == 0x9000: // B.W (T4): lo[15:14]=10, bit12=1
		s := uint32((hi >> 10) & 1)
		imm10 := uint32(hi & 0x3FF)
		j1 := uint32((lo >> 13) & 1)
		j2 := uint32((lo >> 11) & 1)
		imm11 := uint32(lo & 0x7FF)
		i1 := (j1 ^ 1) ^ s
		i2 := (j2 ^ 1) ^ s
		imm := (s << 24) | (i1 << 23) | (i2 << 22) | (imm10 << 12) | (imm11 << 1)
		offset := signExtend32(imm, 25)
		target := uint64(int64(pc) + 4 + int64(offset))
		return p.relocUnconditional(buf, target)

	case hi&0xFF7F == 0xF85F || hi&0xFF7F == 0xF81F: // LDR.W Rt,[PC,#imm12]
		up := hi&0x0080 != 0
		rt := uint8((lo >> 12) & 0xF)
		imm12 := uint32(lo & 0xFFF)
		var target uint64
		if up {
			target = ((pc + 4) &^ 3) + uint64(imm12)
		} else {
			target = ((pc + 4) &^ 3) - uint64(imm12)
		}
		emitLoadImm32Thumb2(buf, rt, uint32(target))
		hi2, lo2 := encodeLDRImmThumb2(rt, rt, 0)
		buf.Emit16(hi2)
		buf.Emit16(lo2)
		return nil

	default:
		buf.Emit16(hi)
		buf.Emit16(lo)
		return nil
	}
}

// relocUnconditional/relocConditional/relocCompareBranch/relocCall all
// follow the same shape: an inverted-condition short branch over the
// absolute-jump template, or (for the unconditional and call cases) the
// template directly.

func (p thumbProfile) relocUnconditional(buf *Buffer, target uint64) error {
	p.AbsoluteJump(buf, target)
	return nil
}

// skipToJumpTemplate computes the PC-relative displacement (format-16/
// CBZ's PC = instr+4 convention) from a not-yet-emitted 2-byte short branch
// to the first byte past AbsoluteJump's template, accounting for whatever
// 0-or-2 byte pad AlignTo(4) will insert ahead of it.
func skipToJumpTemplate(buf *Buffer, jumpSize int) int32 {
	afterBranch := buf.Len() + 2
	pad := (4 - afterBranch%4) % 4
	return int32(pad + jumpSize - 2)
}

func (p thumbProfile) relocConditional(buf *Buffer, cond uint8, target uint64) error {
	skip := skipToJumpTemplate(buf, p.AbsoluteJumpSize())
	buf.Emit16(encodeBCondThumb(cond^1, skip))
	p.AbsoluteJump(buf, target)
	return nil
}

func (p thumbProfile) relocCompareBranch(buf *Buffer, rn uint8, nz bool, target uint64) error {
	skip := uint32(skipToJumpTemplate(buf, p.AbsoluteJumpSize()))
	if nz {
		buf.Emit16(encodeCBZThumb(rn, skip))
	} else {
		buf.Emit16(encodeCBNZThumb(rn, skip))
	}
	p.AbsoluteJump(buf, target)
	return nil
}

// relocCall handles Thumb BL: LR is set via ADR rather than relying on
// hardware BL semantics, since the call is being replayed at an unrelated
// address. ADR is PC-relative, so the offset holds regardless of where the
// trampoline ends up in memory, mirroring the AArch64 profile's ADR x30,#8.
func (p thumbProfile) relocCall(buf *Buffer, target uint64) error {
	buf.AlignTo(4)
	hi, lo := encodeADRThumb2(14, 12) // LR = Align(PC,4)+12, landing just past the jump template below
	buf.Emit16(hi)
	buf.Emit16(lo)
	p.AbsoluteJump(buf, target)
	return nil
}

func signExtend(v int32, bits uint) int32 {
	shift := 32 - bits
	return (v << shift) >> shift
}

func signExtend32(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
