package arch

import (
	"golang.org/x/arch/arm64/arm64asm"
)

const (
	aarch64InstWidth   = 4
	aarch64PrologueLen = 16
	aarch64PrologueN   = 4
	aarch64Capacity    = 128

	// scratchReg is the register the relocator materializes absolute
	// addresses into before dereferencing them. x16 (IP0) is the
	// intra-procedure-call scratch register, the same one the absolute
	// jump template already clobbers.
	scratchReg = 16
)

type aarch64Profile struct{}

func (aarch64Profile) ID() ID                         { return AArch64 }
func (aarch64Profile) PrologueSize() int              { return aarch64PrologueLen }
func (aarch64Profile) PrologueInstructionCount() int  { return aarch64PrologueN }
func (aarch64Profile) TrampolineCapacity() int        { return aarch64Capacity }
func (aarch64Profile) InstructionWidth([]byte) int    { return aarch64InstWidth }
func (aarch64Profile) AbsoluteJumpSize() int          { return 16 }

func (aarch64Profile) CanonicalAddress(addr uint64) (uint64, bool) { return addr, false }
func (aarch64Profile) CallableAddress(base uint64, _ bool) uint64  { return base }

// LandingPad emits BTI c, making the trampoline a legal indirect
// branch-with-link target on BTI-enabled cores.
func (aarch64Profile) LandingPad(buf *Buffer) {
	buf.Emit32(encodeBTIc())
}

// AbsoluteJump emits the fixed 16-byte template from §4.2:
// LDR x16,[PC,#8] ; BR x16 ; <addr low32> ; <addr high32>.
func (aarch64Profile) AbsoluteJump(buf *Buffer, to uint64) {
	buf.Emit32(encodeLDRLiteral(ldrLitX, scratchReg, 8))
	buf.Emit32(encodeBR(scratchReg))
	buf.Emit64(to)
}

// DetourPattern is the same template with the detour address embedded; it
// does not depend on the target address, since the LDR literal offset is
// fixed relative to its own PC.
func (p aarch64Profile) DetourPattern(_, detour uint64) []byte {
	buf := NewBuffer(p.AbsoluteJumpSize())
	p.AbsoluteJump(buf, detour)
	return buf.Bytes()
}

// condBranchSkipWords is the branch distance, in 32-bit words, from the
// inverted short branch to the instruction just past the absolute-jump
// template (LDR, BR and the two address words make the template 4 words).
const condBranchSkipWords = 1 + 4 // the inverted branch itself, plus the 4-word AbsoluteJump

func (p aarch64Profile) Relocate(buf *Buffer, pc uint64, code []byte) error {
	if len(code) < 4 {
		return ErrUnsupportedInstruction
	}
	inst, err := arm64asm.Decode(code[:4])
	if err != nil {
		// Undecodable words are either data or something our classifier
		// doesn't need to understand; copy verbatim per the
		// unknown-instruction policy.
		buf.EmitBytes(code[:4])
		return nil
	}

	switch inst.Op {
	case arm64asm.B:
		if cond, ok := inst.Args[0].(arm64asm.Cond); ok {
			rel, _ := inst.Args[1].(arm64asm.PCRel)
			target := uint64(int64(pc) + int64(rel))
			return p.relocConditional(buf, invertCond(cond.Value), target)
		}
		rel, _ := inst.Args[0].(arm64asm.PCRel)
		target := uint64(int64(pc) + int64(rel))
		p.AbsoluteJump(buf, target)
		return nil

	case arm64asm.BL:
		rel, _ := inst.Args[0].(arm64asm.PCRel)
		target := uint64(int64(pc) + int64(rel))
		// ADR x30 loads the link register with the address just past the
		// absolute jump that follows (4 bytes of ADR plus the template).
		// Emitted through the encoder rather than as the literal
		// 0x100000FE word some implementations hardcode.
		buf.Emit32(encodeADR(regLR, int64(4+p.AbsoluteJumpSize())))
		p.AbsoluteJump(buf, target)
		return nil

	case arm64asm.CBZ, arm64asm.CBNZ:
		rt, _ := inst.Args[0].(arm64asm.Reg)
		rel, _ := inst.Args[1].(arm64asm.PCRel)
		target := uint64(int64(pc) + int64(rel))
		is64 := rt >= arm64asm.X0
		regNum := regNumber(rt)
		nz := inst.Op == arm64asm.CBNZ
		return p.relocCompareBranch(buf, regNum, is64, nz, target)

	case arm64asm.TBZ, arm64asm.TBNZ:
		rt, _ := inst.Args[0].(arm64asm.Reg)
		bit, _ := inst.Args[1].(arm64asm.Imm)
		rel, _ := inst.Args[2].(arm64asm.PCRel)
		target := uint64(int64(pc) + int64(rel))
		regNum := regNumber(rt)
		nz := inst.Op == arm64asm.TBNZ
		return p.relocBitTestBranch(buf, regNum, uint8(bit.Imm), nz, target)

	case arm64asm.ADR, arm64asm.ADRP:
		rd, _ := inst.Args[0].(arm64asm.Reg)
		rel, _ := inst.Args[1].(arm64asm.PCRel)
		var target uint64
		if inst.Op == arm64asm.ADRP {
			target = (pc &^ 0xFFF) + uint64(int64(rel))
		} else {
			target = uint64(int64(pc) + int64(rel))
		}
		emitLoadImm64(buf, regNumber(rd), target)
		return nil

	case arm64asm.LDR, arm64asm.LDRSW:
		if rel, ok := inst.Args[1].(arm64asm.PCRel); ok {
			rt, _ := inst.Args[0].(arm64asm.Reg)
			target := uint64(int64(pc) + int64(rel))
			return p.relocLiteralLoad(buf, rt, target)
		}
		buf.EmitBytes(code[:4])
		return nil

	default:
		buf.EmitBytes(code[:4])
		return nil
	}
}

// relocConditional handles B.cond: an inverted short conditional branch
// skips over the absolute-jump template; the template itself lands on the
// original (non-inverted) target.
func (p aarch64Profile) relocConditional(buf *Buffer, invCond uint8, target uint64) error {
	buf.Emit32(encodeBCond(invCond, condBranchSkipWords*4))
	p.AbsoluteJump(buf, target)
	return nil
}

func (p aarch64Profile) relocCompareBranch(buf *Buffer, rt uint8, is64, invertToZero bool, target uint64) error {
	if invertToZero {
		buf.Emit32(encodeCBZ(rt, is64, condBranchSkipWords*4))
	} else {
		buf.Emit32(encodeCBNZ(rt, is64, condBranchSkipWords*4))
	}
	p.AbsoluteJump(buf, target)
	return nil
}

func (p aarch64Profile) relocBitTestBranch(buf *Buffer, rt, bitpos uint8, invertToZero bool, target uint64) error {
	if invertToZero {
		buf.Emit32(encodeTBZ(rt, bitpos, condBranchSkipWords*4))
	} else {
		buf.Emit32(encodeTBNZ(rt, bitpos, condBranchSkipWords*4))
	}
	p.AbsoluteJump(buf, target)
	return nil
}

// relocLiteralLoad materializes the literal's absolute address into the
// scratch register, then dereferences it with a width matching the
// original's destination register class (GP 32/64-bit, or FP/SIMD
// 32/64/128-bit, selected by the register's numeric range per arm64asm's
// single-Reg-space encoding of V/opc).
func (p aarch64Profile) relocLiteralLoad(buf *Buffer, rt arm64asm.Reg, target uint64) error {
	emitLoadImm64(buf, scratchReg, target)
	regNum := regNumber(rt)
	switch {
	case rt >= arm64asm.Q0:
		buf.Emit32(encodeLDRImmFP(ldrImmQ, regNum, scratchReg))
	case rt >= arm64asm.D0:
		buf.Emit32(encodeLDRImmFP(ldrImmD, regNum, scratchReg))
	case rt >= arm64asm.S0:
		buf.Emit32(encodeLDRImmFP(ldrImmS, regNum, scratchReg))
	case rt >= arm64asm.H0:
		buf.Emit32(encodeLDRImmFP(ldrImmH, regNum, scratchReg))
	case rt >= arm64asm.B0:
		buf.Emit32(encodeLDRImmFP(ldrImmB, regNum, scratchReg))
	case rt >= arm64asm.X0 && rt <= arm64asm.XZR:
		buf.Emit32(encodeLDRImm(regNum, scratchReg, true))
	default: // W0..W30, WZR
		buf.Emit32(encodeLDRImm(regNum, scratchReg, false))
	}
	return nil
}

// regNumber strips arm64asm's register-class base off r, returning the
// plain 0-31 register number used by the instruction encoding.
func regNumber(r arm64asm.Reg) uint8 {
	switch {
	case r >= arm64asm.Q0:
		return uint8(r - arm64asm.Q0)
	case r >= arm64asm.D0:
		return uint8(r - arm64asm.D0)
	case r >= arm64asm.S0:
		return uint8(r - arm64asm.S0)
	case r >= arm64asm.H0:
		return uint8(r - arm64asm.H0)
	case r >= arm64asm.B0:
		return uint8(r - arm64asm.B0)
	case r >= arm64asm.X0:
		return uint8(r - arm64asm.X0)
	default:
		return uint8(r - arm64asm.W0)
	}
}

// invertCond flips the low bit of an AArch64 condition code, as NE/EQ,
// CC/CS and so on are paired.
func invertCond(v uint8) uint8 { return v ^ 1 }
