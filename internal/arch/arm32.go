package arch

import (
	"golang.org/x/arch/arm/armasm"
)

const (
	arm32InstWidth   = 4
	arm32PrologueLen = 12
	arm32PrologueN   = 3
	arm32Capacity    = 64
)

type arm32Profile struct{}

func (arm32Profile) ID() ID                        { return ARM32 }
func (arm32Profile) PrologueSize() int             { return arm32PrologueLen }
func (arm32Profile) PrologueInstructionCount() int { return arm32PrologueN }
func (arm32Profile) TrampolineCapacity() int       { return arm32Capacity }
func (arm32Profile) InstructionWidth([]byte) int   { return arm32InstWidth }
func (arm32Profile) AbsoluteJumpSize() int         { return 12 }

// CanonicalAddress/CallableAddress still strip/restore bit 0 on the A32
// profile: a function pointer with bit 0 set designates Thumb mode even
// when the target itself is compiled A32, so the registry's canonical key
// is uniform across both 32-bit profiles.
func (arm32Profile) CanonicalAddress(addr uint64) (uint64, bool) {
	return addr &^ 1, addr&1 != 0
}

func (arm32Profile) CallableAddress(base uint64, thumbBit bool) uint64 {
	if thumbBit {
		return base | 1
	}
	return base
}

func (arm32Profile) LandingPad(buf *Buffer) {
	buf.Emit32(encodeNOPA32())
}

func encodeNOPA32() uint32 { return 0xE320F000 } // NOP (the architectural hint NOP, not MOV r0,r0)

// AbsoluteJump emits the fixed 12-byte template from §4.2:
// B +8 ; <addr 32> ; LDR PC,[PC,#-12]. The leading branch skips the 4-byte
// literal to land on the LDR, which then reads it back at PC-12.
func (arm32Profile) AbsoluteJump(buf *Buffer, to uint64) {
	cond := condAL()
	buf.Emit32(encodeBA32(cond, 8))
	buf.Emit32LE(uint32(to))
	buf.Emit32(encodeLDRImmA32(cond, a32RegPC, a32RegPC, 12, false, true))
}

func (p arm32Profile) DetourPattern(_, detour uint64) []byte {
	buf := NewBuffer(p.AbsoluteJumpSize())
	p.AbsoluteJump(buf, detour)
	return buf.Bytes()
}

func (p arm32Profile) Relocate(buf *Buffer, pc uint64, code []byte) error {
	if len(code) < 4 {
		return ErrUnsupportedInstruction
	}
	inst, err := armasm.Decode(code[:4], armasm.ModeARM)
	if err != nil {
		buf.EmitBytes(code[:4])
		return nil
	}

	// armasm folds the condition into Op (B_EQ ... B_LE, B, B_ZZ in runs of
	// 16), so the switch keys on each run's first entry to cover every
	// condition.
	switch inst.Op &^ 15 {
	case armasm.B_EQ:
		rel, ok := inst.Args[0].(armasm.PCRel)
		if !ok {
			buf.EmitBytes(code[:4])
			return nil
		}
		// armasm's PCRel is the raw scaled immediate; ARM's own PC reads as
		// instr+8 (the two-stage pipeline fetch-ahead), so that offset is
		// folded in here rather than carried in the decoded value.
		target := uint64(int64(pc) + 8 + int64(rel))
		return p.relocConditional(buf, condOf(inst.Enc), target)

	case armasm.BL_EQ:
		rel, ok := inst.Args[0].(armasm.PCRel)
		if !ok {
			buf.EmitBytes(code[:4])
			return nil
		}
		target := uint64(int64(pc) + 8 + int64(rel))
		return p.relocCall(buf, condOf(inst.Enc), target)

	case armasm.LDR_EQ:
		if mem, ok := literalMem(inst.Args[1]); ok && mem.Base == armasm.PC {
			rt, _ := inst.Args[0].(armasm.Reg)
			target := uint64(int64(pc) + 8 + int64(mem.Offset))
			emitLoadImm32A32(buf, condOf(inst.Enc), uint8(rt), uint32(target))
			buf.Emit32(encodeLDRImmA32(condOf(inst.Enc), uint8(rt), uint8(rt), 0, true, true))
			return nil
		}
		buf.EmitBytes(code[:4])
		return nil

	case armasm.ADD_EQ, armasm.SUB_EQ:
		if rn, ok := inst.Args[1].(armasm.Reg); ok && rn == armasm.PC {
			if imm, ok := inst.Args[2].(armasm.Imm); ok {
				rd, _ := inst.Args[0].(armasm.Reg)
				base := int64(pc) + 8 // ARM's ADD/SUB Rd,PC,#imm reads PC as instr+8
				var target int64
				if inst.Op&^15 == armasm.ADD_EQ {
					target = base + int64(imm)
				} else {
					target = base - int64(imm)
				}
				emitLoadImm32A32(buf, condOf(inst.Enc), uint8(rd), uint32(target))
				return nil
			}
		}
		buf.EmitBytes(code[:4])
		return nil

	default:
		buf.EmitBytes(code[:4])
		return nil
	}
}

// relocConditional handles B{cond}: an inverted-condition branch skips
// over the absolute-jump template, which then jumps unconditionally to the
// real target. An always-execute B has no inverse condition (inverting AL
// would give the NV space, which encodes BLX), so it gets the template alone.
func (p arm32Profile) relocConditional(buf *Buffer, cond uint8, target uint64) error {
	if cond == condAL() {
		p.AbsoluteJump(buf, target)
		return nil
	}
	buf.Emit32(encodeBA32(invertCondA32(cond), int32(p.AbsoluteJumpSize()+4)))
	p.AbsoluteJump(buf, target)
	return nil
}

// relocCall handles BL{cond}: the condition is preserved on the LR-setting
// ADD (a BL that doesn't fire never sets LR either), then the absolute
// jump — itself unconditional, since once the condition under which the
// call happens is met control must reach the target.
func (p arm32Profile) relocCall(buf *Buffer, cond uint8, target uint64) error {
	buf.Emit32(encodeADDImmA32(cond, a32RegLR, a32RegPC, 8))
	p.AbsoluteJump(buf, target)
	return nil
}

func literalMem(a armasm.Arg) (armasm.Mem, bool) {
	m, ok := a.(armasm.Mem)
	return m, ok
}
