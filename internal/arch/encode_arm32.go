package arch

// Pure A32 (32-bit ARM) instruction encoders (component B).

const (
	a32RegPC = 15
	a32RegLR = 14
)

// encodeBA32 assembles a conditional branch. instrToTargetBytes is the
// byte distance from this instruction's own address to the target; the
// ARM pipeline's implicit PC+8 is folded in here so callers reason in
// plain byte distances. BL relocation doesn't go through an encoded BL:
// relocCall in arm32.go materializes LR via encodeADDImmA32 and reaches
// the target through the absolute-jump template instead, since a target
// may sit outside BL's ±32 MiB range.
func encodeBA32(cond uint8, instrToTargetBytes int32) uint32 {
	disp := instrToTargetBytes - 8
	imm24 := uint32(disp/4) & 0xFFFFFF
	return (uint32(cond&0xF) << 28) | (0x5 << 25) | imm24
}

// encodeLDRImmA32 assembles LDR<c> Rd,[Rn,#imm12] in pre-indexed or
// literal-pool form (up selects add/subtract, preIndex selects offset vs
// post-indexed addressing — the relocator only ever needs preIndex=true).
func encodeLDRImmA32(cond, rd, rn uint8, imm12 uint16, up, preIndex bool) uint32 {
	inst := uint32(cond&0xF)<<28 | 0x04100000 | (uint32(rn&0xF) << 16) | (uint32(rd&0xF) << 12) | uint32(imm12&0xFFF)
	if preIndex {
		inst |= 1 << 24
	}
	if up {
		inst |= 1 << 23
	}
	return inst
}

// encodeMOVW/encodeMOVT assemble the 16-bit-immediate move pair used to
// materialize a 32-bit absolute address into a register across two
// instructions.
func encodeMOVW(cond, rd uint8, imm16 uint16) uint32 {
	imm4 := uint32(imm16>>12) & 0xF
	imm12 := uint32(imm16) & 0xFFF
	return uint32(cond&0xF)<<28 | 0x03000000 | (imm4 << 16) | (uint32(rd&0xF) << 12) | imm12
}

func encodeMOVT(cond, rd uint8, imm16 uint16) uint32 {
	imm4 := uint32(imm16>>12) & 0xF
	imm12 := uint32(imm16) & 0xFFF
	return uint32(cond&0xF)<<28 | 0x03400000 | (imm4 << 16) | (uint32(rd&0xF) << 12) | imm12
}

// emitLoadImm32A32 materializes a full 32-bit value into rd via MOVW+MOVT,
// always 2 instructions so trampoline sizing stays predictable.
func emitLoadImm32A32(buf *Buffer, cond, rd uint8, val uint32) {
	buf.Emit32(encodeMOVW(cond, rd, uint16(val)))
	buf.Emit32(encodeMOVT(cond, rd, uint16(val>>16)))
}

// encodeADDImmA32 assembles ADD Rd,Rn,#imm8 with a zero rotation, enough
// for the small constants the relocator itself needs (e.g. #8 into LR).
func encodeADDImmA32(cond, rd, rn uint8, imm8 uint8) uint32 {
	return uint32(cond&0xF)<<28 | 0x02800000 | (uint32(rn&0xF) << 16) | (uint32(rd&0xF) << 12) | uint32(imm8)
}

func condAL() uint8 { return 0xE }

// condOf extracts the 4-bit condition field from a decoded A32 instruction's
// raw encoding (bits 31:28); armasm.Inst carries it in Enc rather than as a
// separate field.
func condOf(enc uint32) uint8 { return uint8(enc >> 28) }

func invertCondA32(cond uint8) uint8 { return cond ^ 1 }
