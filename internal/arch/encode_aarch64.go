package arch

// Pure AArch64 instruction encoders (component B). Each function returns
// one 32-bit instruction word; none of them read or write memory. Bit
// layouts follow the ARM Architecture Reference Manual; shapes mirror the
// code-generator style of a small compiler backend (MOVZ/MOVK immediate
// synthesis in particular).

const (
	regSP  = 31
	regLR  = 30
	regXZR = 31
)

func encodeMOVZ(rd uint8, imm16 uint16, shift uint8) uint32 {
	hw := uint32(shift / 16)
	return 0xD2800000 | (hw << 21) | (uint32(imm16) << 5) | uint32(rd&0x1f)
}

func encodeMOVK(rd uint8, imm16 uint16, shift uint8) uint32 {
	hw := uint32(shift / 16)
	return 0xF2800000 | (hw << 21) | (uint32(imm16) << 5) | uint32(rd&0x1f)
}

func encodeMOVN(rd uint8, imm16 uint16, shift uint8) uint32 {
	hw := uint32(shift / 16)
	return 0x92800000 | (hw << 21) | (uint32(imm16) << 5) | uint32(rd&0x1f)
}

// emitLoadImm64 materializes val into rd using the fewest MOVZ/MOVK
// instructions: MOVZ for the first non-zero 16-bit chunk, MOVK for the
// rest, and a single MOVZ Rd,#0 for the all-zero case. This is what keeps
// ADRP-heavy trampolines inside the capacity budget instead of always
// emitting four fixed instructions.
func emitLoadImm64(buf *Buffer, rd uint8, val uint64) {
	if val == 0 {
		buf.Emit32(encodeMOVZ(rd, 0, 0))
		return
	}
	first := true
	for shift := uint8(0); shift < 64; shift += 16 {
		chunk := uint16((val >> shift) & 0xFFFF)
		if chunk == 0 {
			continue
		}
		if first {
			buf.Emit32(encodeMOVZ(rd, chunk, shift))
			first = false
		} else {
			buf.Emit32(encodeMOVK(rd, chunk, shift))
		}
	}
}

// encodeB assembles an unconditional branch with a 26-bit word-aligned
// byte displacement.
func encodeB(byteOffset int64) uint32 {
	imm26 := uint32(byteOffset/4) & 0x3FFFFFF
	return 0x14000000 | imm26
}

func encodeBL(byteOffset int64) uint32 {
	imm26 := uint32(byteOffset/4) & 0x3FFFFFF
	return 0x94000000 | imm26
}

// encodeBCond assembles B.cond with a 19-bit word-aligned byte displacement.
func encodeBCond(cond uint8, byteOffset int64) uint32 {
	imm19 := uint32(byteOffset/4) & 0x7FFFF
	return 0x54000000 | (imm19 << 5) | uint32(cond&0xF)
}

// encodeCBZ/encodeCBNZ assemble CBZ/CBNZ for a 32- or 64-bit register.
func encodeCBZ(rt uint8, is64 bool, byteOffset int64) uint32 {
	base := uint32(0x34000000)
	if is64 {
		base = 0xB4000000
	}
	imm19 := uint32(byteOffset/4) & 0x7FFFF
	return base | (imm19 << 5) | uint32(rt&0x1f)
}

func encodeCBNZ(rt uint8, is64 bool, byteOffset int64) uint32 {
	base := uint32(0x35000000)
	if is64 {
		base = 0xB5000000
	}
	imm19 := uint32(byteOffset/4) & 0x7FFFF
	return base | (imm19 << 5) | uint32(rt&0x1f)
}

// encodeTBZ/encodeTBNZ assemble TBZ/TBNZ preserving b40 (low 5 bits of the
// tested bit position), b5 (its high bit) and Rt.
func encodeTBZ(rt, bitpos uint8, byteOffset int64) uint32 {
	b5 := uint32(bitpos>>5) & 1
	b40 := uint32(bitpos) & 0x1F
	imm14 := uint32(byteOffset/4) & 0x3FFF
	return 0x36000000 | (b5 << 31) | (b40 << 19) | (imm14 << 5) | uint32(rt&0x1f)
}

func encodeTBNZ(rt, bitpos uint8, byteOffset int64) uint32 {
	b5 := uint32(bitpos>>5) & 1
	b40 := uint32(bitpos) & 0x1F
	imm14 := uint32(byteOffset/4) & 0x3FFF
	return 0x37000000 | (b5 << 31) | (b40 << 19) | (imm14 << 5) | uint32(rt&0x1f)
}

// encodeADR materializes PC + imm into rd using the split immhi:immlo
// encoding (imm is a byte displacement, range ±1MiB).
func encodeADR(rd uint8, imm int64) uint32 {
	immlo := uint32(imm) & 0x3
	immhi := (uint32(imm) >> 2) & 0x7FFFF
	return 0x10000000 | (immlo << 29) | (immhi << 5) | uint32(rd&0x1f)
}

// Opcode bases for an LDR-literal of each register width/class, for use
// with encodeLDRLiteral; the FP/SIMD ones differ from the GP ones in the
// V/opc fields (§4.1's "SIMD-aware widening").
const (
	ldrLitW = 0x18000000 // LDR Wt, label
	ldrLitX = 0x58000000 // LDR Xt, label
	ldrLitS = 0x1C000000 // LDR St, label (32-bit FP/SIMD)
	ldrLitD = 0x5C000000 // LDR Dt, label (64-bit FP/SIMD)
	ldrLitQ = 0x9C000000 // LDR Qt, label (128-bit FP/SIMD)
)

func encodeLDRLiteral(base uint32, rt uint8, byteOffset int64) uint32 {
	imm19 := uint32(byteOffset/4) & 0x7FFFF
	return base | (imm19 << 5) | uint32(rt&0x1f)
}

// encodeLDRImm assembles `LDR Rt,[Rn]` (unsigned immediate offset #0),
// used to dereference a scratch register holding a materialized absolute
// address. is64 selects the GP register width (32/64-bit); for FP/SIMD
// destinations encodeLDRImmFP is used instead.
func encodeLDRImm(rt, rn uint8, is64 bool) uint32 {
	base := uint32(0xB9400000)
	if is64 {
		base = 0xF9400000
	}
	return base | (uint32(rn&0x1f) << 5) | uint32(rt&0x1f)
}

func encodeLDRImmFP(base uint32, rt, rn uint8) uint32 {
	// base selects B/H/S/D/Q unsigned-immediate LDR opcode; imm12=0.
	return base | (uint32(rn&0x1f) << 5) | uint32(rt&0x1f)
}

const (
	ldrImmB = 0x3D400000
	ldrImmH = 0x7D400000
	ldrImmS = 0xBD400000
	ldrImmD = 0xFD400000
	ldrImmQ = 0x3DC00000
)

func encodeBR(rn uint8) uint32  { return 0xD61F0000 | (uint32(rn&0x1f) << 5) }
func encodeBLR(rn uint8) uint32 { return 0xD63F0000 | (uint32(rn&0x1f) << 5) }
func encodeRET(rn uint8) uint32 { return 0xD65F0000 | (uint32(rn&0x1f) << 5) }
func encodeNOP() uint32         { return 0xD503201F }

// encodeBTIc assembles `BTI c`, the landing pad legal for an indirect
// branch-with-link on BTI-enabled cores.
func encodeBTIc() uint32 { return 0xD503245F }
