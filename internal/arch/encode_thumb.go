package arch

// Pure Thumb/Thumb-2 instruction encoders (component B). Thumb mixes
// 16-bit and 32-bit instructions; encoders here are grouped by width.

// thumbScratchReg is the register the absolute-jump template pushes and then
// overwrites with the jump target; the matching pop follows the BX and is
// not executed. Pinned to r4 rather than r0: an earlier draft of this
// template clobbered r0 without saving it, which is unsafe whenever the
// relocated prologue's subsequent instructions (or the jumped-to target)
// still expect r0 to hold an argument. r4 is callee-saved under both AAPCS
// variants, so it carries no argument.
const thumbScratchReg = 4

// encodePushPop assembles the 16-bit single-low-register PUSH/POP form
// (Thumb format 14), used only for the scratch register save/restore in
// the absolute-jump template.
func encodePushPop(pop bool, reg uint8) uint16 {
	base := uint16(0xB400)
	if pop {
		base = 0xBC00
	}
	return base | (1 << reg)
}

// encodeLDRPCImm16 assembles `LDR Rd,[PC,#imm]` (format 6, PC-relative
// load), imm is the word-aligned displacement (imm8 * 4).
func encodeLDRPCImm16(rd uint8, imm8 uint8) uint16 {
	return 0x4800 | (uint16(rd) << 8) | uint16(imm8)
}

// encodeBX assembles `BX Rm` (format 5, branch exchange).
func encodeBX(rm uint8) uint16 {
	h2 := uint16(0)
	lo := rm
	if rm >= 8 {
		h2 = 1
		lo = rm - 8
	}
	return 0x4700 | (h2 << 6) | (uint16(lo) << 3)
}

// encodeThumbNOP assembles the canonical 16-bit Thumb NOP (MOV r8,r8).
func encodeThumbNOP() uint16 { return 0x46C0 }

// encodeBCondThumb assembles the 16-bit conditional branch (format 16).
func encodeBCondThumb(cond uint8, byteOffset int32) uint16 {
	imm8 := uint16((byteOffset/2)&0xFF) & 0xFF
	return 0xD000 | (uint16(cond&0xF) << 8) | imm8
}

// encodeCBZThumb/encodeCBNZThumb assemble the Thumb-2 compare-and-branch
// forms; offset is unsigned, forward-only, word-of-2 aligned, 0..126.
// Named distinctly from AArch64's encodeCBZ/encodeCBNZ in encode_aarch64.go
// (same mnemonic, unrelated encoding — Go has no overloading).
func encodeCBZThumb(rn uint8, byteOffset uint32) uint16 {
	imm := byteOffset / 2
	i := uint16((imm >> 5) & 1)
	imm5 := uint16(imm & 0x1F)
	return 0xB100 | (i << 9) | (imm5 << 3) | uint16(rn&0x7)
}

func encodeCBNZThumb(rn uint8, byteOffset uint32) uint16 {
	imm := byteOffset / 2
	i := uint16((imm >> 5) & 1)
	imm5 := uint16(imm & 0x1F)
	return 0xB900 | (i << 9) | (imm5 << 3) | uint16(rn&0x7)
}

// encodeADRThumb2 assembles the Thumb-2 `ADR Rd,#imm` add-variant (T3,
// A8.8.12): Rd = Align(PC,4) + imm. Only small non-negative imm (< 256) is
// needed here, so the i and imm3 fields stay zero.
func encodeADRThumb2(rd uint8, imm uint16) (hi, lo uint16) {
	hi = 0xF20F
	lo = (uint16(rd) << 8) | (imm & 0xFF)
	return hi, lo
}

// encodeMOVWThumb2/encodeMOVTThumb2 assemble the Thumb-2 16-bit-immediate
// forms (T3/A8.8.102, T1/A8.8.106); imm16 splits as imm4:i:imm3:imm8.
func encodeMOVWThumb2(rd uint8, imm16 uint32) (hi, lo uint16) {
	i := uint16((imm16 >> 11) & 1)
	imm4 := uint16((imm16 >> 12) & 0xF)
	imm3 := uint16((imm16 >> 8) & 0x7)
	imm8 := uint16(imm16 & 0xFF)
	hi = 0xF240 | (i << 10) | imm4
	lo = (imm3 << 12) | (uint16(rd) << 8) | imm8
	return hi, lo
}

func encodeMOVTThumb2(rd uint8, imm16 uint32) (hi, lo uint16) {
	i := uint16((imm16 >> 11) & 1)
	imm4 := uint16((imm16 >> 12) & 0xF)
	imm3 := uint16((imm16 >> 8) & 0x7)
	imm8 := uint16(imm16 & 0xFF)
	hi = 0xF2C0 | (i << 10) | imm4
	lo = (imm3 << 12) | (uint16(rd) << 8) | imm8
	return hi, lo
}

// emitLoadImm32Thumb2 materializes a 32-bit value into rd via MOVW/MOVT,
// the Thumb-2 equivalent of the A32 profile's emitLoadImm32A32.
func emitLoadImm32Thumb2(buf *Buffer, rd uint8, val uint32) {
	hi, lo := encodeMOVWThumb2(rd, val&0xFFFF)
	buf.Emit16(hi)
	buf.Emit16(lo)
	if val>>16 != 0 {
		hi, lo = encodeMOVTThumb2(rd, val>>16)
		buf.Emit16(hi)
		buf.Emit16(lo)
	}
}

// encodeLDRImmThumb2 assembles the Thumb-2 `LDR Rt,[Rn,#imm12]` (T3,
// A8.8.63), positive 12-bit offset only — the only form this package needs.
func encodeLDRImmThumb2(rt, rn uint8, imm12 uint16) (hi, lo uint16) {
	hi = 0xF8D0 | uint16(rn)
	lo = (uint16(rt) << 12) | (imm12 & 0xFFF)
	return hi, lo
}
