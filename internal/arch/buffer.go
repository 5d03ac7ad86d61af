package arch

import "encoding/binary"

// Buffer is a growing code region. Instructions are appended little-endian,
// matching every ARM-family encoding this package emits.
type Buffer struct {
	b []byte
}

// NewBuffer returns an empty buffer with cap bytes pre-reserved.
func NewBuffer(cap int) *Buffer {
	return &Buffer{b: make([]byte, 0, cap)}
}

// Emit32 appends a 32-bit instruction word.
func (buf *Buffer) Emit32(word uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], word)
	buf.b = append(buf.b, tmp[:]...)
}

// Emit16 appends a 16-bit Thumb halfword.
func (buf *Buffer) Emit16(half uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], half)
	buf.b = append(buf.b, tmp[:]...)
}

// Emit64 appends a raw 64-bit little-endian literal (address pool entries).
func (buf *Buffer) Emit64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.b = append(buf.b, tmp[:]...)
}

// Emit32LE appends a raw 32-bit little-endian literal (address pool entries
// on 32-bit profiles).
func (buf *Buffer) Emit32LE(v uint32) {
	buf.Emit32(v)
}

// EmitBytes copies raw bytes verbatim (used for the unknown-instruction
// policy: an instruction the classifier cannot prove PC-relative is copied
// as-is).
func (buf *Buffer) EmitBytes(p []byte) {
	buf.b = append(buf.b, p...)
}

// AlignTo pads the buffer with 16-bit NOPs until its length is a multiple
// of n (n must be a power of two no larger than 4). Thumb mixes 2- and
// 4-byte instructions, so a PC-relative literal pool embedded later in the
// buffer is only guaranteed reachable if the load instruction addressing
// it sits at a known alignment; this is that guarantee.
func (buf *Buffer) AlignTo(n int) {
	for len(buf.b)%n != 0 {
		buf.Emit16(encodeThumbNOP())
	}
}

// Len returns the number of bytes emitted so far.
func (buf *Buffer) Len() int { return len(buf.b) }

// Bytes returns the assembled code.
func (buf *Buffer) Bytes() []byte { return buf.b }
