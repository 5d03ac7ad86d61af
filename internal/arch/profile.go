// Package arch implements the decoder/relocator and instruction encoder for
// each ARM instruction-set profile this library supports: AArch64, 32-bit
// ARM (A32), and Thumb/Thumb-2. The registry, trampoline builder and patch
// sequencer are architecture-agnostic and talk only to the Profile
// interface defined here.
package arch

// ID identifies an instruction-set profile.
type ID int

const (
	AArch64 ID = iota
	ARM32
	Thumb
)

func (id ID) String() string {
	switch id {
	case AArch64:
		return "aarch64"
	case ARM32:
		return "arm32"
	case Thumb:
		return "thumb"
	default:
		return "unknown"
	}
}

// Profile is the architecture-agnostic contract the registry, trampoline
// builder and patch sequencer program against. There is exactly one
// implementation per ID.
type Profile interface {
	ID() ID

	// PrologueSize is N, the number of target bytes overwritten by the
	// detour jump and captured as the original prologue.
	PrologueSize() int

	// PrologueInstructionCount is the number of instructions (or, for
	// Thumb, halfword-aligned slots) that make up the prologue.
	PrologueInstructionCount() int

	// TrampolineCapacity is the worst-case size a trampoline for this
	// profile may ever need.
	TrampolineCapacity() int

	// InstructionWidth returns the width in bytes of the instruction
	// starting at code[0], used by the trampoline builder to step through
	// the prologue. Thumb instructions are 2 or 4 bytes; the width is
	// determined by inspecting the leading halfword.
	InstructionWidth(code []byte) int

	// Relocate decodes the single instruction at the front of code
	// (originally located at address pc) and appends a semantically
	// equivalent sequence to buf, assuming buf's eventual load address is
	// unrelated to pc. It returns ErrUnsupportedInstruction if code is
	// shorter than one instruction or the instruction is one the profile
	// cannot relocate (see ErrUnsupportedInstruction).
	Relocate(buf *Buffer, pc uint64, code []byte) error

	// AbsoluteJump appends the fixed long-jump template that transfers
	// control to an arbitrary target address without PC-relative range
	// constraints.
	AbsoluteJump(buf *Buffer, to uint64)

	// AbsoluteJumpSize is the byte size of the sequence AbsoluteJump
	// appends; used for trampoline capacity bookkeeping.
	AbsoluteJumpSize() int

	// LandingPad appends a BTI-equivalent landing pad as the trampoline's
	// first instruction (a NOP-equivalent on profiles without BTI).
	LandingPad(buf *Buffer)

	// DetourPattern returns the exact N bytes written into a target's
	// prologue to redirect it to detour. active is defined as "target's
	// first N bytes equal this pattern".
	DetourPattern(target, detour uint64) []byte

	// CanonicalAddress strips the Thumb mode bit (bit 0) from addr,
	// returning the registry key and whether the bit was set.
	CanonicalAddress(addr uint64) (canonical uint64, thumbBit bool)

	// CallableAddress restores the Thumb mode bit on a trampoline base
	// address when the original target was Thumb-mode, so the caller gets
	// back a correctly-tagged function pointer.
	CallableAddress(trampolineBase uint64, thumbBit bool) uint64
}

// For returns the Profile implementation for id.
func For(id ID) Profile {
	switch id {
	case AArch64:
		return aarch64Profile{}
	case ARM32:
		return arm32Profile{}
	case Thumb:
		return thumbProfile{}
	default:
		panic("arch: unknown profile id")
	}
}
