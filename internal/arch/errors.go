package arch

import "github.com/pkg/errors"

// ErrUnsupportedInstruction is returned by Profile.Relocate when it cannot
// relocate an instruction: the code is shorter than one instruction, or (on
// the Thumb profile) the instruction is a BLX that switches to ARM state.
// The relocator never truncates or guesses past this point.
var ErrUnsupportedInstruction = errors.New("unsupported instruction for relocation")
