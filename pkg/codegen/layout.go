package codegen

import "github.com/psilLang/vmtranslator/pkg/types"

// Hack memory map used by the generated code.
const (
	// StackBase is where the bootstrap points SP.
	StackBase = 256

	// PointerBase is the RAM address of pointer 0 (THIS); pointer 1 is THAT.
	PointerBase = 3
	// PointerSize is the number of pointer cells.
	PointerSize = 2

	// TempBase is the RAM address of temp 0.
	TempBase = 5
	// TempSize is the number of temp cells (R5..R12).
	TempSize = 8

	// FrameSize is the number of cells call pushes: the return address
	// followed by LCL, ARG, THIS and THAT.
	FrameSize = 5

	// DefaultEntry is the function the bootstrap calls.
	DefaultEntry = "Sys.init"
)

// scratch registers used by return
const (
	frameReg  = "R13"
	returnReg = "R14"
)

// savedRegisters are pushed by call in this order and restored by
// return in reverse.
var savedRegisters = [...]string{"LCL", "ARG", "THIS", "THAT"}

// baseRegister returns the base pointer symbol of an indirect segment.
func baseRegister(seg types.Segment) (string, bool) {
	switch seg {
	case types.SegLocal:
		return "LCL", true
	case types.SegArgument:
		return "ARG", true
	case types.SegThis:
		return "THIS", true
	case types.SegThat:
		return "THAT", true
	}
	return "", false
}

// fixedBase returns the first address and cell count of a direct segment.
func fixedBase(seg types.Segment) (base, size int, ok bool) {
	switch seg {
	case types.SegPointer:
		return PointerBase, PointerSize, true
	case types.SegTemp:
		return TempBase, TempSize, true
	}
	return 0, 0, false
}
