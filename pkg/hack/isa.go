// Package hack implements the 16-bit Hack machine targeted by the translator:
// a two-pass assembler, a disassembler and a CPU emulator.
package hack

import "strconv"

// Instruction encoding:
//
//	0vvv vvvv vvvv vvvv  A-instruction: load 15-bit v into A
//	111a cccc ccdd djjj  C-instruction: dest=comp;jump
//
// a selects A (0) or M (1) as the ALU y input. The six c bits are the ALU
// control lines zx nx zy ny f no. dest bits are A D M, jump bits are
// lt eq gt.

const (
	cPrefix  = 0xE000
	aBit     = 0x1000
	maxValue = 0x7FFF
)

// Memory map
const (
	RAMSize    = 1 << 15
	ScreenBase = 0x4000
	Keyboard   = 0x6000
	VarBase    = 16
)

// comps maps canonical comp mnemonics to the a bit plus the six ALU bits.
var comps = map[string]uint16{
	"0":   0b0101010,
	"1":   0b0111111,
	"-1":  0b0111010,
	"D":   0b0001100,
	"A":   0b0110000,
	"!D":  0b0001101,
	"!A":  0b0110001,
	"-D":  0b0001111,
	"-A":  0b0110011,
	"D+1": 0b0011111,
	"A+1": 0b0110111,
	"D-1": 0b0001110,
	"A-1": 0b0110010,
	"D+A": 0b0000010,
	"D-A": 0b0010011,
	"A-D": 0b0000111,
	"D&A": 0b0000000,
	"D|A": 0b0010101,
	"M":   0b1110000,
	"!M":  0b1110001,
	"-M":  0b1110011,
	"M+1": 0b1110111,
	"M-1": 0b1110010,
	"D+M": 0b1000010,
	"D-M": 0b1010011,
	"M-D": 0b1000111,
	"D&M": 0b1000000,
	"D|M": 0b1010101,
}

// compAliases are commutative spellings accepted on input.
var compAliases = map[string]string{
	"A+D": "D+A",
	"M+D": "D+M",
	"A&D": "D&A",
	"M&D": "D&M",
	"A|D": "D|A",
	"M|D": "D|M",
	"1+D": "D+1",
	"1+A": "A+1",
	"1+M": "M+1",
}

var dests = map[string]uint16{
	"":    0b000,
	"M":   0b001,
	"D":   0b010,
	"MD":  0b011,
	"DM":  0b011,
	"A":   0b100,
	"AM":  0b101,
	"MA":  0b101,
	"AD":  0b110,
	"DA":  0b110,
	"AMD": 0b111,
	"ADM": 0b111,
}

var jumps = map[string]uint16{
	"":    0b000,
	"JGT": 0b001,
	"JEQ": 0b010,
	"JGE": 0b011,
	"JLT": 0b100,
	"JNE": 0b101,
	"JLE": 0b110,
	"JMP": 0b111,
}

// predefined symbols
var predefined = map[string]int{
	"SP":     0,
	"LCL":    1,
	"ARG":    2,
	"THIS":   3,
	"THAT":   4,
	"SCREEN": ScreenBase,
	"KBD":    Keyboard,
}

func init() {
	for i := 0; i < 16; i++ {
		predefined["R"+strconv.Itoa(i)] = i
	}
}

// IsAInstruction returns true if w loads A
func IsAInstruction(w uint16) bool {
	return w&0x8000 == 0
}

// AValue returns the constant of an A-instruction
func AValue(w uint16) int {
	return int(w & maxValue)
}

// Encode builds a C-instruction from its fields
func Encode(dest, comp, jump string) (uint16, bool) {
	if alias, ok := compAliases[comp]; ok {
		comp = alias
	}
	c, ok := comps[comp]
	if !ok {
		return 0, false
	}
	d, ok := dests[dest]
	if !ok {
		return 0, false
	}
	j, ok := jumps[jump]
	if !ok {
		return 0, false
	}
	return cPrefix | c<<6 | d<<3 | j, true
}

// alu evaluates the Hack ALU for the given control bits (zx nx zy ny f no).
func alu(x, y int16, ctl uint16) int16 {
	if ctl&0b100000 != 0 {
		x = 0
	}
	if ctl&0b010000 != 0 {
		x = ^x
	}
	if ctl&0b001000 != 0 {
		y = 0
	}
	if ctl&0b000100 != 0 {
		y = ^y
	}
	var out int16
	if ctl&0b000010 != 0 {
		out = x + y
	} else {
		out = x & y
	}
	if ctl&0b000001 != 0 {
		out = ^out
	}
	return out
}
