// Package types defines the VM command model.
// Every parsed source line becomes exactly one Command; the concrete
// type is the active tag and carries only the operands that tag needs.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is the interface all VM commands implement.
// The set of implementations is closed: only this package can add one.
type Command interface {
	// String returns the canonical source form of the command
	String() string
	// Type returns the command family for error messages
	Type() string

	command()
}

// Op is an arithmetic or logical operation.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpNeg
	OpEq
	OpGt
	OpLt
	OpAnd
	OpOr
	OpNot
)

var opNames = [...]string{
	OpAdd: "add",
	OpSub: "sub",
	OpNeg: "neg",
	OpEq:  "eq",
	OpGt:  "gt",
	OpLt:  "lt",
	OpAnd: "and",
	OpOr:  "or",
	OpNot: "not",
}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return "op(" + strconv.Itoa(int(o)) + ")"
	}
	return opNames[o]
}

// Unary reports whether the operation consumes a single stack cell.
func (o Op) Unary() bool { return o == OpNeg || o == OpNot }

// Comparison reports whether the operation produces a boolean.
func (o Op) Comparison() bool { return o == OpEq || o == OpGt || o == OpLt }

// LookupOp maps a keyword to its operation.
func LookupOp(s string) (Op, bool) {
	for i, name := range opNames {
		if name == s {
			return Op(i), true
		}
	}
	return 0, false
}

// Segment is a memory region addressed by push and pop.
type Segment int

const (
	SegArgument Segment = iota
	SegLocal
	SegStatic
	SegConstant
	SegThis
	SegThat
	SegPointer
	SegTemp
)

var segmentNames = [...]string{
	SegArgument: "argument",
	SegLocal:    "local",
	SegStatic:   "static",
	SegConstant: "constant",
	SegThis:     "this",
	SegThat:     "that",
	SegPointer:  "pointer",
	SegTemp:     "temp",
}

func (s Segment) String() string {
	if s < 0 || int(s) >= len(segmentNames) {
		return "segment(" + strconv.Itoa(int(s)) + ")"
	}
	return segmentNames[s]
}

// LookupSegment maps a segment keyword to its Segment.
func LookupSegment(s string) (Segment, bool) {
	for i, name := range segmentNames {
		if name == s {
			return Segment(i), true
		}
	}
	return 0, false
}

// Arithmetic is one of the nine stack operations.
type Arithmetic struct {
	Op Op
}

func (a Arithmetic) String() string { return a.Op.String() }
func (a Arithmetic) Type() string   { return "arithmetic" }
func (Arithmetic) command()         {}

// Push copies a segment cell (or a constant) onto the stack.
type Push struct {
	Segment Segment
	Index   int
}

func (p Push) String() string { return fmt.Sprintf("push %s %d", p.Segment, p.Index) }
func (p Push) Type() string   { return "memory" }
func (Push) command()         {}

// Pop moves the top of the stack into a segment cell.
type Pop struct {
	Segment Segment
	Index   int
}

func (p Pop) String() string { return fmt.Sprintf("pop %s %d", p.Segment, p.Index) }
func (p Pop) Type() string   { return "memory" }
func (Pop) command()         {}

// Label marks a branch target local to the current module.
type Label struct {
	Name string
}

func (l Label) String() string { return "label " + l.Name }
func (l Label) Type() string   { return "branch" }
func (Label) command()         {}

// Goto jumps unconditionally to a module-local label.
type Goto struct {
	Label string
}

func (g Goto) String() string { return "goto " + g.Label }
func (g Goto) Type() string   { return "branch" }
func (Goto) command()         {}

// IfGoto pops the stack and jumps when the value is non-zero.
type IfGoto struct {
	Label string
}

func (g IfGoto) String() string { return "if-goto " + g.Label }
func (g IfGoto) Type() string   { return "branch" }
func (IfGoto) command()         {}

// Function declares a function entry point with Locals zeroed local slots.
type Function struct {
	Name   string
	Locals int
}

func (f Function) String() string { return fmt.Sprintf("function %s %d", f.Name, f.Locals) }
func (f Function) Type() string   { return "function" }
func (Function) command()         {}

// Call invokes Name after Args arguments have been pushed.
type Call struct {
	Name string
	Args int
}

func (c Call) String() string { return fmt.Sprintf("call %s %d", c.Name, c.Args) }
func (c Call) Type() string   { return "function" }
func (Call) command()         {}

// Return tears down the current frame.
type Return struct{}

func (Return) String() string { return "return" }
func (Return) Type() string   { return "function" }
func (Return) command()       {}

// MaxIndex is the largest index or constant a 15-bit A-instruction can load.
const MaxIndex = 1<<15 - 1

// ValidSymbol reports whether s can be used as a label, function or
// module name: letters, digits, '_', '.', ':' and not starting with a digit.
func ValidSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '.', r == ':':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// reserved are the symbols the Hack assembler predefines.
var reserved = map[string]bool{
	"SP": true, "LCL": true, "ARG": true, "THIS": true, "THAT": true,
	"SCREEN": true, "KBD": true,
	"R0": true, "R1": true, "R2": true, "R3": true, "R4": true, "R5": true,
	"R6": true, "R7": true, "R8": true, "R9": true, "R10": true, "R11": true,
	"R12": true, "R13": true, "R14": true, "R15": true,
}

// Reserved reports whether s is a predefined Hack symbol.
func Reserved(s string) bool { return reserved[s] }

// ValidFunctionName reports whether s can name a function. Function names
// become bare assembly labels, so on top of ValidSymbol they must not be
// a predefined symbol and must not end in ".<digits>", which is the shape
// of a static variable.
func ValidFunctionName(s string) bool {
	if !ValidSymbol(s) || Reserved(s) {
		return false
	}
	dot := strings.LastIndexByte(s, '.')
	if dot < 0 || dot == len(s)-1 {
		return true
	}
	for _, r := range s[dot+1:] {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}
