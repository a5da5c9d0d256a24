// Package codegen maps VM commands onto Hack assembly.
//
// The stack pointer lives in RAM[0] and addresses the next free cell.
// Arithmetic works in place on the top cells; comparisons leave -1 (true)
// or 0 (false). Function frames are stack resident so calls nest freely.
package codegen

import (
	"fmt"
	"strings"

	"github.com/psilLang/vmtranslator/pkg/types"
)

// Generator emits Hack assembly for VM commands. Its only state is the
// Allocator shared with the rest of the run.
type Generator struct {
	alloc *Allocator
}

// New creates a Generator drawing labels from alloc.
func New(alloc *Allocator) *Generator {
	return &Generator{alloc: alloc}
}

// Allocator returns the Allocator the generator draws from.
func (g *Generator) Allocator() *Allocator {
	return g.alloc
}

// emitter collects assembly lines.
type emitter struct {
	lines []string
}

func (e *emitter) line(format string, args ...any) {
	if len(args) == 0 {
		e.lines = append(e.lines, format)
		return
	}
	e.lines = append(e.lines, fmt.Sprintf(format, args...))
}

func (e *emitter) block(lines ...string) {
	e.lines = append(e.lines, lines...)
}

// pushD pushes the D register.
func (e *emitter) pushD() {
	e.block("@SP", "A=M", "M=D", "@SP", "M=M+1")
}

// popD pops the top of the stack into D.
func (e *emitter) popD() {
	e.block("@SP", "AM=M-1", "D=M")
}

// Generate returns the assembly for one command.
func (g *Generator) Generate(cmd types.Command) ([]string, error) {
	e := &emitter{}

	switch c := cmd.(type) {
	case types.Arithmetic:
		if err := g.arithmetic(e, c.Op); err != nil {
			return nil, err
		}
	case types.Push:
		if err := g.push(e, c.Segment, c.Index); err != nil {
			return nil, err
		}
	case types.Pop:
		if err := g.pop(e, c.Segment, c.Index); err != nil {
			return nil, err
		}
	case types.Label:
		e.line("(%s)", g.alloc.BranchLabel(c.Name))
	case types.Goto:
		e.line("@%s", g.alloc.BranchLabel(c.Label))
		e.line("0;JMP")
	case types.IfGoto:
		e.popD()
		e.line("@%s", g.alloc.BranchLabel(c.Label))
		e.line("D;JNE")
	case types.Function:
		if err := checkFunctionName(c.Name); err != nil {
			return nil, err
		}
		e.line("(%s)", c.Name)
		for i := 0; i < c.Locals; i++ {
			e.block("@SP", "A=M", "M=0", "@SP", "M=M+1")
		}
	case types.Call:
		if err := checkFunctionName(c.Name); err != nil {
			return nil, err
		}
		e.block(CallSequence(c.Name, c.Args, g.alloc.NextReturnLabel(c.Name))...)
	case types.Return:
		e.block(ReturnSequence()...)
	case nil:
		return nil, fmt.Errorf("no command to generate")
	default:
		return nil, fmt.Errorf("no code generation for %s command %T", cmd.Type(), cmd)
	}

	return e.lines, nil
}

// checkFunctionName rejects names whose bare label would collide with a
// predefined symbol or a static variable.
func checkFunctionName(name string) error {
	if !types.ValidFunctionName(name) {
		return fmt.Errorf("%w: %q cannot name a function", types.ErrSyntax, name)
	}
	return nil
}

// Bootstrap points SP at stackBase and calls entry inside a regular frame.
func (g *Generator) Bootstrap(stackBase int, entry string) []string {
	e := &emitter{}
	e.line("@%d", stackBase)
	e.line("D=A")
	e.line("@SP")
	e.line("M=D")
	e.block(CallSequence(entry, 0, g.alloc.NextReturnLabel(entry))...)
	return e.lines
}

var binaryComp = map[types.Op]string{
	types.OpAdd: "D+M",
	types.OpSub: "M-D",
	types.OpAnd: "D&M",
	types.OpOr:  "D|M",
}

var unaryComp = map[types.Op]string{
	types.OpNeg: "-M",
	types.OpNot: "!M",
}

func (g *Generator) arithmetic(e *emitter, op types.Op) error {
	if op.Comparison() {
		e.block(Comparison(op, g.alloc.NextComparisonID())...)
		return nil
	}
	if comp, ok := unaryComp[op]; ok {
		e.block("@SP", "A=M-1")
		e.line("M=%s", comp)
		return nil
	}
	if comp, ok := binaryComp[op]; ok {
		e.popD()
		e.line("A=A-1")
		e.line("M=%s", comp)
		return nil
	}
	return fmt.Errorf("no code generation for operation %s", op)
}

var comparisonJump = map[types.Op]string{
	types.OpEq: "JEQ",
	types.OpGt: "JGT",
	types.OpLt: "JLT",
}

// Comparison computes x-y for the two top cells, branches to the true
// label when the jump condition holds and otherwise falls through into
// the false branch, which jumps over the true branch to the end label.
// Exactly one of the two branches writes the result over x.
func Comparison(op types.Op, id int) []string {
	jump, ok := comparisonJump[op]
	if !ok {
		panic("codegen: not a comparison: " + op.String())
	}
	trueLabel, endLabel := ComparisonLabels(id)

	e := &emitter{}
	e.popD()
	e.line("A=A-1")
	e.line("D=M-D")
	e.line("@%s", trueLabel)
	e.line("D;%s", jump)
	e.block("@SP", "A=M-1", "M=0")
	e.line("@%s", endLabel)
	e.line("0;JMP")
	e.line("(%s)", trueLabel)
	e.block("@SP", "A=M-1", "M=-1")
	e.line("(%s)", endLabel)
	return e.lines
}

func (g *Generator) push(e *emitter, seg types.Segment, index int) error {
	switch {
	case seg == types.SegConstant:
		e.line("@%d", index)
		e.line("D=A")
	case seg == types.SegStatic:
		e.line("@%s", g.alloc.StaticSymbol(index))
		e.line("D=M")
	default:
		if base, ok := baseRegister(seg); ok {
			if index == 0 {
				e.line("@%s", base)
				e.line("A=M")
			} else {
				e.line("@%d", index)
				e.line("D=A")
				e.line("@%s", base)
				e.line("A=D+M")
			}
			e.line("D=M")
			break
		}
		addr, err := fixedAddress(seg, index)
		if err != nil {
			return err
		}
		e.line("@R%d", addr)
		e.line("D=M")
	}
	e.pushD()
	return nil
}

func (g *Generator) pop(e *emitter, seg types.Segment, index int) error {
	switch {
	case seg == types.SegConstant:
		return fmt.Errorf("%w: cannot pop into constant", types.ErrUnsupportedSegment)
	case seg == types.SegStatic:
		e.popD()
		e.line("@%s", g.alloc.StaticSymbol(index))
		e.line("M=D")
	default:
		if base, ok := baseRegister(seg); ok {
			if index == 0 {
				e.popD()
				e.line("@%s", base)
				e.line("A=M")
				e.line("M=D")
				return nil
			}
			// D holds address+value so the address can be recovered
			// without a scratch register.
			e.line("@%s", base)
			e.line("D=M")
			e.line("@%d", index)
			e.line("D=D+A")
			e.block("@SP", "AM=M-1", "D=D+M", "A=D-M", "M=D-A")
			return nil
		}
		addr, err := fixedAddress(seg, index)
		if err != nil {
			return err
		}
		e.popD()
		e.line("@R%d", addr)
		e.line("M=D")
	}
	return nil
}

func fixedAddress(seg types.Segment, index int) (int, error) {
	base, size, ok := fixedBase(seg)
	if !ok {
		return 0, fmt.Errorf("%w: %s", types.ErrUnsupportedSegment, seg)
	}
	if index >= size {
		return 0, fmt.Errorf("%w: %s %d (segment has %d cells)", types.ErrIndexRange, seg, index, size)
	}
	return base + index, nil
}

// CallSequence saves the caller's frame, repositions ARG and LCL, jumps
// to callee and defines returnLabel as the resume point.
func CallSequence(callee string, args int, returnLabel string) []string {
	e := &emitter{}
	e.line("@%s", returnLabel)
	e.line("D=A")
	e.pushD()
	for _, reg := range savedRegisters {
		e.line("@%s", reg)
		e.line("D=M")
		e.pushD()
	}
	e.block("@SP", "D=M")
	e.line("@%d", args+FrameSize)
	e.block("D=D-A", "@ARG", "M=D")
	e.block("@SP", "D=M", "@LCL", "M=D")
	e.line("@%s", callee)
	e.line("0;JMP")
	e.line("(%s)", returnLabel)
	return e.lines
}

// ReturnSequence collapses the current frame onto ARG, leaving the
// return value in the caller's first argument slot, restores the
// caller's registers and resumes at the saved return address.
func ReturnSequence() []string {
	e := &emitter{}
	e.block("@LCL", "D=M")
	e.line("@%s", frameReg)
	e.line("M=D")
	// The return address must be read before *ARG is overwritten: with
	// zero arguments the two share a cell.
	e.line("@%d", FrameSize)
	e.block("A=D-A", "D=M")
	e.line("@%s", returnReg)
	e.line("M=D")
	e.popD()
	e.block("@ARG", "A=M", "M=D")
	e.block("@ARG", "D=M+1", "@SP", "M=D")
	for i := len(savedRegisters) - 1; i >= 0; i-- {
		e.line("@%s", frameReg)
		e.block("AM=M-1", "D=M")
		e.line("@%s", savedRegisters[i])
		e.line("M=D")
	}
	e.line("@%s", returnReg)
	e.block("A=M", "0;JMP")
	return e.lines
}

// Listing joins assembly lines into a document with a trailing newline.
func Listing(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
