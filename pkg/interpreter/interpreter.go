// Package interpreter executes VM programs directly, without translating
// them. It keeps the same memory map as the generated Hack code (stack,
// segment pointers, temp and call frames live in RAM), so results can be
// checked against a translated program run on the Hack emulator.
package interpreter

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/psilLang/vmtranslator/pkg/codegen"
	"github.com/psilLang/vmtranslator/pkg/hack"
	"github.com/psilLang/vmtranslator/pkg/types"
)

var (
	// ErrGasExhausted is returned by Run when the step budget runs out.
	ErrGasExhausted = errors.New("gas exhausted")
	// ErrUndefined is returned for jumps and calls to unknown symbols.
	ErrUndefined = errors.New("undefined symbol")
	// ErrAddress is returned when a segment access leaves RAM.
	ErrAddress = errors.New("address out of range")
)

// RAM register addresses
const (
	regSP   = 0
	regLCL  = 1
	regARG  = 2
	regTHIS = 3
	regTHAT = 4
)

// returnHalt is the return address pushed by Boot; returning to it halts.
const returnHalt = -1

// Interpreter is the VM execution engine
type Interpreter struct {
	// RAM uses the Hack memory map
	RAM [hack.RAMSize]int16

	// Statics maps Module.index symbols to their values
	Statics map[string]int16

	prog *Program
	PC   int

	// Gas is the computation budget (0 = unlimited)
	Gas int
	// MaxGas is the starting gas amount
	MaxGas int
	Steps  int

	// Output writer (default: os.Stdout)
	Output io.Writer

	// Debug mode traces every command
	Debug bool

	// Halted is set when execution runs off the program, returns from the
	// booted entry function or enters a "label L / goto L" loop.
	Halted bool
}

// New creates an Interpreter for prog
func New(prog *Program) *Interpreter {
	return &Interpreter{
		Statics: make(map[string]int16),
		prog:    prog,
		Output:  os.Stdout,
	}
}

// Reset clears execution state, keeps RAM and statics
func (i *Interpreter) Reset() {
	i.PC = 0
	i.Steps = 0
	i.Halted = false
	if i.MaxGas > 0 {
		i.Gas = i.MaxGas
	}
}

// Boot does what the generated bootstrap does: point SP at stackBase and
// call entry with no arguments.
func (i *Interpreter) Boot(stackBase int, entry string) error {
	i.RAM[regSP] = int16(stackBase)
	return i.call(entry, 0, returnHalt)
}

// Peek reads a RAM cell
func (i *Interpreter) Peek(addr int) int16 {
	return i.RAM[addr]
}

// Poke writes a RAM cell
func (i *Interpreter) Poke(addr int, v int16) {
	i.RAM[addr] = v
}

// Static returns the value of static index of module
func (i *Interpreter) Static(module string, index int) int16 {
	return i.Statics[codegen.StaticSymbol(module, index)]
}

// Stack returns the cells between base and SP
func (i *Interpreter) Stack(base int) []int16 {
	sp := int(i.RAM[regSP])
	if sp < base || sp > hack.RAMSize {
		return nil
	}
	out := make([]int16, sp-base)
	copy(out, i.RAM[base:sp])
	return out
}

// Run executes until the interpreter halts or the gas budget is spent
func (i *Interpreter) Run() error {
	for !i.Halted {
		if i.MaxGas > 0 {
			if i.Gas <= 0 {
				return fmt.Errorf("%w after %d steps", ErrGasExhausted, i.Steps)
			}
			i.Gas--
		}
		if err := i.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes one command
func (i *Interpreter) Step() error {
	if i.Halted {
		return nil
	}
	if i.PC < 0 || i.PC >= len(i.prog.Code) {
		i.Halted = true
		return nil
	}

	in := i.prog.Code[i.PC]
	if i.Debug {
		fmt.Fprintf(i.Output, "%s[%d] %-28s SP=%d\n", in.Module, in.Line, in.Cmd, i.RAM[regSP])
	}
	i.Steps++

	if err := i.execute(in); err != nil {
		return fmt.Errorf("%s:%d: %w", in.Module, in.Line, err)
	}
	return nil
}

func (i *Interpreter) execute(in Instr) error {
	next := i.PC + 1

	switch c := in.Cmd.(type) {
	case types.Arithmetic:
		if err := i.arithmetic(c.Op); err != nil {
			return err
		}

	case types.Push:
		v, err := i.load(in.Module, c.Segment, c.Index)
		if err != nil {
			return err
		}
		if err := i.push(v); err != nil {
			return err
		}

	case types.Pop:
		v, err := i.pop()
		if err != nil {
			return err
		}
		if err := i.store(in.Module, c.Segment, c.Index, v); err != nil {
			return err
		}

	case types.Label:

	case types.Function:
		for n := 0; n < c.Locals; n++ {
			if err := i.push(0); err != nil {
				return err
			}
		}

	case types.Goto:
		target, err := i.prog.label(in.Module, c.Label)
		if err != nil {
			return err
		}
		if target == i.PC-1 {
			i.Halted = true
			return nil
		}
		next = target

	case types.IfGoto:
		v, err := i.pop()
		if err != nil {
			return err
		}
		if v != 0 {
			if next, err = i.prog.label(in.Module, c.Label); err != nil {
				return err
			}
		}

	case types.Call:
		return i.call(c.Name, c.Args, next)

	case types.Return:
		return i.ret()

	default:
		return fmt.Errorf("%w: %s", types.ErrSyntax, in.Cmd)
	}

	i.PC = next
	return nil
}

func (i *Interpreter) arithmetic(op types.Op) error {
	y, err := i.pop()
	if err != nil {
		return err
	}
	if op.Unary() {
		if op == types.OpNeg {
			return i.push(-y)
		}
		return i.push(^y)
	}
	x, err := i.pop()
	if err != nil {
		return err
	}

	var r int16
	switch op {
	case types.OpAdd:
		r = x + y
	case types.OpSub:
		r = x - y
	case types.OpAnd:
		r = x & y
	case types.OpOr:
		r = x | y
	case types.OpEq:
		r = truth(x == y)
	case types.OpGt:
		r = truth(x > y)
	case types.OpLt:
		r = truth(x < y)
	}
	return i.push(r)
}

func truth(b bool) int16 {
	if b {
		return -1
	}
	return 0
}

// call lays out the same frame as the generated call sequence. The return
// address is a command index instead of a ROM address.
func (i *Interpreter) call(name string, args, ret int) error {
	target, ok := i.prog.Functions[name]
	if !ok {
		return fmt.Errorf("%w: function %s", ErrUndefined, name)
	}
	if err := i.push(int16(ret)); err != nil {
		return err
	}
	for _, reg := range []int{regLCL, regARG, regTHIS, regTHAT} {
		if err := i.push(i.RAM[reg]); err != nil {
			return err
		}
	}
	sp := i.RAM[regSP]
	i.RAM[regARG] = sp - int16(args) - codegen.FrameSize
	i.RAM[regLCL] = sp
	i.PC = target
	return nil
}

func (i *Interpreter) ret() error {
	frame := int(i.RAM[regLCL])
	if frame < codegen.FrameSize {
		return fmt.Errorf("%w: return without a frame", ErrAddress)
	}
	ret := int(i.RAM[frame-codegen.FrameSize])

	v, err := i.pop()
	if err != nil {
		return err
	}
	arg := int(i.RAM[regARG])
	if arg < 0 || arg >= hack.RAMSize {
		return fmt.Errorf("%w: ARG=%d", ErrAddress, arg)
	}
	i.RAM[arg] = v
	i.RAM[regSP] = int16(arg + 1)
	i.RAM[regTHAT] = i.RAM[frame-1]
	i.RAM[regTHIS] = i.RAM[frame-2]
	i.RAM[regARG] = i.RAM[frame-3]
	i.RAM[regLCL] = i.RAM[frame-4]

	if ret == returnHalt {
		i.Halted = true
		return nil
	}
	i.PC = ret
	return nil
}

func (i *Interpreter) push(v int16) error {
	sp := int(i.RAM[regSP])
	if sp < 0 || sp >= hack.RAMSize {
		return fmt.Errorf("%w: SP=%d", ErrAddress, sp)
	}
	i.RAM[sp] = v
	i.RAM[regSP]++
	return nil
}

func (i *Interpreter) pop() (int16, error) {
	sp := int(i.RAM[regSP]) - 1
	if sp < 0 || sp >= hack.RAMSize {
		return 0, fmt.Errorf("%w: SP=%d", ErrAddress, sp+1)
	}
	i.RAM[regSP]--
	return i.RAM[sp], nil
}

// address resolves a RAM-backed segment cell.
func (i *Interpreter) address(seg types.Segment, index int) (int, error) {
	var addr int
	switch seg {
	case types.SegLocal:
		addr = int(i.RAM[regLCL]) + index
	case types.SegArgument:
		addr = int(i.RAM[regARG]) + index
	case types.SegThis:
		addr = int(uint16(i.RAM[regTHIS])) + index
	case types.SegThat:
		addr = int(uint16(i.RAM[regTHAT])) + index
	case types.SegPointer:
		if index >= codegen.PointerSize {
			return 0, fmt.Errorf("%w: pointer %d", types.ErrIndexRange, index)
		}
		addr = codegen.PointerBase + index
	case types.SegTemp:
		if index >= codegen.TempSize {
			return 0, fmt.Errorf("%w: temp %d", types.ErrIndexRange, index)
		}
		addr = codegen.TempBase + index
	default:
		return 0, fmt.Errorf("%w: %s", types.ErrUnsupportedSegment, seg)
	}
	if addr < 0 || addr >= hack.RAMSize {
		return 0, fmt.Errorf("%w: %s %d at %d", ErrAddress, seg, index, addr)
	}
	return addr, nil
}

func (i *Interpreter) load(module string, seg types.Segment, index int) (int16, error) {
	switch seg {
	case types.SegConstant:
		return int16(index), nil
	case types.SegStatic:
		return i.Statics[codegen.StaticSymbol(module, index)], nil
	}
	addr, err := i.address(seg, index)
	if err != nil {
		return 0, err
	}
	return i.RAM[addr], nil
}

func (i *Interpreter) store(module string, seg types.Segment, index int, v int16) error {
	switch seg {
	case types.SegConstant:
		return fmt.Errorf("%w: pop constant", types.ErrUnsupportedSegment)
	case types.SegStatic:
		i.Statics[codegen.StaticSymbol(module, index)] = v
		return nil
	}
	addr, err := i.address(seg, index)
	if err != nil {
		return err
	}
	i.RAM[addr] = v
	return nil
}
