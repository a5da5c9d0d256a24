package hack

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrGasExhausted is returned by Run when the step budget runs out.
	ErrGasExhausted = errors.New("gas exhausted")
	// ErrAddress is returned when M is accessed with A outside RAM.
	ErrAddress = errors.New("address out of range")
	// ErrIllegal is returned for words that are not valid instructions.
	ErrIllegal = errors.New("illegal instruction")
)

// CPU is the Hack computer: instruction ROM, data RAM, A, D and PC.
type CPU struct {
	RAM [RAMSize]int16
	ROM []uint16

	A  int16
	D  int16
	PC int

	// Execution limits
	Gas    int
	MaxGas int
	Steps  int

	// Output receives the trace in debug mode
	Output io.Writer

	// Debug mode
	Debug bool

	// Halted is set when the program runs off the end of ROM or enters a
	// tight "(L) @L 0;JMP" loop.
	Halted bool
}

// New creates a new CPU
func New() *CPU {
	return &CPU{
		ROM:    make([]uint16, 0),
		Output: os.Stdout,
	}
}

// Reset clears registers and the halt state, keeps RAM and ROM
func (c *CPU) Reset() {
	c.A = 0
	c.D = 0
	c.PC = 0
	c.Steps = 0
	c.Halted = false
	if c.MaxGas > 0 {
		c.Gas = c.MaxGas
	}
}

// Load loads a program into ROM
func (c *CPU) Load(code []uint16) {
	c.ROM = code
	c.PC = 0
	c.Halted = false
}

// Peek reads a RAM cell
func (c *CPU) Peek(addr int) int16 {
	return c.RAM[addr]
}

// Poke writes a RAM cell
func (c *CPU) Poke(addr int, v int16) {
	c.RAM[addr] = v
}

// Stack returns the cells between base and the stack pointer in RAM[0]
func (c *CPU) Stack(base int) []int16 {
	sp := int(c.RAM[0])
	if sp < base || sp > RAMSize {
		return nil
	}
	out := make([]int16, sp-base)
	copy(out, c.RAM[base:sp])
	return out
}

// Step executes one instruction
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}
	if c.PC < 0 || c.PC >= len(c.ROM) {
		c.Halted = true
		return nil
	}

	w := c.ROM[c.PC]
	if c.Debug {
		fmt.Fprintf(c.Output, "%04X: %-12s A=%d D=%d\n", c.PC, DisassembleWord(w), c.A, c.D)
	}
	c.Steps++

	if IsAInstruction(w) {
		c.A = int16(AValue(w))
		c.PC++
		return nil
	}
	if w&cPrefix != cPrefix {
		return fmt.Errorf("%w %04X at %d", ErrIllegal, w, c.PC)
	}

	addr := int(uint16(c.A))
	y := c.A
	if w&aBit != 0 {
		if addr >= RAMSize {
			return fmt.Errorf("%w: read M at %d (pc %d)", ErrAddress, addr, c.PC)
		}
		y = c.RAM[addr]
	}
	out := alu(c.D, y, (w>>6)&0x3F)

	target := addr
	if d := (w >> 3) & 7; d != 0 {
		if d&1 != 0 {
			if addr >= RAMSize {
				return fmt.Errorf("%w: write M at %d (pc %d)", ErrAddress, addr, c.PC)
			}
			c.RAM[addr] = out
		}
		if d&2 != 0 {
			c.D = out
		}
		if d&4 != 0 {
			c.A = out
		}
	}

	j := w & 7
	taken := (j&4 != 0 && out < 0) || (j&2 != 0 && out == 0) || (j&1 != 0 && out > 0)
	if !taken {
		c.PC++
		return nil
	}

	if j == 7 && target == c.PC-1 && c.PC > 0 && c.ROM[c.PC-1] == uint16(target) {
		c.Halted = true
		return nil
	}
	c.PC = target
	return nil
}

// Run executes until the CPU halts or the gas budget is spent
func (c *CPU) Run() error {
	for !c.Halted {
		if c.MaxGas > 0 {
			if c.Gas <= 0 {
				return fmt.Errorf("%w after %d steps (pc %d)", ErrGasExhausted, c.Steps, c.PC)
			}
			c.Gas--
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// RunSource assembles source, loads it and runs it with the given gas.
// setup, if non-nil, runs after loading so callers can seed RAM.
func RunSource(source string, gas int, setup func(*CPU)) (*CPU, error) {
	code, err := Assemble(source)
	if err != nil {
		return nil, fmt.Errorf("assembly: %w", err)
	}
	c := New()
	c.Output = io.Discard
	c.MaxGas = gas
	c.Gas = gas
	c.Load(code)
	if setup != nil {
		setup(c)
	}
	if err := c.Run(); err != nil {
		return c, err
	}
	return c, nil
}
