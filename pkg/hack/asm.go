package hack

import (
	"fmt"
	"strconv"
	"strings"
)

// Assembler converts Hack assembly text to machine words
type Assembler struct {
	code    []uint16
	symbols map[string]int
	nextVar int
}

// NewAssembler creates a new assembler
func NewAssembler() *Assembler {
	return &Assembler{
		code:    make([]uint16, 0, 256),
		symbols: make(map[string]int),
		nextVar: VarBase,
	}
}

type sourceLine struct {
	num  int
	text string
}

// Assemble converts assembly text to machine words.
// Labels are resolved in a first pass; unknown @symbols become variables
// allocated upwards from RAM[16] in order of first use.
func (a *Assembler) Assemble(source string) ([]uint16, error) {
	a.code = a.code[:0]
	a.symbols = make(map[string]int, len(predefined))
	for name, addr := range predefined {
		a.symbols[name] = addr
	}
	a.nextVar = VarBase

	var lines []sourceLine
	pc := 0
	for i, raw := range strings.Split(source, "\n") {
		line := clean(raw)
		if line == "" {
			continue
		}

		// Label definition
		if strings.HasPrefix(line, "(") {
			if !strings.HasSuffix(line, ")") {
				return nil, fmt.Errorf("line %d: unterminated label %q", i+1, line)
			}
			label := line[1 : len(line)-1]
			if !validSymbol(label) {
				return nil, fmt.Errorf("line %d: invalid label %q", i+1, label)
			}
			if _, dup := a.symbols[label]; dup {
				return nil, fmt.Errorf("line %d: duplicate label %q", i+1, label)
			}
			a.symbols[label] = pc
			continue
		}

		lines = append(lines, sourceLine{num: i + 1, text: line})
		pc++
	}

	if pc > RAMSize {
		return nil, fmt.Errorf("program too large: %d instructions", pc)
	}

	for _, l := range lines {
		w, err := a.assembleLine(l.text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.num, err)
		}
		a.code = append(a.code, w)
	}

	return a.code, nil
}

// clean strips comments and all whitespace
func clean(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	return strings.Join(strings.Fields(line), "")
}

func (a *Assembler) assembleLine(line string) (uint16, error) {
	if strings.HasPrefix(line, "@") {
		return a.assembleA(line[1:])
	}

	dest, rest := "", line
	if idx := strings.Index(rest, "="); idx >= 0 {
		dest, rest = rest[:idx], rest[idx+1:]
	}
	comp, jump := rest, ""
	if idx := strings.Index(rest, ";"); idx >= 0 {
		comp, jump = rest[:idx], rest[idx+1:]
	}

	w, ok := Encode(dest, comp, jump)
	if !ok {
		return 0, fmt.Errorf("invalid instruction %q", line)
	}
	return w, nil
}

func (a *Assembler) assembleA(operand string) (uint16, error) {
	if operand == "" {
		return 0, fmt.Errorf("@ requires a value")
	}

	if operand[0] >= '0' && operand[0] <= '9' {
		n, err := strconv.Atoi(operand)
		if err != nil || n > maxValue {
			return 0, fmt.Errorf("invalid constant: %s", operand)
		}
		return uint16(n), nil
	}

	if !validSymbol(operand) {
		return 0, fmt.Errorf("invalid symbol: %s", operand)
	}
	addr, ok := a.symbols[operand]
	if !ok {
		addr = a.nextVar
		a.symbols[operand] = addr
		a.nextVar++
	}
	return uint16(addr), nil
}

// Symbols returns the symbol table of the last assembly
func (a *Assembler) Symbols() map[string]int {
	return a.symbols
}

func validSymbol(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '.', r == '$', r == ':':
		default:
			return false
		}
	}
	return true
}

// Assemble is a convenience wrapper around a fresh Assembler
func Assemble(source string) ([]uint16, error) {
	return NewAssembler().Assemble(source)
}

// EncodeText renders machine words in the .hack text format: one
// 16-character binary string per line.
func EncodeText(code []uint16) string {
	var sb strings.Builder
	for _, w := range code {
		fmt.Fprintf(&sb, "%016b\n", w)
	}
	return sb.String()
}

// DecodeText parses the .hack text format
func DecodeText(text string) ([]uint16, error) {
	var code []uint16
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) != 16 {
			return nil, fmt.Errorf("line %d: expected 16 bits, got %d", i+1, len(line))
		}
		n, err := strconv.ParseUint(line, 2, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		code = append(code, uint16(n))
	}
	return code, nil
}

// Disassemble converts machine words back to text
func Disassemble(code []uint16) string {
	var sb strings.Builder
	for pc, w := range code {
		sb.WriteString(fmt.Sprintf("%04X: %s\n", pc, DisassembleWord(w)))
	}
	return sb.String()
}

// DisassembleWord renders a single instruction
func DisassembleWord(w uint16) string {
	if IsAInstruction(w) {
		return "@" + strconv.Itoa(AValue(w))
	}
	if w&cPrefix != cPrefix {
		return fmt.Sprintf("?%04X", w)
	}

	c := (w >> 6) & 0x7F
	comp := ""
	for name, bits := range comps {
		if bits == c {
			comp = name
			break
		}
	}
	if comp == "" {
		return fmt.Sprintf("?%04X", w)
	}

	var sb strings.Builder
	if d := (w >> 3) & 7; d != 0 {
		sb.WriteString(destName(d))
		sb.WriteByte('=')
	}
	sb.WriteString(comp)
	if j := w & 7; j != 0 {
		sb.WriteByte(';')
		sb.WriteString(jumpName(j))
	}
	return sb.String()
}

func destName(d uint16) string {
	var s string
	if d&4 != 0 {
		s += "A"
	}
	if d&1 != 0 {
		s += "M"
	}
	if d&2 != 0 {
		s += "D"
	}
	return s
}

var jumpNames = [...]string{"", "JGT", "JEQ", "JGE", "JLT", "JNE", "JLE", "JMP"}

func jumpName(j uint16) string {
	return jumpNames[j&7]
}
