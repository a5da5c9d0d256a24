package interpreter

import (
	"fmt"
	"strings"

	"github.com/psilLang/vmtranslator/pkg/codegen"
	"github.com/psilLang/vmtranslator/pkg/parser"
	"github.com/psilLang/vmtranslator/pkg/translator"
	"github.com/psilLang/vmtranslator/pkg/types"
)

// Instr is a parsed command with its source position
type Instr struct {
	Module string
	Line   int
	Cmd    types.Command
}

// Program is the concatenated commands of all modules with resolved
// function entry points and branch labels.
type Program struct {
	Code      []Instr
	Functions map[string]int

	// labels uses the same Module$label names as the generated code
	labels map[string]int
}

// Load parses modules in order. Branch labels are scoped to their module
// and must be unique within it; function names must be unique overall.
func Load(modules []translator.Module) (*Program, error) {
	p := &Program{
		Functions: make(map[string]int),
		labels:    make(map[string]int),
	}
	alloc := codegen.NewAllocator()

	for _, m := range modules {
		alloc.SetModule(m.Name)
		for n, text := range m.Lines {
			cmd, err := parser.ParseLine(text)
			if err == nil && cmd != nil {
				err = p.define(alloc, cmd)
			}
			if err != nil {
				return nil, &translator.SourceError{Module: m.Name, Line: n + 1, Text: strings.TrimSpace(text), Err: err}
			}
			if cmd != nil {
				p.Code = append(p.Code, Instr{Module: m.Name, Line: n + 1, Cmd: cmd})
			}
		}
	}
	return p, nil
}

func (p *Program) define(alloc *codegen.Allocator, cmd types.Command) error {
	at := len(p.Code)
	switch c := cmd.(type) {
	case types.Label:
		name := alloc.BranchLabel(c.Name)
		if _, dup := p.labels[name]; dup {
			return fmt.Errorf("duplicate label %s", c.Name)
		}
		p.labels[name] = at
	case types.Function:
		if _, dup := p.Functions[c.Name]; dup {
			return fmt.Errorf("duplicate function %s", c.Name)
		}
		p.Functions[c.Name] = at
	}
	return nil
}

func (p *Program) label(module, name string) (int, error) {
	at, ok := p.labels[module+"$"+name]
	if !ok {
		return 0, fmt.Errorf("%w: label %s in %s", ErrUndefined, name, module)
	}
	return at, nil
}
