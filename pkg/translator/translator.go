// Package translator drives a translation run: it feeds every line of every
// module through the parser and the code generator, in caller order, and
// concatenates the result into one Hack assembly program.
package translator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/psilLang/vmtranslator/pkg/codegen"
	"github.com/psilLang/vmtranslator/pkg/parser"
	"github.com/psilLang/vmtranslator/pkg/types"
)

// Module is one VM source unit: a name (used for statics and branch
// labels) and its raw lines.
type Module struct {
	Name  string
	Lines []string
}

// NewModule splits source text into a Module.
func NewModule(name, source string) Module {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	return Module{Name: name, Lines: strings.Split(source, "\n")}
}

// Translator holds the options of a run. It keeps no state between runs
// and can be reused.
type Translator struct {
	bootstrap BootstrapMode
	entry     string
	stackBase int
	annotate  bool
	parallel  bool
	log       *slog.Logger
}

// New creates a Translator
func New(opts ...Option) *Translator {
	t := defaults()
	for _, opt := range opts {
		opt(&t)
	}
	return &t
}

// Translate is a convenience wrapper around New(opts...).Translate.
func Translate(program string, modules []Module, opts ...Option) ([]string, error) {
	return New(opts...).Translate(program, modules)
}

// sourceCommand is a parsed line with its position.
type sourceCommand struct {
	line int
	text string
	cmd  types.Command
}

// Translate translates modules in order into one assembly listing. The
// first parse or generation error aborts the run; no output is returned
// with it.
func (t *Translator) Translate(program string, modules []Module) ([]string, error) {
	if err := validateModules(modules); err != nil {
		return nil, err
	}
	if t.bootstrapping(len(modules)) {
		if !types.ValidFunctionName(t.entry) {
			return nil, fmt.Errorf("%w: invalid entry function %q", types.ErrSyntax, t.entry)
		}
		if t.stackBase < 0 || t.stackBase > types.MaxIndex {
			return nil, fmt.Errorf("%w: stack base %d", types.ErrIndexRange, t.stackBase)
		}
	}

	t.log.Debug("translating program",
		"program", program,
		"modules", len(modules),
		"bootstrap", t.bootstrapping(len(modules)),
		"parallel", t.parallel)

	if t.parallel {
		return t.translateParallel(program, modules)
	}

	alloc := codegen.NewAllocator()
	gen := codegen.New(alloc)

	out := t.header(program)
	if t.bootstrapping(len(modules)) {
		out = append(out, t.bootstrapCode(gen)...)
	}

	for _, m := range modules {
		cmds, parseErr := parseModule(m)
		alloc.SetModule(m.Name)
		lines, err := t.emitModule(gen, m, cmds)
		if err != nil {
			return nil, err
		}
		if parseErr != nil {
			return nil, parseErr
		}
		t.logModule(m, cmds, lines)
		out = append(out, lines...)
	}
	return out, nil
}

func (t *Translator) bootstrapping(n int) bool {
	return t.bootstrap.Applies(n)
}

// Bootstrap reports whether a program of n modules starts with the
// bootstrap prologue, and the stack base and entry function it uses.
func (t *Translator) Bootstrap(n int) (stackBase int, entry string, ok bool) {
	return t.stackBase, t.entry, t.bootstrapping(n)
}

func (t *Translator) header(program string) []string {
	if !t.annotate || program == "" {
		return nil
	}
	return []string{"// program " + program}
}

func (t *Translator) bootstrapCode(gen *codegen.Generator) []string {
	var out []string
	if t.annotate {
		out = append(out, fmt.Sprintf("// bootstrap: SP=%d, call %s 0", t.stackBase, t.entry))
	}
	return append(out, gen.Bootstrap(t.stackBase, t.entry)...)
}

func validateModules(modules []Module) error {
	if len(modules) == 0 {
		return fmt.Errorf("no modules to translate")
	}
	seen := make(map[string]bool, len(modules))
	for _, m := range modules {
		if !types.ValidSymbol(m.Name) {
			return &SourceError{Module: m.Name, Err: fmt.Errorf("%w: invalid module name", types.ErrSyntax)}
		}
		if seen[m.Name] {
			return &SourceError{Module: m.Name, Err: fmt.Errorf("%w: duplicate module name", types.ErrSyntax)}
		}
		seen[m.Name] = true
	}
	return nil
}

// parseModule parses lines up to the first malformed one. It returns the
// commands before the failure together with the error so the caller can
// still surface an earlier generation error first.
func parseModule(m Module) ([]sourceCommand, error) {
	var cmds []sourceCommand
	for i, text := range m.Lines {
		cmd, err := parser.ParseLine(text)
		if err != nil {
			return cmds, &SourceError{Module: m.Name, Line: i + 1, Text: strings.TrimSpace(text), Err: err}
		}
		if cmd == nil {
			continue
		}
		cmds = append(cmds, sourceCommand{line: i + 1, text: parser.StripComment(text), cmd: cmd})
	}
	return cmds, nil
}

// emitModule generates code for parsed commands; gen's allocator must
// already point at m.
func (t *Translator) emitModule(gen *codegen.Generator, m Module, cmds []sourceCommand) ([]string, error) {
	var out []string
	for _, sc := range cmds {
		lines, err := gen.Generate(sc.cmd)
		if err != nil {
			return nil, &SourceError{Module: m.Name, Line: sc.line, Text: sc.text, Err: err}
		}
		if t.annotate {
			out = append(out, fmt.Sprintf("// %s[%d]: %s", m.Name, sc.line, sc.text))
		}
		out = append(out, lines...)
	}
	return out, nil
}

func (t *Translator) logModule(m Module, cmds []sourceCommand, out []string) {
	t.log.Debug("module translated",
		"module", m.Name,
		"lines", len(m.Lines),
		"commands", len(cmds),
		"asm", len(out))
}
