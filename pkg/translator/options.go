package translator

import (
	"fmt"
	"log/slog"

	"github.com/psilLang/vmtranslator/pkg/codegen"
)

// BootstrapMode decides whether the bootstrap prologue is emitted.
type BootstrapMode int

const (
	// BootstrapAuto emits the prologue when more than one module is translated.
	BootstrapAuto BootstrapMode = iota
	// BootstrapAlways emits the prologue regardless of module count.
	BootstrapAlways
	// BootstrapNever omits the prologue.
	BootstrapNever
)

func (m BootstrapMode) String() string {
	switch m {
	case BootstrapAuto:
		return "auto"
	case BootstrapAlways:
		return "always"
	case BootstrapNever:
		return "never"
	}
	return fmt.Sprintf("bootstrap(%d)", int(m))
}

// Applies reports whether a program of n modules gets the prologue.
func (m BootstrapMode) Applies(n int) bool {
	switch m {
	case BootstrapAlways:
		return true
	case BootstrapNever:
		return false
	}
	return n > 1
}

// ParseBootstrapMode parses "auto", "always" or "never".
func ParseBootstrapMode(s string) (BootstrapMode, error) {
	switch s {
	case "", "auto":
		return BootstrapAuto, nil
	case "always":
		return BootstrapAlways, nil
	case "never":
		return BootstrapNever, nil
	}
	return 0, fmt.Errorf("unknown bootstrap mode %q (want auto, always or never)", s)
}

// Option configures a Translator.
type Option func(*Translator)

// WithBootstrap sets the bootstrap mode.
func WithBootstrap(mode BootstrapMode) Option {
	return func(t *Translator) { t.bootstrap = mode }
}

// WithEntry sets the function the bootstrap calls.
func WithEntry(name string) Option {
	return func(t *Translator) { t.entry = name }
}

// WithStackBase sets the address the bootstrap loads into SP.
func WithStackBase(addr int) Option {
	return func(t *Translator) { t.stackBase = addr }
}

// WithAnnotations precedes each command's code with a comment naming
// its module, line and source text.
func WithAnnotations(on bool) Option {
	return func(t *Translator) { t.annotate = on }
}

// WithParallel generates modules concurrently. Output is identical to a
// sequential run.
func WithParallel(on bool) Option {
	return func(t *Translator) { t.parallel = on }
}

// WithLogger sets the logger receiving per-module debug records.
func WithLogger(log *slog.Logger) Option {
	return func(t *Translator) {
		if log != nil {
			t.log = log
		}
	}
}

func defaults() Translator {
	return Translator{
		bootstrap: BootstrapAuto,
		entry:     codegen.DefaultEntry,
		stackBase: codegen.StackBase,
		log:       slog.New(slog.DiscardHandler),
	}
}
