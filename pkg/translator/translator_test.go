package translator_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psilLang/vmtranslator/pkg/codegen"
	"github.com/psilLang/vmtranslator/pkg/hack"
	"github.com/psilLang/vmtranslator/pkg/translator"
	"github.com/psilLang/vmtranslator/pkg/types"
)

const sysSource = `// Entry point
function Sys.init 0
push constant 10
call Main.fib 1
pop temp 0
call Counter.bump 0
call Counter.bump 0
pop temp 1
pop temp 2
call Main.touch 0
pop temp 3
label HALT
goto HALT
`

const mainSource = `function Main.fib 0
push argument 0
push constant 2
lt                     // n < 2 ?
if-goto BASE
push argument 0
push constant 1
sub
call Main.fib 1
push argument 0
push constant 2
sub
call Main.fib 1
add
return
label BASE
push argument 0
return

// static 0 here must not alias Counter's static 0
function Main.touch 0
push constant 500
pop static 0
push static 0
return
`

const counterSource = `function Counter.bump 1
push static 0
push constant 1
add
pop static 0
push static 0
return
`

func program() []translator.Module {
	return []translator.Module{
		translator.NewModule("Sys", sysSource),
		translator.NewModule("Main", mainSource),
		translator.NewModule("Counter", counterSource),
	}
}

func run(lines []string) *hack.CPU {
	cpu, err := hack.RunSource(codegen.Listing(lines), 2_000_000, nil)
	Expect(err).NotTo(HaveOccurred())
	Expect(cpu.Halted).To(BeTrue())
	return cpu
}

func labels(lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(l, "(") {
			out = append(out, l)
		}
	}
	return out
}

var _ = Describe("Translator", func() {
	Context("with a multi-module program", func() {
		var out []string

		BeforeEach(func() {
			var err error
			out, err = translator.Translate("Fib", program())
			Expect(err).NotTo(HaveOccurred())
		})

		It("should start with the bootstrap prologue", func() {
			Expect(out[:4]).To(Equal([]string{"@256", "D=A", "@SP", "M=D"}))
			Expect(out).To(ContainElement("@Sys.init"))
			Expect(out).To(ContainElement("(Sys.init$ret$0)"))
		})

		It("should emit every label once", func() {
			ls := labels(out)
			seen := make(map[string]bool)
			for _, l := range ls {
				Expect(seen).NotTo(HaveKey(l))
				seen[l] = true
			}
		})

		It("should run recursive calls to completion", func() {
			cpu := run(out)
			Expect(cpu.Peek(5)).To(Equal(int16(55)))
		})

		It("should keep statics of different modules apart", func() {
			cpu := run(out)
			Expect(cpu.Peek(6)).To(Equal(int16(2)))
			Expect(cpu.Peek(7)).To(Equal(int16(1)))
			Expect(cpu.Peek(8)).To(Equal(int16(500)))
		})

		It("should produce identical output in parallel mode", func() {
			par, err := translator.Translate("Fib", program(), translator.WithParallel(true))
			Expect(err).NotTo(HaveOccurred())
			Expect(par).To(Equal(out))
		})
	})

	Context("with a single module", func() {
		It("should omit the bootstrap", func() {
			out, err := translator.Translate("Simple", []translator.Module{
				translator.NewModule("Simple", "push constant 7\npush constant 8\nadd\n"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0]).To(Equal("@7"))
			Expect(out).NotTo(ContainElement("@Sys.init"))

			cpu, err := hack.RunSource(codegen.Listing(out), 1000, func(c *hack.CPU) {
				c.Poke(0, 256)
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(cpu.Stack(256)).To(Equal([]int16{15}))
		})

		It("should bootstrap when asked to", func() {
			out, err := translator.Translate("One", []translator.Module{
				translator.NewModule("Sys", "function Sys.init 0\nlabel L\ngoto L\n"),
			}, translator.WithBootstrap(translator.BootstrapAlways))
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0]).To(Equal("@256"))
		})

		It("should honour entry and stack base options", func() {
			out, err := translator.Translate("P", program(),
				translator.WithEntry("Main.start"),
				translator.WithStackBase(300))
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0]).To(Equal("@300"))
			Expect(out).To(ContainElement("@Main.start"))
		})

		It("should report its bootstrap plan", func() {
			base, entry, ok := translator.New(translator.WithEntry("Main.main")).Bootstrap(2)
			Expect(ok).To(BeTrue())
			Expect(base).To(Equal(codegen.StackBase))
			Expect(entry).To(Equal("Main.main"))

			_, _, ok = translator.New().Bootstrap(1)
			Expect(ok).To(BeFalse())
			_, _, ok = translator.New(translator.WithBootstrap(translator.BootstrapAlways)).Bootstrap(1)
			Expect(ok).To(BeTrue())
		})

		It("should skip the bootstrap in never mode", func() {
			out, err := translator.Translate("Fib", program(),
				translator.WithBootstrap(translator.BootstrapNever))
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0]).To(Equal("(Sys.init)"))
		})
	})

	Context("with annotations", func() {
		It("should precede each command with its source position", func() {
			out, err := translator.Translate("Fib", program(), translator.WithAnnotations(true))
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0]).To(Equal("// program Fib"))
			Expect(out).To(ContainElement("// Main[4]: lt"))
			Expect(out).To(ContainElement("// Sys[2]: function Sys.init 0"))

			_, err = hack.Assemble(codegen.Listing(out))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("with malformed input", func() {
		It("should report a misspelled keyword with its position", func() {
			mods := program()
			mods[1] = translator.NewModule("Main", "push constant 1\n\npshu constant 1\nadd\n")
			out, err := translator.Translate("Fib", mods)
			Expect(out).To(BeNil())
			Expect(errors.Is(err, types.ErrSyntax)).To(BeTrue())

			var serr *translator.SourceError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Module).To(Equal("Main"))
			Expect(serr.Line).To(Equal(3))
			Expect(serr.Text).To(Equal("pshu constant 1"))
			Expect(err.Error()).To(ContainSubstring("Main:3"))
		})

		It("should report unsupported segments", func() {
			_, err := translator.Translate("X", []translator.Module{
				translator.NewModule("X", "push heap 0"),
			})
			Expect(errors.Is(err, types.ErrUnsupportedSegment)).To(BeTrue())
		})

		It("should report the earliest error of a module first", func() {
			src := "push constant 1\npop constant 0\nbogus\n"
			for _, parallel := range []bool{false, true} {
				_, err := translator.Translate("X", []translator.Module{
					translator.NewModule("X", src),
				}, translator.WithParallel(parallel))
				var serr *translator.SourceError
				Expect(errors.As(err, &serr)).To(BeTrue())
				Expect(serr.Line).To(Equal(2))
				Expect(errors.Is(err, types.ErrUnsupportedSegment)).To(BeTrue())
			}
		})

		It("should report the first failing module in parallel mode", func() {
			mods := []translator.Module{
				translator.NewModule("A", "add"),
				translator.NewModule("B", "push temp 9"),
				translator.NewModule("C", "nope"),
			}
			_, err := translator.Translate("P", mods, translator.WithParallel(true))
			var serr *translator.SourceError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Module).To(Equal("B"))
			Expect(errors.Is(err, types.ErrIndexRange)).To(BeTrue())
		})

		It("should reject bad module lists", func() {
			_, err := translator.Translate("P", nil)
			Expect(err).To(HaveOccurred())

			_, err = translator.Translate("P", []translator.Module{
				translator.NewModule("A", ""),
				translator.NewModule("A", ""),
			})
			Expect(err).To(MatchError(ContainSubstring("duplicate module")))

			_, err = translator.Translate("P", []translator.Module{
				translator.NewModule("my-module", ""),
			})
			Expect(errors.Is(err, types.ErrSyntax)).To(BeTrue())
		})

		It("should reject a stack base the bootstrap cannot load", func() {
			for _, base := range []int{-1, 70000} {
				out, err := translator.Translate("Fib", program(), translator.WithStackBase(base))
				Expect(out).To(BeNil())
				Expect(errors.Is(err, types.ErrIndexRange)).To(BeTrue())
			}

			_, err := translator.Translate("Fib", program(),
				translator.WithStackBase(70000),
				translator.WithBootstrap(translator.BootstrapNever))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject entry and function names that clash with assembler symbols", func() {
			_, err := translator.Translate("Fib", program(), translator.WithEntry("SP"))
			Expect(errors.Is(err, types.ErrSyntax)).To(BeTrue())

			_, err = translator.Translate("S", []translator.Module{
				translator.NewModule("Sys", "function Sys.0 0\npush constant 1\npop static 0\n"),
			})
			var serr *translator.SourceError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Line).To(Equal(1))
			Expect(errors.Is(err, types.ErrSyntax)).To(BeTrue())
		})

		It("should not validate call targets", func() {
			out, err := translator.Translate("P", []translator.Module{
				translator.NewModule("A", "call Nowhere.f 0"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainElement("@Nowhere.f"))
		})
	})

	It("should log one record per module", func() {
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		_, err := translator.Translate("Fib", program(), translator.WithLogger(log))
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Count(buf.String(), "module translated")).To(Equal(3))
		Expect(buf.String()).To(ContainSubstring("module=Counter"))
	})
})
