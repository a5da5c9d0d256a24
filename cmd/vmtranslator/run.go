package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psilLang/vmtranslator/pkg/codegen"
	"github.com/psilLang/vmtranslator/pkg/hack"
)

var runFlags struct {
	steps  int
	ram    string
	debug  bool
	disasm bool
}

var runCmd = &cobra.Command{
	Use:   "run file.asm|file.hack",
	Short: "Run a Hack program on the emulator",
	Long: `Run loads Hack assembly or .hack machine code, executes it until it
halts and prints the requested RAM cells and the stack.

The program halts when it runs off the end of ROM or enters a tight
"(L) @L 0;JMP" loop.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.steps, "steps", 10_000_000, "Step limit (0 = unlimited)")
	f.StringVar(&runFlags.ram, "ram", "0:5", "RAM cells to print, as lo:hi (half-open)")
	f.BoolVar(&runFlags.debug, "debug", false, "Trace every instruction")
	f.BoolVar(&runFlags.disasm, "disasm", false, "Disassemble instead of run")
	rootCmd.AddCommand(runCmd)
}

func load(path string) ([]uint16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".hack" {
		return hack.DecodeText(string(data))
	}
	return hack.Assemble(string(data))
}

func run(w io.Writer, path string) error {
	first, last, err := parseRange(runFlags.ram)
	if err != nil {
		return err
	}
	code, err := load(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if runFlags.disasm {
		fmt.Fprint(w, hack.Disassemble(code))
		return nil
	}

	cpu := hack.New()
	cpu.Debug = runFlags.debug
	cpu.Output = w
	if runFlags.steps > 0 {
		cpu.MaxGas = runFlags.steps
		cpu.Gas = runFlags.steps
	}
	cpu.Load(code)

	err = cpu.Run()
	slog.Debug("run finished", "program", path, "steps", cpu.Steps, "halted", cpu.Halted)

	for addr := first; addr < last; addr++ {
		fmt.Fprintf(w, "RAM[%d] = %d\n", addr, cpu.Peek(addr))
	}
	fmt.Fprintln(w, "Stack:", cpu.Stack(codegen.StackBase))
	return err
}

// parseRange parses "lo:hi" or a single address "n".
func parseRange(s string) (int, int, error) {
	loText, hiText, found := strings.Cut(s, ":")
	lo, err := strconv.Atoi(loText)
	if err != nil {
		return 0, 0, fmt.Errorf("bad RAM range %q: %w", s, err)
	}
	hi := lo + 1
	if found {
		if hi, err = strconv.Atoi(hiText); err != nil {
			return 0, 0, fmt.Errorf("bad RAM range %q: %w", s, err)
		}
	}
	if lo < 0 || hi > hack.RAMSize || lo > hi {
		return 0, 0, fmt.Errorf("bad RAM range %q", s)
	}
	return lo, hi, nil
}
