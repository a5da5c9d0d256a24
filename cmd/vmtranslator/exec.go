package main

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/psilLang/vmtranslator/pkg/interpreter"
	"github.com/psilLang/vmtranslator/pkg/project"
	"github.com/psilLang/vmtranslator/pkg/translator"
)

var execFlags struct {
	program programFlags
	steps   int
	ram     string
	debug   bool
}

var execCmd = &cobra.Command{
	Use:   "exec path",
	Short: "Interpret a VM program without translating it",
	Long: `Exec runs the VM modules at path on the reference interpreter, which
keeps the Hack memory map, and prints the requested RAM cells and the
stack. It is useful for checking what a translated program should do.
It reads vmproject.yaml and the program flags the same way translate does.

Statics live outside RAM and are printed separately.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd, args[0])
	},
}

func init() {
	execFlags.program.register(execCmd)
	f := execCmd.Flags()
	f.IntVar(&execFlags.steps, "steps", 1_000_000, "Step limit (0 = unlimited)")
	f.StringVar(&execFlags.ram, "ram", "0:5", "RAM cells to print, as lo:hi (half-open)")
	f.BoolVar(&execFlags.debug, "debug", false, "Trace every command")
	rootCmd.AddCommand(execCmd)
}

func execute(cmd *cobra.Command, path string) error {
	first, last, err := parseRange(execFlags.ram)
	if err != nil {
		return err
	}
	src, opts, err := openProgram(cmd, path, &execFlags.program)
	if err != nil {
		return err
	}
	modules, err := project.Load(src)
	if err != nil {
		return err
	}
	prog, err := interpreter.Load(modules)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	vm := interpreter.New(prog)
	vm.Output = w
	vm.Debug = execFlags.debug
	if execFlags.steps > 0 {
		vm.MaxGas = execFlags.steps
		vm.Gas = execFlags.steps
	}

	stackBase, entry, boot := translator.New(opts...).Bootstrap(len(modules))
	if boot {
		if err := vm.Boot(stackBase, entry); err != nil {
			return err
		}
	} else {
		vm.Poke(0, int16(stackBase))
	}

	err = vm.Run()
	slog.Debug("exec finished", "program", src.Name(), "steps", vm.Steps, "halted", vm.Halted)

	for addr := first; addr < last; addr++ {
		fmt.Fprintf(w, "RAM[%d] = %d\n", addr, vm.Peek(addr))
	}
	statics := lo.Keys(vm.Statics)
	sort.Strings(statics)
	for _, sym := range statics {
		fmt.Fprintf(w, "%s = %d\n", sym, vm.Statics[sym])
	}
	fmt.Fprintln(w, "Stack:", vm.Stack(stackBase))
	return err
}
