// vmtranslator translates stack VM programs into Hack assembly and
// assembles and runs the result.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	verbose   bool
	logFormat string
	logFile   string
)

var rootCmd = &cobra.Command{
	Use:   "vmtranslator",
	Short: "Stack VM to Hack assembly translator",
	Long: `vmtranslator turns programs written for the two-stack virtual machine
into Hack assembly. A program is either a single .vm file or a directory
of them; each file is one module and its statics are private to it.

The assemble and run commands turn the assembly into .hack machine code
and execute it on a Hack CPU emulator.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	f.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	f.StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
}

func setupLogging() error {
	var w io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			return err
		}
		atexit.Register(func() { f.Close() })
		w = f
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch logFormat {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", logFormat)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
