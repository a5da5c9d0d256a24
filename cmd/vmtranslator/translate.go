package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/psilLang/vmtranslator/pkg/project"
	"github.com/psilLang/vmtranslator/pkg/translator"
)

var translateFlags struct {
	program  programFlags
	output   string
	annotate bool
	parallel bool
}

var translateCmd = &cobra.Command{
	Use:   "translate path",
	Short: "Translate a .vm file or a directory of .vm files",
	Long: `Translate reads the VM modules at path and writes one Hack assembly file.

For a file Foo.vm the output goes to Foo.asm next to it. For a directory
Foo/ it goes to Foo/Foo.asm. A vmproject.yaml in the directory may set
entry, modules (translation order), bootstrap, stackBase and annotate;
flags given on the command line take precedence.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return translate(cmd, args[0])
	},
}

func init() {
	translateFlags.program.register(translateCmd)
	f := translateCmd.Flags()
	f.StringVarP(&translateFlags.output, "output", "o", "", "Output .asm path")
	f.BoolVar(&translateFlags.annotate, "annotate", true, "Precede each command's code with a source comment")
	f.BoolVar(&translateFlags.parallel, "parallel", false, "Translate modules concurrently")
	rootCmd.AddCommand(translateCmd)
}

func translate(cmd *cobra.Command, path string) error {
	src, programOpts, err := openProgram(cmd, path, &translateFlags.program)
	if err != nil {
		return err
	}

	opts := []translator.Option{translator.WithAnnotations(translateFlags.annotate)}
	opts = append(opts, programOpts...)
	opts = append(opts, translator.WithParallel(translateFlags.parallel))
	if cmd.Flags().Changed("annotate") {
		opts = append(opts, translator.WithAnnotations(translateFlags.annotate))
	}

	out := translateFlags.output
	if out == "" {
		out = src.DefaultOutput()
	}

	p := &project.Pipeline{
		Source:  src,
		Sink:    project.FileSink{Path: out},
		Log:     slog.Default(),
		Options: opts,
	}
	res, err := p.Run()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d modules, %d lines -> %s\n", res.Program, res.Modules, res.Lines, out)
	return nil
}
