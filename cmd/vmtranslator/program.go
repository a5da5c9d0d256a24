package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psilLang/vmtranslator/pkg/codegen"
	"github.com/psilLang/vmtranslator/pkg/project"
	"github.com/psilLang/vmtranslator/pkg/translator"
	"github.com/psilLang/vmtranslator/pkg/types"
)

// programFlags select how a program is assembled from its modules. translate
// and exec share them so both commands see the same program.
type programFlags struct {
	bootstrap string
	entry     string
	stackBase int
}

func (p *programFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&p.bootstrap, "bootstrap", "auto", "Bootstrap mode: auto, always or never")
	f.StringVar(&p.entry, "entry", codegen.DefaultEntry, "Function called by the bootstrap")
	f.IntVar(&p.stackBase, "stack-base", codegen.StackBase, "Initial stack pointer set by the bootstrap")
}

// openProgram opens the source at path, applies vmproject.yaml when path
// is a directory and returns the translator options of the program.
// Flags given on the command line take precedence over the file.
func openProgram(cmd *cobra.Command, path string, p *programFlags) (*project.FileSource, []translator.Option, error) {
	src, err := project.OpenSource(path)
	if err != nil {
		return nil, nil, err
	}

	cfg := &project.Config{}
	if src.Dir {
		if cfg, err = project.LoadConfig(src.Path()); err != nil {
			return nil, nil, err
		}
		if err := src.Reorder(cfg.Modules); err != nil {
			return nil, nil, err
		}
	}
	opts := cfg.Options()

	flags := cmd.Flags()
	if flags.Changed("bootstrap") {
		mode, err := translator.ParseBootstrapMode(p.bootstrap)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, translator.WithBootstrap(mode))
	}
	if flags.Changed("entry") {
		opts = append(opts, translator.WithEntry(p.entry))
	}
	if flags.Changed("stack-base") {
		if p.stackBase < 0 || p.stackBase > types.MaxIndex {
			return nil, nil, fmt.Errorf("stack base %d out of range", p.stackBase)
		}
		opts = append(opts, translator.WithStackBase(p.stackBase))
	}
	return src, opts, nil
}
