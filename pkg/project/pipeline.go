package project

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"

	"github.com/psilLang/vmtranslator/pkg/translator"
)

// Pipeline reads every module of Source, translates the program and
// writes the listing to Sink. Every reader and writer it opens is closed
// before Run returns, on success or failure. Nothing is written to Sink
// unless translation succeeds.
type Pipeline struct {
	Source  Source
	Sink    Sink
	Log     *slog.Logger
	Options []translator.Option
}

// Result summarises a successful run.
type Result struct {
	Program string
	Modules int
	Lines   int
}

// Load reads all modules of src in order.
func Load(src Source) ([]translator.Module, error) {
	names, err := src.Modules()
	if err != nil {
		return nil, fmt.Errorf("listing modules: %w", err)
	}

	modules := make([]translator.Module, 0, len(names))
	for _, name := range names {
		m, err := loadModule(src, name)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, nil
}

func loadModule(src Source, name string) (translator.Module, error) {
	r, err := src.Open(name)
	if err != nil {
		return translator.Module{}, fmt.Errorf("reading %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return translator.Module{}, fmt.Errorf("reading %s: %w", name, err)
	}
	return translator.NewModule(name, string(data)), nil
}

// Run executes the pipeline
func (p *Pipeline) Run() (Result, error) {
	log := p.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	modules, err := Load(p.Source)
	if err != nil {
		return Result{}, err
	}
	log.Debug("modules loaded", "program", p.Source.Name(), "count", len(modules))

	opts := append([]translator.Option{translator.WithLogger(log)}, p.Options...)
	lines, err := translator.Translate(p.Source.Name(), modules, opts...)
	if err != nil {
		return Result{}, err
	}

	if err := write(p.Sink, lines); err != nil {
		return Result{}, fmt.Errorf("writing output: %w", err)
	}

	res := Result{Program: p.Source.Name(), Modules: len(modules), Lines: len(lines)}
	log.Info("translated", "program", res.Program, "modules", res.Modules, "lines", res.Lines)
	return res, nil
}

func write(sink Sink, lines []string) (err error) {
	w, err := sink.Create()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.WriteString(l); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
