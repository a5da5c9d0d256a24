// Package project connects the translator to storage: it discovers the VM
// modules of a program, reads the optional project file and writes the
// generated assembly.
package project

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// SourceExt is the extension of VM source files.
const SourceExt = ".vm"

// Source provides the text of a program's VM modules.
type Source interface {
	// Name returns the program name
	Name() string
	// Modules returns module names in translation order
	Modules() ([]string, error)
	// Open returns the text of one module; the caller closes it
	Open(module string) (io.ReadCloser, error)
}

// Sink receives the generated assembly.
type Sink interface {
	Create() (io.WriteCloser, error)
}

// FileSource reads modules from a single .vm file or a directory of them.
type FileSource struct {
	dir     string
	name    string
	modules []string
	// Dir reports whether the source was opened from a directory
	Dir bool
}

// OpenSource inspects path and returns the source it denotes. A file
// yields one module named after its stem; a directory yields every .vm
// file in it, in lexical order.
func OpenSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if filepath.Ext(path) != SourceExt {
			return nil, fmt.Errorf("%s: not a %s file", path, SourceExt)
		}
		stem := moduleName(path)
		return &FileSource{
			dir:     filepath.Dir(path),
			name:    stem,
			modules: []string{stem},
		}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	files := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return !e.IsDir() && filepath.Ext(e.Name()) == SourceExt
	})
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: no %s files", path, SourceExt)
	}
	modules := lo.Map(files, func(e os.DirEntry, _ int) string {
		return moduleName(e.Name())
	})
	sort.Strings(modules)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{
		dir:     path,
		name:    filepath.Base(abs),
		modules: modules,
		Dir:     true,
	}, nil
}

func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Name returns the program name
func (s *FileSource) Name() string { return s.name }

// Path returns the directory holding the modules
func (s *FileSource) Path() string { return s.dir }

// Modules returns module names in translation order
func (s *FileSource) Modules() ([]string, error) {
	return s.modules, nil
}

// Reorder puts the listed modules first, in the given order, followed by
// the remaining modules in their current order.
func (s *FileSource) Reorder(first []string) error {
	if dup := lo.FindDuplicates(first); len(dup) > 0 {
		return fmt.Errorf("module %q listed twice", dup[0])
	}
	for _, m := range first {
		if !lo.Contains(s.modules, m) {
			return fmt.Errorf("module %q not found in %s", m, s.dir)
		}
	}
	s.modules = append(append([]string{}, first...), lo.Without(s.modules, first...)...)
	return nil
}

// Open returns the text of one module
func (s *FileSource) Open(module string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.dir, module+SourceExt))
}

// DefaultOutput is where the assembly of the source goes when no output
// path is given: next to a single file, or inside a directory as
// <dir>/<dir>.asm.
func (s *FileSource) DefaultOutput() string {
	return filepath.Join(s.dir, s.name+".asm")
}

// FileSink writes the assembly to a file, creating or truncating it.
type FileSink struct {
	Path string
}

// Create opens the output file
func (s FileSink) Create() (io.WriteCloser, error) {
	return os.Create(s.Path)
}
