package translator

import "fmt"

// SourceError locates a parse or generation failure. Line is 1-based;
// zero means the error concerns the module as a whole.
type SourceError struct {
	Module string
	Line   int
	Text   string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %v", e.Module, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v (in %q)", e.Module, e.Line, e.Err, e.Text)
}

func (e *SourceError) Unwrap() error { return e.Err }
