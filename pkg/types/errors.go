package types

import "errors"

// Error kinds. Parser and generator errors wrap one of these so callers
// can classify failures with errors.Is.
var (
	// ErrSyntax covers unknown keywords and operands of the wrong shape.
	ErrSyntax = errors.New("syntax error")

	// ErrUnsupportedSegment is returned for segments outside the fixed
	// set, and for pop into the constant segment.
	ErrUnsupportedSegment = errors.New("unsupported segment")

	// ErrIndexRange is a syntax error for an index the target cannot address.
	ErrIndexRange = &kindError{msg: "index out of range", parent: ErrSyntax}
)

type kindError struct {
	msg    string
	parent error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.parent }
