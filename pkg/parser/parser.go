// Package parser turns raw VM source lines into commands using Participle v2.
// The grammar only fixes the token shape of a line (keyword plus operands);
// classification against the command table happens in Go so that every
// malformed line maps onto a precise error kind.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/psilLang/vmtranslator/pkg/types"
)

// CommentMarker introduces a comment running to the end of the line.
const CommentMarker = "//"

// Line is the top-level AST node: an optional statement.
type Line struct {
	Statement *Statement `@@?`
}

// Statement: keyword operand*
type Statement struct {
	Keyword  string     `@Word`
	Operands []*Operand `@@*`
}

// Operand: number | word
type Operand struct {
	Number *string `  @Number`
	Word   *string `| @Word`
}

func (o *Operand) String() string {
	if o.Number != nil {
		return *o.Number
	}
	if o.Word != nil {
		return *o.Word
	}
	return ""
}

var vmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "Number", Pattern: `-?[0-9]+`},
	// Hyphens are accepted here so "if-goto" lexes as one word; symbol
	// operands are validated separately.
	{Name: "Word", Pattern: `[a-zA-Z_.:$][a-zA-Z0-9_.:$-]*`},
})

// Parser is the VM line parser
var Parser = participle.MustBuild[Line](
	participle.Lexer(vmLexer),
	participle.Elide("Whitespace", "Comment"),
)

// StripComment removes a trailing comment and surrounding whitespace.
func StripComment(text string) string {
	if i := strings.Index(text, CommentMarker); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// ParseLine parses one raw source line. Blank and comment-only lines
// yield a nil Command and a nil error.
func ParseLine(text string) (types.Command, error) {
	code := StripComment(text)
	if code == "" {
		return nil, nil
	}

	ast, err := Parser.ParseString("", code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSyntax, err)
	}
	if ast.Statement == nil {
		return nil, nil
	}
	return ast.Statement.Command()
}

// Command classifies the statement against the command table.
func (s *Statement) Command() (types.Command, error) {
	switch s.Keyword {
	case "push", "pop":
		if err := s.arity(2); err != nil {
			return nil, err
		}
		seg, err := segmentOperand(s.Operands[0])
		if err != nil {
			return nil, err
		}
		idx, err := indexOperand(s.Operands[1])
		if err != nil {
			return nil, err
		}
		if s.Keyword == "push" {
			return types.Push{Segment: seg, Index: idx}, nil
		}
		return types.Pop{Segment: seg, Index: idx}, nil

	case "label", "goto", "if-goto":
		if err := s.arity(1); err != nil {
			return nil, err
		}
		name, err := symbolOperand(s.Operands[0])
		if err != nil {
			return nil, err
		}
		switch s.Keyword {
		case "label":
			return types.Label{Name: name}, nil
		case "goto":
			return types.Goto{Label: name}, nil
		default:
			return types.IfGoto{Label: name}, nil
		}

	case "function", "call":
		if err := s.arity(2); err != nil {
			return nil, err
		}
		name, err := functionOperand(s.Operands[0])
		if err != nil {
			return nil, err
		}
		n, err := indexOperand(s.Operands[1])
		if err != nil {
			return nil, err
		}
		if s.Keyword == "function" {
			return types.Function{Name: name, Locals: n}, nil
		}
		return types.Call{Name: name, Args: n}, nil

	case "return":
		if err := s.arity(0); err != nil {
			return nil, err
		}
		return types.Return{}, nil
	}

	if op, ok := types.LookupOp(s.Keyword); ok {
		if err := s.arity(0); err != nil {
			return nil, err
		}
		return types.Arithmetic{Op: op}, nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", types.ErrSyntax, s.Keyword)
}

func (s *Statement) arity(n int) error {
	if len(s.Operands) != n {
		return fmt.Errorf("%w: %s expects %d operand(s), got %d",
			types.ErrSyntax, s.Keyword, n, len(s.Operands))
	}
	return nil
}

func segmentOperand(o *Operand) (types.Segment, error) {
	if o.Word == nil {
		return 0, fmt.Errorf("%w: expected segment name, got %q", types.ErrSyntax, o)
	}
	seg, ok := types.LookupSegment(*o.Word)
	if !ok {
		return 0, fmt.Errorf("%w: %q", types.ErrUnsupportedSegment, *o.Word)
	}
	return seg, nil
}

func indexOperand(o *Operand) (int, error) {
	if o.Number == nil {
		return 0, fmt.Errorf("%w: expected integer, got %q", types.ErrSyntax, o)
	}
	n, err := strconv.Atoi(*o.Number)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not representable", types.ErrIndexRange, *o.Number)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative operand %d", types.ErrSyntax, n)
	}
	if n > types.MaxIndex {
		return 0, fmt.Errorf("%w: %d exceeds %d", types.ErrIndexRange, n, types.MaxIndex)
	}
	return n, nil
}

func symbolOperand(o *Operand) (string, error) {
	if o.Word == nil || !types.ValidSymbol(*o.Word) {
		return "", fmt.Errorf("%w: invalid symbol %q", types.ErrSyntax, o)
	}
	return *o.Word, nil
}

func functionOperand(o *Operand) (string, error) {
	name, err := symbolOperand(o)
	if err != nil {
		return "", err
	}
	if !types.ValidFunctionName(name) {
		return "", fmt.Errorf("%w: %q cannot name a function (reserved or static-shaped)", types.ErrSyntax, name)
	}
	return name, nil
}
