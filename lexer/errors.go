package lexer

import (
	"fmt"

	"github.com/philipwilsonTHG/psh/token"
)

// ErrorKind is the closed set of lex failure modes, spec §4.1/§7.
type ErrorKind int

const (
	UnclosedQuote ErrorKind = iota
	UnclosedExpansion
	UnterminatedHeredoc
	InvalidEscape
)

func (k ErrorKind) String() string {
	switch k {
	case UnclosedQuote:
		return "unclosed quote"
	case UnclosedExpansion:
		return "unclosed expansion"
	case UnterminatedHeredoc:
		return "unterminated heredoc"
	case InvalidEscape:
		return "invalid escape"
	default:
		return "lex error"
	}
}

// Error is a fatal lexing failure. All lex errors abort tokenization of the
// current input unit (spec §7 propagation policy).
type Error struct {
	Kind     ErrorKind
	Position token.Position
	Detail   string // e.g. the quote kind, the expansion kind, or the heredoc delimiter
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("psh: %s: %s at %s", e.Kind, e.Detail, e.Position)
	}
	return fmt.Sprintf("psh: %s at %s", e.Kind, e.Position)
}
