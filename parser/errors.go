package parser

import (
	"fmt"

	"github.com/philipwilsonTHG/psh/token"
)

// ErrorKind is the closed set of parse failure modes, spec §4.2/§7.
type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota
	ExpectedToken
	InvalidFunctionName
	InvalidRedirect
	MissingDone
	MissingFi
	MissingEsac
	InvalidArithmetic
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "unexpected token"
	case ExpectedToken:
		return "expected token"
	case InvalidFunctionName:
		return "invalid function name"
	case InvalidRedirect:
		return "invalid redirect"
	case MissingDone:
		return "missing 'done'"
	case MissingFi:
		return "missing 'fi'"
	case MissingEsac:
		return "missing 'esac'"
	case InvalidArithmetic:
		return "invalid arithmetic expression"
	default:
		return "parse error"
	}
}

// Error is a single parse diagnostic: every error carries a position, the
// expected-token set, the actual token, and a stable error code (spec
// §4.2 "Error handling").
type Error struct {
	Kind     ErrorKind
	Position token.Position
	Expected []token.Kind
	Actual   token.Token
	Message  string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("psh: %s: %s at %s", e.Kind, e.Message, e.Position)
	}
	if len(e.Expected) > 0 {
		return fmt.Sprintf("psh: %s: expected %v, got %s at %s", e.Kind, e.Expected, e.Actual.Kind, e.Position)
	}
	return fmt.Sprintf("psh: %s: got %s at %s", e.Kind, e.Actual.Kind, e.Position)
}

// Mode selects the parser's error-recovery discipline (spec §4.2).
type Mode int

const (
	// Strict throws on the first error.
	Strict Mode = iota
	// Collect accumulates errors, continuing by synchronizing to the next
	// statement separator.
	Collect
	// Recover is panic-mode: skip tokens until a sync point (';', newline,
	// 'fi', 'done', 'esac', EOF).
	Recover
)
