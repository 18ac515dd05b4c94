package lexer

import (
	"strconv"
	"strings"

	"github.com/philipwilsonTHG/psh/token"
)

// lexSingleQuote scans '...'; single quotes are literal: no escapes, no
// expansions, not even \' (spec §4.1 quoting). To close, a literal quote
// char must appear.
func (l *Lexer) lexSingleQuote() error {
	start := l.posNow()
	l.advance() // opening '
	l.ctx.InSingleQuote = true
	contentStart := l.pos
	for {
		if l.pos >= len(l.input) {
			return &Error{Kind: UnclosedQuote, Position: start, Detail: "'"}
		}
		if l.peekByte() == '\'' {
			break
		}
		l.advance()
	}
	content := l.input[contentStart:l.pos]
	l.advance() // closing '
	l.ctx.InSingleQuote = false
	l.emitQ(token.String, content, token.SingleQuote, start, l.posNow())
	l.afterToken(token.String)
	return nil
}

// lexDoubleQuote scans "...", splitting the content into literal runs and
// embedded expansions (spec §4.1 quoting: $VAR, ${…}, $(…), `…`, $((…))
// expand; backslash escapes only $ ` " \ and newline; other backslashes
// are literal).
func (l *Lexer) lexDoubleQuote() error {
	start := l.posNow()
	l.advance() // opening "
	l.ctx.InDoubleQuote = true
	var lit strings.Builder
	litStart := l.posNow()
	flush := func() {
		if lit.Len() > 0 {
			l.emitQ(token.String, lit.String(), token.DoubleQuote, litStart, l.posNow())
			lit.Reset()
		}
	}
	for {
		if l.pos >= len(l.input) {
			return &Error{Kind: UnclosedQuote, Position: start, Detail: `"`}
		}
		b := l.peekByte()
		switch {
		case b == '"':
			l.advance()
			flush()
			l.ctx.InDoubleQuote = false
			l.afterToken(token.String)
			return nil
		case b == '\\' && isDoubleQuoteEscapable(l.peekAt(1)):
			l.advance()
			lit.WriteByte(l.advance())
		case b == '`':
			flush()
			if err := l.lexBacktickSub(token.DoubleQuote); err != nil {
				return err
			}
			litStart = l.posNow()
		case b == '$':
			flush()
			if err := l.lexDollarExpansion(token.DoubleQuote); err != nil {
				return err
			}
			litStart = l.posNow()
		default:
			lit.WriteByte(l.advance())
		}
	}
}

func isDoubleQuoteEscapable(b byte) bool {
	switch b {
	case '$', '`', '"', '\\', '\n':
		return true
	}
	return false
}

// lexBacktickSub scans `...`, treating \` \\ and \$ as escapes within, per
// POSIX backtick rules; the captured Value is the raw inner command text.
func (l *Lexer) lexBacktickSub(q token.QuoteType) error {
	start := l.posNow()
	l.advance() // opening `
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return &Error{Kind: UnclosedExpansion, Position: start, Detail: "`"}
		}
		b := l.peekByte()
		if b == '`' {
			l.advance()
			break
		}
		if b == '\\' && (l.peekAt(1) == '`' || l.peekAt(1) == '\\' || l.peekAt(1) == '$') {
			l.advance()
			sb.WriteByte(l.advance())
			continue
		}
		sb.WriteByte(l.advance())
	}
	l.emitQ(token.CommandSub, sb.String(), q, start, l.posNow())
	l.afterToken(token.CommandSub)
	return nil
}

// lexAnsiCQuote handles $'...', decoding C-style escapes immediately
// (spec §4.1: \n \t \xHH \NNN \uHHHH \UHHHHHHHH; no variable/command
// expansion).
func (l *Lexer) lexAnsiCQuote() error {
	start := l.posNow()
	l.advance() // '$'
	l.advance() // '\''
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return &Error{Kind: UnclosedQuote, Position: start, Detail: "$'"}
		}
		b := l.peekByte()
		if b == '\'' {
			l.advance()
			break
		}
		if b == '\\' {
			l.advance()
			r, err := l.decodeAnsiEscape()
			if err != nil {
				return err
			}
			sb.WriteString(r)
			continue
		}
		sb.WriteByte(l.advance())
	}
	l.emitQ(token.String, sb.String(), token.AnsiCQuote, start, l.posNow())
	l.afterToken(token.String)
	return nil
}

func (l *Lexer) decodeAnsiEscape() (string, error) {
	if l.pos >= len(l.input) {
		return "", &Error{Kind: InvalidEscape, Position: l.posNow()}
	}
	b := l.advance()
	switch b {
	case 'n':
		return "\n", nil
	case 't':
		return "\t", nil
	case 'r':
		return "\r", nil
	case 'a':
		return "\a", nil
	case 'b':
		return "\b", nil
	case 'f':
		return "\f", nil
	case 'v':
		return "\v", nil
	case '\\':
		return "\\", nil
	case '\'':
		return "'", nil
	case '"':
		return "\"", nil
	case 'e', 'E':
		return "\x1b", nil
	case 'x':
		return l.decodeHexEscape(2)
	case 'u':
		return l.decodeHexEscape(4)
	case 'U':
		return l.decodeHexEscape(8)
	default:
		if b >= '0' && b <= '7' {
			digits := string(b)
			for i := 0; i < 2 && l.peekByte() >= '0' && l.peekByte() <= '7'; i++ {
				digits += string(l.advance())
			}
			n, _ := strconv.ParseInt(digits, 8, 32)
			return string(rune(n)), nil
		}
		return string(b), nil
	}
}

func (l *Lexer) decodeHexEscape(maxDigits int) (string, error) {
	digits := ""
	for i := 0; i < maxDigits && isHexDigit(l.peekByte()); i++ {
		digits += string(l.advance())
	}
	if digits == "" {
		return "", &Error{Kind: InvalidEscape, Position: l.posNow()}
	}
	n, err := strconv.ParseInt(digits, 16, 32)
	if err != nil {
		return "", &Error{Kind: InvalidEscape, Position: l.posNow()}
	}
	return string(rune(n)), nil
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
