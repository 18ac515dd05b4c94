package lexer

import "github.com/philipwilsonTHG/psh/token"

// recognizeProcessSub matches `<(` / `>(` (spec §4.4 process substitution,
// §6.1 ProcessSubIn/ProcessSubOut). Parenthesis depth is tracked to find
// the matching `)`, exactly as for `$(...)` (spec §4.1 "Arbitrary
// nesting"); the captured Value is the raw, not-yet-parsed inner command.
func (l *Lexer) recognizeProcessSub() (token.Token, bool) {
	b := l.peekByte()
	if (b != '<' && b != '>') || l.peekAt(1) != '(' {
		return token.Token{}, false
	}
	kind := token.ProcessSubIn
	if b == '>' {
		kind = token.ProcessSubOut
	}
	start := l.posNow()
	l.advance() // < or >
	l.advance() // (
	inner, ok := l.captureBalanced('(', ')')
	if !ok {
		return token.Token{Kind: token.ILLEGAL}, false
	}
	return token.Token{Kind: kind, Value: inner, Position: start, End: l.posNow()}, true
}

// captureBalanced consumes input up to (and including) the matching close
// paren/brace, honoring nested quotes so an unbalanced paren inside a
// quoted string doesn't confuse depth tracking. Returns the text between
// open and close (exclusive of both), and whether a matching close was
// found before EOF.
func (l *Lexer) captureBalanced(open, close byte) (string, bool) {
	depth := 1
	start := l.pos
	inSingle, inDouble := false, false
	for l.pos < len(l.input) {
		b := l.peekByte()
		switch {
		case b == '\\' && !inSingle && l.pos+1 < len(l.input):
			l.advance()
			l.advance()
			continue
		case b == '\'' && !inDouble:
			inSingle = !inSingle
		case b == '"' && !inSingle:
			inDouble = !inDouble
		case b == open && !inSingle && !inDouble:
			depth++
		case b == close && !inSingle && !inDouble:
			depth--
			if depth == 0 {
				text := l.input[start:l.pos]
				l.advance() // consume close
				return text, true
			}
		}
		l.advance()
	}
	return "", false
}
