package lexer

import (
	"strings"

	"github.com/philipwilsonTHG/psh/token"
)

// lexHeredocDelimiter scans the delimiter word immediately following a
// `<<`/`<<-` operator and queues the heredoc for body collection once the
// current line ends (spec §4.1 step 5).
func (l *Lexer) lexHeredocDelimiter(op token.Token) error {
	l.skipSpacesOnly()
	quoted := false
	var delim string
	switch l.peekByte() {
	case '\'':
		start := l.pos
		l.advance()
		for l.pos < len(l.input) && l.peekByte() != '\'' {
			l.advance()
		}
		if l.pos >= len(l.input) {
			return &Error{Kind: UnclosedQuote, Position: l.posNow(), Detail: "'"}
		}
		delim = l.input[start+1 : l.pos]
		l.advance()
		quoted = true
	case '"':
		start := l.pos
		l.advance()
		for l.pos < len(l.input) && l.peekByte() != '"' {
			if l.peekByte() == '\\' && l.pos+1 < len(l.input) {
				l.advance()
			}
			l.advance()
		}
		if l.pos >= len(l.input) {
			return &Error{Kind: UnclosedQuote, Position: l.posNow(), Detail: `"`}
		}
		delim = l.input[start+1 : l.pos]
		l.advance()
		quoted = true
	default:
		start := l.pos
		for l.pos < len(l.input) && !isWordBoundary(l.peekByte()) {
			if l.peekByte() == '\\' && l.pos+1 < len(l.input) {
				quoted = true
				l.advance()
			}
			l.advance()
		}
		delim = strings.ReplaceAll(l.input[start:l.pos], "\\", "")
	}
	l.emitQ(token.Word, delim, token.NoQuote, l.posNow(), l.posNow())
	l.heredocQueue = append(l.heredocQueue, &pendingHeredoc{
		opPos:     op.Position,
		delimiter: delim,
		quoted:    quoted,
		strip:     op.Kind == token.HeredocStrip,
	})
	return nil
}

func (l *Lexer) skipSpacesOnly() {
	for l.pos < len(l.input) && (l.peekByte() == ' ' || l.peekByte() == '\t') {
		l.advance()
	}
}

// collectDueHeredocs runs right after a newline has just been emitted (or
// at the very start of input) and consumes queued heredoc bodies line by
// line up to a line equal to the delimiter.
func (l *Lexer) collectDueHeredocs() error {
	if len(l.heredocQueue) == 0 {
		return nil
	}
	if len(l.tokens) > 0 && l.tokens[len(l.tokens)-1].Kind != token.Newline {
		return nil
	}
	queue := l.heredocQueue
	l.heredocQueue = nil
	for _, hd := range queue {
		var lines []string
		for {
			if l.pos >= len(l.input) {
				return &Error{Kind: UnterminatedHeredoc, Position: l.posNow(), Detail: hd.delimiter}
			}
			lineStart := l.pos
			for l.pos < len(l.input) && l.peekByte() != '\n' {
				l.advance()
			}
			line := l.input[lineStart:l.pos]
			if l.pos < len(l.input) {
				l.advance() // consume newline
			}
			compare := line
			if hd.strip {
				compare = strings.TrimLeft(line, "\t")
			}
			if compare == hd.delimiter {
				break
			}
			if hd.strip {
				line = strings.TrimLeft(line, "\t")
			}
			lines = append(lines, line)
		}
		body := ""
		if len(lines) > 0 {
			body = strings.Join(lines, "\n") + "\n"
		}
		l.heredocs[hd.opPos] = &HeredocBody{Delimiter: hd.delimiter, Quoted: hd.quoted, Body: body}
	}
	return nil
}
