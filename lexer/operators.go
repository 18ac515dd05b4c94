package lexer

import "github.com/philipwilsonTHG/psh/token"

// operatorTable lists every multi/single-char operator, longest spelling
// first within each length class, so greedy longest-match (spec §4.1 step
// 2: "3 chars before 2 before 1") falls out of a simple linear scan.
var operatorTable = []struct {
	text string
	kind token.Kind
}{
	// 3 chars
	{"<<-", token.HeredocStrip},
	{"<<<", token.HerestringIn},
	{";;&", token.SemicolonAmp},
	{">>&", token.RedirectAppend}, // bash doesn't define this combo; tolerated as append+dup text
	// 2 chars
	{"&&", token.AndAnd},
	{"||", token.OrOr},
	{">>", token.RedirectAppend},
	{"<<", token.Heredoc},
	{">&", token.RedirectDupOut},
	{"<&", token.RedirectDupIn},
	{">|", token.RedirectClobber},
	{"<>", token.RedirectRW},
	{"))", token.DoubleRParen},
	{"[[", token.DoubleLBracket},
	{"]]", token.DoubleRBracket},
	{";;", token.DoubleSemicolon},
	{";&", token.SemicolonAmp},
	{"|&", token.PipeAll},
	// 1 char
	{"|", token.Pipe},
	{"&", token.Ampersand},
	{";", token.Semicolon},
	{"(", token.LParen},
	{")", token.RParen},
	{"{", token.LBrace},
	{"}", token.RBrace},
	{"[", token.LBracket},
	{"]", token.RBracket},
	{"<", token.RedirectIn},
	{">", token.RedirectOut},
	{"=", token.Assign},
}

// recognizeOperator matches the longest operator spelling at the current
// position. `{` and `}` are only operators at a word boundary (so literal
// braces inside words, e.g. brace-expansion leftovers, stay part of a
// word); `[`/`]` are only operators inside `[[ ... ]]` or array-subscript
// contexts, so plain text like `a[1]` is left to the word scanner unless
// the caller is already parsing a subscript.
func (l *Lexer) recognizeOperator() (token.Token, bool, error) {
	rest := l.input[l.pos:]
	if startsWith(rest, "((") {
		// Bare `(( expr ))`: spec §4.2 disambiguates this from a nested
		// subshell by requiring the two '(' to be contiguous; capture the
		// raw arithmetic text the same way `$((...))` does (spec §4.1
		// "Arbitrary nesting"), so the parser need not re-tokenize it.
		start := l.posNow()
		l.advance()
		l.advance()
		inner, ok := l.captureDoubleParen()
		if !ok {
			return token.Token{}, false, &Error{Kind: UnclosedExpansion, Position: start, Detail: "(("}
		}
		return token.Token{Kind: token.DoubleLParen, Value: inner, Position: start, End: l.posNow()}, true, nil
	}
	for _, op := range operatorTable {
		if !startsWith(rest, op.text) {
			continue
		}
		switch op.kind {
		case token.LBrace, token.RBrace:
			if !l.ctx.AtCommandPosition && op.kind == token.LBrace {
				continue
			}
		case token.LBracket, token.RBracket:
			if !l.ctx.InArraySubscript {
				continue
			}
		}
		if op.kind == token.DoubleSemicolon && l.caseDepth == 0 {
			// spec §4.1 step 4: outside a case body, ;; is two Semicolons.
			start := l.posNow()
			l.advance()
			mid := l.posNow()
			l.advance()
			l.emit(token.Semicolon, ";", start, mid)
			return token.Token{Kind: token.Semicolon, Value: ";", Position: mid, End: l.posNow()}, true, nil
		}
		start := l.posNow()
		for range op.text {
			l.advance()
		}
		return token.Token{Kind: op.kind, Value: op.text, Position: start, End: l.posNow()}, true, nil
	}
	return token.Token{}, false, nil
}

func startsWith(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return s[:len(prefix)] == prefix
}
