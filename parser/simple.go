package parser

import (
	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/token"
)

// parseSimpleCommand parses `SimpleCommand := (Assignment | Redirect |
// Word)+ Redirect*` (spec §4.2), preserving the parallel Args/ArgTokenKinds
// /QuoteTypes sequences the evaluator relies on (spec §3.2 invariant).
func (p *Parser) parseSimpleCommand() (ast.Command, error) {
	cmd := &ast.SimpleCommand{Position: p.cur().Position}
	sawAny := false

	for {
		if p.atEOF() {
			break
		}
		if res, err := p.tryParseAssignment(); err != nil {
			return nil, err
		} else if res != nil {
			if res.scalar != nil {
				cmd.Assignments = append(cmd.Assignments, res.scalar)
			}
			if res.array != nil {
				cmd.ArrayAssignments = append(cmd.ArrayAssignments, res.array)
			}
			sawAny = true
			continue
		}
		if redir, ok, err := p.tryParseRedirect(); err != nil {
			return nil, err
		} else if ok {
			cmd.Redirects = append(cmd.Redirects, redir)
			sawAny = true
			continue
		}
		if wordForming(p.cur().Kind) {
			w, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			cmd.ArgWords = append(cmd.ArgWords, w)
			cmd.Args = append(cmd.Args, rawWordText(w))
			cmd.ArgTokenKinds = append(cmd.ArgTokenKinds, token.Word)
			cmd.QuoteTypes = append(cmd.QuoteTypes, leadingQuote(w))
			sawAny = true
			continue
		}
		break
	}

	if !sawAny {
		return nil, &Error{Kind: UnexpectedToken, Position: p.cur().Position, Actual: p.cur()}
	}
	return cmd, nil
}

// leadingQuote reports the quote discipline of a word's first literal part,
// the parallel QuoteTypes sequence's per-argument summary (spec §3.2).
func leadingQuote(w ast.Word) token.QuoteType {
	for _, part := range w.Parts {
		if lp, ok := part.(*ast.LiteralPart); ok {
			return lp.Quote
		}
		return token.NoQuote
	}
	return token.NoQuote
}

// redirectOpKinds is the closed set of redirect-operator token kinds.
var redirectOpKinds = map[token.Kind]ast.RedirectKind{
	token.RedirectIn:      ast.RedirIn,
	token.RedirectOut:     ast.RedirOut,
	token.RedirectAppend:  ast.RedirAppend,
	token.Heredoc:         ast.RedirHeredoc,
	token.HeredocStrip:    ast.RedirHeredocStrip,
	token.HerestringIn:    ast.RedirHerestring,
	token.RedirectDupOut:  ast.RedirDupOut,
	token.RedirectDupIn:   ast.RedirDupIn,
	token.RedirectClobber: ast.RedirClobber,
	token.RedirectRW:      ast.RedirReadWrite,
}

func isRedirectOpKind(k token.Kind) bool {
	_, ok := redirectOpKinds[k]
	return ok
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// tryParseRedirect parses one `[fd]OP target` redirection (spec §3.2), with
// an optional leading digit-only word as the explicit source fd (`2>file`).
// The digit word only counts as an fd when it is immediately adjacent to
// the redirect operator; otherwise it is an ordinary argument.
func (p *Parser) tryParseRedirect() (*ast.Redirect, bool, error) {
	mark := p.checkpoint()

	fd := -1
	hasFd := false
	if p.cur().Kind == token.Word && isAllDigits(p.cur().Value) &&
		isRedirectOpKind(p.peekN(1).Kind) && p.peekN(1).Position.Offset == p.cur().End.Offset {
		fdTok := p.advance()
		fd, _ = parseSmallInt(fdTok.Value)
		hasFd = true
	}

	if !isRedirectOpKind(p.cur().Kind) {
		p.restore(mark)
		return nil, false, nil
	}
	op := p.advance()
	r := &ast.Redirect{Position: op.Position, Kind: redirectOpKinds[op.Kind], SourceFd: fd, HasSourceFd: hasFd}

	switch op.Kind {
	case token.Heredoc, token.HeredocStrip:
		if wordForming(p.cur().Kind) {
			p.advance() // delimiter word, already captured by the lexer
		}
		if hd, ok := p.heredocs[op.Position]; ok {
			r.Delimiter = hd.Delimiter
			r.QuotedDelimiter = hd.Quoted
			r.Body = hd.Body
		}
		return r, true, nil
	case token.RedirectDupOut, token.RedirectDupIn:
		if p.cur().Kind == token.Word && p.cur().Value == "-" {
			p.advance()
			r.CloseTarget = true
			return r, true, nil
		}
		w, err := p.parseWord()
		if err != nil {
			return nil, false, err
		}
		r.Target = w
		return r, true, nil
	default:
		w, err := p.parseWord()
		if err != nil {
			return nil, false, err
		}
		r.Target = w
		return r, true, nil
	}
}
