package parser

import (
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/token"
)

func (p *Parser) parseSubshell() (ast.Command, error) {
	pos := p.advance().Position // (
	body, err := p.blockBody(token.RParen)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return &ast.CompoundCommand{Position: pos, Kind: ast.CompoundSubshell, Body: body}, nil
}

func (p *Parser) parseBraceGroup() (ast.Command, error) {
	pos := p.advance().Position // {
	body, err := p.blockBody(token.RBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return &ast.CompoundCommand{Position: pos, Kind: ast.CompoundBraceGroup, Body: body}, nil
}

func (p *Parser) parseIf(ctx ast.ExecutionContext) (ast.Command, error) {
	pos := p.advance().Position // if
	cond, err := p.blockBody(token.Then)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Then); err != nil {
		return nil, err
	}
	then, err := p.blockBody(token.Elif, token.Else, token.Fi)
	if err != nil {
		return nil, err
	}
	n := &ast.If{Position: pos, Context: ctx, Cond: cond, Then: then}
	for p.is(token.Elif) {
		p.advance()
		econd, err := p.blockBody(token.Then)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Then); err != nil {
			return nil, err
		}
		ethen, err := p.blockBody(token.Elif, token.Else, token.Fi)
		if err != nil {
			return nil, err
		}
		n.Elifs = append(n.Elifs, ast.ElifClause{Cond: econd, Then: ethen})
	}
	if p.is(token.Else) {
		p.advance()
		elseBody, err := p.blockBody(token.Fi)
		if err != nil {
			return nil, err
		}
		n.Else = elseBody
	}
	if _, err := p.expect(token.Fi); err != nil {
		return nil, &Error{Kind: MissingFi, Position: p.cur().Position, Actual: p.cur()}
	}
	return n, nil
}

func (p *Parser) parseWhile(ctx ast.ExecutionContext) (ast.Command, error) {
	pos := p.advance().Position
	cond, err := p.blockBody(token.Do)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Do); err != nil {
		return nil, err
	}
	body, err := p.blockBody(token.Done)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Done); err != nil {
		return nil, &Error{Kind: MissingDone, Position: p.cur().Position, Actual: p.cur()}
	}
	return &ast.While{Position: pos, Context: ctx, Cond: cond, Body: body}, nil
}

func (p *Parser) parseUntil(ctx ast.ExecutionContext) (ast.Command, error) {
	pos := p.advance().Position
	cond, err := p.blockBody(token.Do)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Do); err != nil {
		return nil, err
	}
	body, err := p.blockBody(token.Done)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Done); err != nil {
		return nil, &Error{Kind: MissingDone, Position: p.cur().Position, Actual: p.cur()}
	}
	return &ast.Until{Position: pos, Context: ctx, Cond: cond, Body: body}, nil
}

// parseFor disambiguates `for NAME in words; do ... done` from
// `for (( init; cond; update )); do ... done` by lookahead on the token
// immediately after `for` (spec §4.2: "((…)) vs. subshell (…): two '('
// tokens in a row at command position begin an arithmetic evaluation").
func (p *Parser) parseFor(ctx ast.ExecutionContext) (ast.Command, error) {
	pos := p.advance().Position // for
	if p.is(token.DoubleLParen) {
		return p.parseForArith(pos, ctx)
	}
	return p.parseForEach(pos, ctx)
}

func (p *Parser) parseForArith(pos token.Position, ctx ast.ExecutionContext) (ast.Command, error) {
	header := p.advance() // DoubleLParen, Value = raw "init; cond; update" text
	init, cond, update := splitArithHeader(header.Value)
	p.skipSeparators()
	if _, err := p.expect(token.Do); err != nil {
		return nil, err
	}
	body, err := p.blockBody(token.Done)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Done); err != nil {
		return nil, &Error{Kind: MissingDone, Position: p.cur().Position, Actual: p.cur()}
	}
	return &ast.ForArith{Position: pos, Context: ctx, Init: init, Cond: cond, Update: update, Body: body}, nil
}

// splitArithHeader splits the raw `init; cond; update` text captured by
// the lexer's DoubleLParen token for a `for ((...))` header. Any clause
// may be empty: empty init is a no-op, empty cond is always-true, empty
// update is a no-op (spec §3.2 ForArith invariant).
func splitArithHeader(raw string) (init, cond, update string) {
	parts := strings.SplitN(raw, ";", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
}

func (p *Parser) parseForEach(pos token.Position, ctx ast.ExecutionContext) (ast.Command, error) {
	nameTok, err := p.expect(token.Word)
	if err != nil {
		return nil, err
	}
	n := &ast.ForEach{Position: pos, Context: ctx, VarName: nameTok.Value}
	p.skipSeparators()
	if p.is(token.In) {
		p.advance()
		n.HasIn = true
		for !p.atEOF() && !p.is(token.Semicolon) && !p.is(token.Newline) {
			w, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			n.Words = append(n.Words, w)
		}
	}
	p.skipSeparators()
	if _, err := p.expect(token.Do); err != nil {
		return nil, err
	}
	body, err := p.blockBody(token.Done)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Done); err != nil {
		return nil, &Error{Kind: MissingDone, Position: p.cur().Position, Actual: p.cur()}
	}
	n.Body = body
	return n, nil
}

func (p *Parser) parseCase(ctx ast.ExecutionContext) (ast.Command, error) {
	pos := p.advance().Position // case
	word, err := p.parseWord()
	if err != nil {
		return nil, err
	}
	p.skipSeparators()
	if _, err := p.expect(token.In); err != nil {
		return nil, err
	}
	p.skipSeparators()
	n := &ast.Case{Position: pos, Context: ctx, Word: word}
	for !p.atEOF() && !p.is(token.Esac) {
		p.accept(token.LParen)
		var item ast.CaseItem
		for {
			pat, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			item.Patterns = append(item.Patterns, pat)
			if _, ok := p.accept(token.Pipe); !ok {
				break
			}
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		p.skipSeparators()
		body, err := p.blockBody(token.DoubleSemicolon, token.SemicolonAmp, token.Esac)
		if err != nil {
			return nil, err
		}
		item.Body = body
		item.Terminator = TermForToken(p.cur().Kind)
		if p.is(token.DoubleSemicolon) || p.is(token.SemicolonAmp) {
			p.advance()
		}
		p.skipSeparators()
		n.Items = append(n.Items, item)
	}
	if _, err := p.expect(token.Esac); err != nil {
		return nil, &Error{Kind: MissingEsac, Position: p.cur().Position, Actual: p.cur()}
	}
	return n, nil
}

// TermForToken maps the terminator token actually seen to a
// CaseTerminator; SemicolonAmp covers both `;&` and `;;&` since the lexer
// produces the same kind for both three-char forms (see operators.go).
func TermForToken(k token.Kind) ast.CaseTerminator {
	switch k {
	case token.SemicolonAmp:
		return ast.TermFallThrough
	default:
		return ast.TermEnd
	}
}

func (p *Parser) parseSelect(ctx ast.ExecutionContext) (ast.Command, error) {
	pos := p.advance().Position // select
	nameTok, err := p.expect(token.Word)
	if err != nil {
		return nil, err
	}
	n := &ast.Select{Position: pos, Context: ctx, VarName: nameTok.Value}
	p.skipSeparators()
	if p.is(token.In) {
		p.advance()
		for !p.atEOF() && !p.is(token.Semicolon) && !p.is(token.Newline) {
			w, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			n.Words = append(n.Words, w)
		}
	}
	p.skipSeparators()
	if _, err := p.expect(token.Do); err != nil {
		return nil, err
	}
	body, err := p.blockBody(token.Done)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Done); err != nil {
		return nil, &Error{Kind: MissingDone, Position: p.cur().Position, Actual: p.cur()}
	}
	n.Body = body
	return n, nil
}

func (p *Parser) parseArithEval(ctx ast.ExecutionContext) (ast.Command, error) {
	tok := p.advance() // DoubleLParen carrying the raw captured expr text
	return &ast.ArithEval{Position: tok.Position, Context: ctx, Expr: tok.Value}, nil
}
