package parser

import (
	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/token"
)

// tryParseFunctionDef recognizes the `NAME ( ) body` function form (spec
// §4.2: "a token sequence NAME ( ) with nothing between parentheses denotes
// a function"). It only consumes tokens on a match.
func (p *Parser) tryParseFunctionDef() (ast.Node, bool, error) {
	if p.cur().Kind != token.Word || !isIdentName(p.cur().Value) {
		return nil, false, nil
	}
	if p.peekN(1).Kind != token.LParen || p.peekN(2).Kind != token.RParen {
		return nil, false, nil
	}
	pos := p.cur().Position
	name := p.advance().Value
	p.advance() // (
	p.advance() // )
	fn, err := p.finishFunctionDef(pos, name)
	return fn, true, err
}

// parseFunctionKeywordForm parses the `function NAME [()] body` form (spec
// §4.2: "The function keyword form requires a subsequent name token"); the
// parenthesis pair is optional here since the keyword already disambiguates.
func (p *Parser) parseFunctionKeywordForm() (ast.Command, error) {
	pos := p.advance().Position // function
	nameTok, err := p.expect(token.Word)
	if err != nil {
		return nil, err
	}
	if p.is(token.LParen) && p.peekN(1).Kind == token.RParen {
		p.advance()
		p.advance()
	}
	return p.finishFunctionDef(pos, nameTok.Value)
}

// finishFunctionDef parses the compound-command body shared by both
// function-definition forms, plus any trailing redirects attached to the
// definition itself.
func (p *Parser) finishFunctionDef(pos token.Position, name string) (*ast.FunctionDef, error) {
	p.skipSeparators()
	body, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	fn := &ast.FunctionDef{Position: pos, Name: name, Body: body}
	for {
		r, ok, err := p.tryParseRedirect()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		fn.Redirs = append(fn.Redirs, r)
	}
	return fn, nil
}
