package parser

import (
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/token"
)

// wordForming is the set of token kinds that can be part of a word and
// that concatenate with their neighbor when adjacent (spec §4.1
// "Adjacency/concatenation").
func wordForming(k token.Kind) bool {
	switch k {
	case token.Word, token.String, token.Variable, token.CommandSub,
		token.ArithExpansion, token.ParamExpansion, token.ProcessSubIn, token.ProcessSubOut:
		return true
	}
	return false
}

// parseWord merges one or more adjacent word-forming tokens into a single
// ast.Word, the parser's job per spec §4.1's note that the lexer leaves
// concatenation to the parser.
func (p *Parser) parseWord() (ast.Word, error) {
	if !wordForming(p.cur().Kind) {
		return ast.Word{}, &Error{Kind: UnexpectedToken, Position: p.cur().Position, Actual: p.cur()}
	}
	var w ast.Word
	var prevEnd *token.Position
	for wordForming(p.cur().Kind) {
		if prevEnd != nil && prevEnd.Offset != p.cur().Position.Offset {
			break
		}
		t := p.advance()
		end := t.End
		prevEnd = &end
		part, err := p.wordPartFor(t)
		if err != nil {
			return ast.Word{}, err
		}
		w.Parts = append(w.Parts, part)
	}
	return w, nil
}

func (p *Parser) wordPartFor(t token.Token) (ast.WordPart, error) {
	switch t.Kind {
	case token.Word, token.String:
		return &ast.LiteralPart{Position: t.Position, Value: t.Value, Quote: t.QuoteType}, nil
	case token.Variable:
		return &ast.ExpansionPart{Position: t.Position, Kind: ast.ExpVariable, Raw: t.Value, Quoted: t.QuoteType == token.DoubleQuote}, nil
	case token.CommandSub:
		return &ast.ExpansionPart{Position: t.Position, Kind: ast.ExpCommandSub, Raw: t.Value, Quoted: t.QuoteType == token.DoubleQuote}, nil
	case token.ArithExpansion:
		return &ast.ExpansionPart{Position: t.Position, Kind: ast.ExpArithmetic, Raw: t.Value, Quoted: t.QuoteType == token.DoubleQuote}, nil
	case token.ParamExpansion:
		pe, err := ParseParamExpr(t.Position, t.Value)
		if err != nil {
			return nil, err
		}
		return &ast.ExpansionPart{Position: t.Position, Kind: ast.ExpParameter, Raw: t.Value, Quoted: t.QuoteType == token.DoubleQuote, ParamExpr: pe}, nil
	case token.ProcessSubIn:
		return &ast.ExpansionPart{Position: t.Position, Kind: ast.ExpProcessSubIn, Raw: t.Value}, nil
	case token.ProcessSubOut:
		return &ast.ExpansionPart{Position: t.Position, Kind: ast.ExpProcessSubOut, Raw: t.Value}, nil
	default:
		return nil, &Error{Kind: UnexpectedToken, Position: t.Position, Actual: t}
	}
}

// rawWordText joins a Word's parts back into a display/literal string,
// used where the AST needs a plain name (e.g. a redirect's target fd, a
// heredoc delimiter already extracted by the lexer).
func rawWordText(w ast.Word) string {
	var sb strings.Builder
	for _, part := range w.Parts {
		if lp, ok := part.(*ast.LiteralPart); ok {
			sb.WriteString(lp.Value)
		}
	}
	return sb.String()
}
