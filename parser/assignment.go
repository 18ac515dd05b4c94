package parser

import (
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/token"
)

// assignResult is what a successful assignment-prefix lookahead produced.
type assignResult struct {
	scalar *ast.Assignment
	array  *ast.ArrayAssignment
}

// tryParseAssignment implements spec §4.2's "Array assignment vs. command
// prefix" disambiguation: `NAME[...]=…` or `NAME=(…)` at the start is an
// assignment, detected by lookahead that saves and restores the token
// cursor on failure. It consumes tokens only on success.
func (p *Parser) tryParseAssignment() (*assignResult, error) {
	mark := p.checkpoint()
	t := p.cur()
	if t.Kind != token.Word {
		return nil, nil
	}
	name, subscript, hasSubscript, appendOp, litRest, ok := splitAssignPrefix(t.Value)
	if !ok {
		return nil, nil
	}
	p.advance()

	// NAME=(...) array literal — only valid with no subscript and nothing
	// already consumed into litRest, and only when the '(' is adjacent.
	if !hasSubscript && litRest == "" && p.cur().Kind == token.LParen && p.cur().Position.Offset == t.End.Offset {
		p.advance()
		elems, err := p.parseArrayElements()
		if err != nil {
			p.restore(mark)
			return nil, err
		}
		assoc := false
		return &assignResult{array: &ast.ArrayAssignment{
			Position: t.Position, Name: name, Assoc: assoc, Append: appendOp, Elements: elems,
		}}, nil
	}

	val, err := p.continueWord(litRest, t)
	if err != nil {
		return nil, err
	}

	if hasSubscript {
		return &assignResult{array: &ast.ArrayAssignment{
			Position: t.Position, Name: name, Index: subscript, Append: appendOp, ScalarVal: val,
		}}, nil
	}
	return &assignResult{scalar: &ast.Assignment{Position: t.Position, Name: name, Append: appendOp, Value: val}}, nil
}

// continueWord builds an ast.Word starting from a literal fragment already
// extracted from the leading token, then keeps merging subsequent
// word-forming tokens while they remain adjacent to the original token's
// end (spec §4.1 adjacency rule).
func (p *Parser) continueWord(lit string, leading token.Token) (ast.Word, error) {
	var w ast.Word
	if lit != "" {
		w.Parts = append(w.Parts, &ast.LiteralPart{Position: leading.Position, Value: lit, Quote: token.NoQuote})
	}
	prevEnd := leading.End
	for wordForming(p.cur().Kind) {
		if p.cur().Position.Offset != prevEnd.Offset {
			break
		}
		tk := p.advance()
		prevEnd = tk.End
		part, err := p.wordPartFor(tk)
		if err != nil {
			return ast.Word{}, err
		}
		w.Parts = append(w.Parts, part)
	}
	return w, nil
}

// splitAssignPrefix recognizes `NAME=`, `NAME+=`, `NAME[idx]=`, and
// `NAME[idx]+=` at the start of s, returning the name, any subscript, the
// append flag, and whatever literal text follows the `=` within the same
// token.
func splitAssignPrefix(s string) (name, subscript string, hasSubscript, appendOp bool, rest string, ok bool) {
	i := 0
	if i >= len(s) || !isIdentByte(s[i], true) {
		return
	}
	for i < len(s) && isIdentByte(s[i], false) {
		i++
	}
	name = s[:i]
	if i < len(s) && s[i] == '[' {
		depth := 1
		j := i + 1
		for j < len(s) && depth > 0 {
			switch s[j] {
			case '[':
				depth++
			case ']':
				depth--
			}
			j++
		}
		if depth != 0 {
			return "", "", false, false, "", false
		}
		subscript = s[i+1 : j-1]
		hasSubscript = true
		i = j
	}
	if i < len(s) && s[i] == '+' && i+1 < len(s) && s[i+1] == '=' {
		appendOp = true
		i += 2
	} else if i < len(s) && s[i] == '=' {
		i++
	} else {
		return "", "", false, false, "", false
	}
	return name, subscript, hasSubscript, appendOp, s[i:], true
}

// parseArrayElements parses the body of `NAME=(elem elem [k]=v ...)`.
func (p *Parser) parseArrayElements() ([]ast.ArrayElement, error) {
	var elems []ast.ArrayElement
	p.skipSeparators()
	for !p.atEOF() && !p.is(token.RParen) {
		if p.cur().Kind == token.Word && strings.HasPrefix(p.cur().Value, "[") {
			if key, rest, ok := splitKeyedElement(p.cur().Value); ok {
				tk := p.advance()
				w, err := p.continueWord(rest, tk)
				if err != nil {
					return nil, err
				}
				elems = append(elems, ast.ArrayElement{Key: key, Value: w})
				p.skipSeparators()
				continue
			}
		}
		w, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		elems = append(elems, ast.ArrayElement{Value: w})
		p.skipSeparators()
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return elems, nil
}

// splitKeyedElement recognizes a leading `[key]=` on an array element,
// e.g. `[3]=foo` or `[name]=bar` for associative/sparse-indexed arrays.
func splitKeyedElement(s string) (key, rest string, ok bool) {
	if len(s) == 0 || s[0] != '[' {
		return "", "", false
	}
	depth := 1
	j := 1
	for j < len(s) && depth > 0 {
		switch s[j] {
		case '[':
			depth++
		case ']':
			depth--
		}
		j++
	}
	if depth != 0 || j >= len(s) || s[j] != '=' {
		return "", "", false
	}
	return s[1 : j-1], s[j+1:], true
}
