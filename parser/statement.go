package parser

import (
	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/token"
)

// parseStatement parses `Statement := AndOrList` (spec grammar), or the
// standalone `break`/`continue` control-flow statements.
func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur().Kind {
	case token.Break:
		pos := p.advance().Position
		level := 1
		if lit, ok := p.accept(token.Word); ok {
			level = atoiDefault(lit.Value, 1)
		}
		return &ast.Break{Position: pos, Level: level}, nil
	case token.Continue:
		pos := p.advance().Position
		level := 1
		if lit, ok := p.accept(token.Word); ok {
			level = atoiDefault(lit.Value, 1)
		}
		return &ast.Continue{Position: pos, Level: level}, nil
	}
	return p.parseAndOrList()
}

func atoiDefault(s string, def int) int {
	n, ok := parseSmallInt(s)
	if !ok {
		return def
	}
	return n
}

func parseSmallInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	neg := false
	i := 0
	if s[0] == '-' {
		neg = true
		i = 1
	}
	n := 0
	if i >= len(s) {
		return 0, false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

// parseAndOrList parses `AndOrList := Pipeline (('&&' | '||') Pipeline)*`,
// left-associative (spec §4.2).
func (p *Parser) parseAndOrList() (*ast.AndOrList, error) {
	pos := p.cur().Position
	first, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	lst := &ast.AndOrList{Position: pos, First: first}
	for {
		var op ast.AndOrOp
		switch p.cur().Kind {
		case token.AndAnd:
			op = ast.OpAnd
		case token.OrOr:
			op = ast.OpOr
		default:
			return lst, nil
		}
		p.advance()
		p.skipNewlines()
		next, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		lst.Rest = append(lst.Rest, ast.AndOrTerm{Op: op, Pipe: next})
	}
}

func (p *Parser) skipNewlines() {
	for p.is(token.Newline) {
		p.advance()
	}
}

// parsePipeline parses `Pipeline := ['!'] Command ('|' Command)* ['&']`.
func (p *Parser) parsePipeline() (*ast.Pipeline, error) {
	pos := p.cur().Position
	inverted := false
	if p.is(token.Bang) {
		p.advance()
		inverted = true
	}
	first, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	pipe := &ast.Pipeline{Position: pos, Inverted: inverted, Commands: []ast.Command{first}}
	for p.is(token.Pipe) || p.is(token.PipeAll) {
		p.advance()
		p.skipNewlines()
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		pipe.Commands = append(pipe.Commands, cmd)
	}
	if p.is(token.Ampersand) {
		p.advance()
		pipe.Background = true
	}
	// spec §3.2: a control structure used as one of several pipeline
	// stages forks into a subshell; the sole command of a pipeline runs in
	// the current shell and must not fork on its own.
	if len(pipe.Commands) > 1 {
		for _, c := range pipe.Commands {
			setPipelineContext(c)
		}
	}
	return pipe, nil
}

// setPipelineContext marks a control-structure command as running in
// Pipeline execution context (spec §3.2's ExecutionContext flag).
func setPipelineContext(c ast.Command) {
	switch n := c.(type) {
	case *ast.If:
		n.Context = ast.CtxPipeline
	case *ast.While:
		n.Context = ast.CtxPipeline
	case *ast.Until:
		n.Context = ast.CtxPipeline
	case *ast.ForEach:
		n.Context = ast.CtxPipeline
	case *ast.ForArith:
		n.Context = ast.CtxPipeline
	case *ast.Case:
		n.Context = ast.CtxPipeline
	case *ast.Select:
		n.Context = ast.CtxPipeline
	case *ast.ArithEval:
		n.Context = ast.CtxPipeline
	case *ast.TestBracket:
		// TestBracket has no Context field; [[ ]] always runs in-process
		// and is simple enough that piping from/to it never needs a fork
		// beyond what SimpleCommand already gets.
	}
}

// parseCommand parses `Command := SimpleCommand | CompoundCommand`.
func (p *Parser) parseCommand() (ast.Command, error) {
	switch p.cur().Kind {
	case token.LParen:
		return p.parseSubshell()
	case token.LBrace:
		return p.parseBraceGroup()
	case token.If:
		return p.parseIf(ast.CtxStatement)
	case token.While:
		return p.parseWhile(ast.CtxStatement)
	case token.Until:
		return p.parseUntil(ast.CtxStatement)
	case token.For:
		return p.parseFor(ast.CtxStatement)
	case token.Case:
		return p.parseCase(ast.CtxStatement)
	case token.Select:
		return p.parseSelect(ast.CtxStatement)
	case token.DoubleLParen:
		return p.parseArithEval(ast.CtxStatement)
	case token.DoubleLBracket:
		return p.parseTestBracket()
	case token.Function:
		return p.parseFunctionKeywordForm()
	default:
		return p.parseSimpleCommand()
	}
}

// blockBody parses statements until one of the given terminator keywords,
// used by if/while/until/for/select bodies.
func (p *Parser) blockBody(terminators ...token.Kind) ([]ast.Statement, error) {
	var stmts []ast.Statement
	p.skipSeparators()
	for {
		if p.atEOF() {
			return stmts, nil
		}
		for _, t := range terminators {
			if p.is(t) {
				return stmts, nil
			}
		}
		st, err := p.parseStatement()
		if err != nil {
			return stmts, err
		}
		stmts = append(stmts, st)
		p.skipSeparators()
	}
}
