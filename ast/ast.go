// Package ast defines the tagged-variant AST described in spec §3.2.
//
// Each node group from the spec becomes a Go interface with a private
// marker method, and the concrete variants implement it — the idiomatic
// analogue of a sum type. Visitors (the evaluator, the tracer) dispatch on
// the variant with a type switch, the same pattern the donor syntax package
// uses for its own Command interface.
package ast

import "github.com/philipwilsonTHG/psh/token"

// Node is the root of every AST type.
type Node interface {
	Pos() token.Position
}

// Program is the top-level parse result: an ordered list of items, each
// either a function definition or a statement (spec §3.2).
type Program struct {
	Items []Node
}

func (p *Program) Pos() token.Position {
	if len(p.Items) == 0 {
		return token.Position{}
	}
	return p.Items[0].Pos()
}

// Statement is the sum of AndOrList, FunctionDef, Break, Continue, and the
// unified control structures.
type Statement interface {
	Node
	statementNode()
}

// AndOrList is a left-associative chain of pipelines joined by && and ||.
type AndOrList struct {
	Position token.Position
	First    *Pipeline
	Rest     []AndOrTerm
}

// AndOrTerm is one `&&`/`||` continuation of an AndOrList.
type AndOrTerm struct {
	Op   AndOrOp
	Pipe *Pipeline
}

type AndOrOp int

const (
	OpAnd AndOrOp = iota // &&
	OpOr                 // ||
)

func (a *AndOrList) Pos() token.Position { return a.Position }
func (*AndOrList) statementNode()        {}

// Break is the `break [n]` control-flow statement.
type Break struct {
	Position token.Position
	Level    int
}

func (b *Break) Pos() token.Position { return b.Position }
func (*Break) statementNode()        {}

// Continue is the `continue [n]` control-flow statement.
type Continue struct {
	Position token.Position
	Level    int
}

func (c *Continue) Pos() token.Position { return c.Position }
func (*Continue) statementNode()        {}

// FunctionDef binds a name to a compound command body. It satisfies both
// Statement (top-level/body position) and Command (the `function name { }`
// form reached from command position inside a pipeline).
type FunctionDef struct {
	Position token.Position
	Name     string
	Body     Command
	Redirs   []*Redirect
}

func (f *FunctionDef) Pos() token.Position { return f.Position }
func (*FunctionDef) statementNode()        {}
func (*FunctionDef) commandNode()          {}

// Pipeline is an ordered list of commands connected by `|`, per spec §3.2.
type Pipeline struct {
	Position   token.Position
	Commands   []Command
	Inverted   bool // leading !
	Background bool // trailing &
	PipeFds    []int
}

func (p *Pipeline) Pos() token.Position { return p.Position }

// Command is the sum of SimpleCommand and CompoundCommand.
type Command interface {
	Node
	commandNode()
}

// ExecutionContext tells the evaluator whether a control structure runs in
// the current shell (Statement) or must fork into a subshell because it is
// a pipeline stage (Pipeline), per spec §3.2.
type ExecutionContext int

const (
	CtxStatement ExecutionContext = iota
	CtxPipeline
)
