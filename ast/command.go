package ast

import "github.com/philipwilsonTHG/psh/token"

// SimpleCommand carries three parallel, equal-length sequences describing
// each argument, plus redirects and any array-literal assignments (spec
// §3.2). The invariant len(Args) == len(ArgTokenKinds) == len(QuoteTypes)
// must hold for every instance; parseSimpleCommand appends to all three
// (and to ArgWords) together for each argument word.
type SimpleCommand struct {
	Position         token.Position
	Args             []string
	ArgTokenKinds    []token.Kind
	QuoteTypes       []token.QuoteType
	ArgWords         []Word // parallel richer form, same length as Args
	Redirects        []*Redirect
	Assignments      []*Assignment
	ArrayAssignments []*ArrayAssignment
	Background       bool
}

func (s *SimpleCommand) Pos() token.Position { return s.Position }
func (*SimpleCommand) commandNode()          {}

// Assignment is a leading NAME=value (or NAME+=value) prefix.
type Assignment struct {
	Position token.Position
	Name     string
	Append   bool
	Value    Word
}

// ArrayAssignment is NAME=(...) or NAME[i]=value, spec §4.2 disambiguation.
type ArrayAssignment struct {
	Position  token.Position
	Name      string
	Assoc     bool
	Index     string // non-empty for NAME[idx]=value form
	Append    bool
	Elements  []ArrayElement // populated for NAME=(...) form
	ScalarVal Word           // populated for NAME[idx]=value form
}

// ArrayElement is one entry of a NAME=(...) literal; Key is non-empty only
// for `[key]=value` entries (associative arrays or sparse indexed arrays).
type ArrayElement struct {
	Key   string
	Value Word
}

// RedirectKind is the closed set of redirection operators, spec §3.2.
type RedirectKind int

const (
	RedirIn RedirectKind = iota
	RedirOut
	RedirAppend
	RedirHeredoc
	RedirHeredocStrip
	RedirHerestring
	RedirDupOut
	RedirDupIn
	RedirClobber
	RedirReadWrite
)

// Redirect represents a single I/O redirection.
type Redirect struct {
	Position        token.Position
	Kind             RedirectKind
	SourceFd         int  // -1 if not given; default depends on Kind
	HasSourceFd      bool
	Target           Word // file target, or fd word for dup forms
	CloseTarget      bool // >&- / <&-
	Delimiter        string
	QuotedDelimiter  bool
	Body             string // heredoc body, captured at parse time
}

func (r *Redirect) Pos() token.Position { return r.Position }

// CompoundKind distinguishes the two bracket-delimited compound commands
// that aren't control structures.
type CompoundKind int

const (
	CompoundSubshell CompoundKind = iota
	CompoundBraceGroup
)

// CompoundCommand is `( ... )` or `{ ... }`.
type CompoundCommand struct {
	Position token.Position
	Kind     CompoundKind
	Body     []Statement
}

func (c *CompoundCommand) Pos() token.Position { return c.Position }
func (*CompoundCommand) commandNode()          {}
