package interp

import "strings"

// AliasTable holds the textual command-name substitutions spec §4.7
// describes. Expansion happens at execution time, not lex time: a command
// name that is not a special builtin, function, or builtin is looked up
// here, and the replacement text is split on whitespace into words that
// take the command name's place. The replacement is not re-tokenized or
// re-parsed, so quotes, operators, and expansions in it stay literal text.
type AliasTable struct {
	aliases map[string]string
}

func NewAliasTable() *AliasTable { return &AliasTable{aliases: map[string]string{}} }

func (a *AliasTable) Set(name, value string) { a.aliases[name] = value }

func (a *AliasTable) Get(name string) (string, bool) {
	v, ok := a.aliases[name]
	return v, ok
}

func (a *AliasTable) Unset(name string) { delete(a.aliases, name) }

func (a *AliasTable) Each(f func(name, value string)) {
	for n, v := range a.aliases {
		f(n, v)
	}
}

// expandingAliases tracks which alias names are currently being expanded
// on the current command line, so a self-referential (or mutually
// recursive) alias stops after one substitution instead of looping
// forever (spec §4.7: "A set of currently-expanding names prevents
// infinite recursion").
type expandingAliases map[string]bool

// expandAliasWord resolves one leading command word through the alias
// table, returning its replacement text and whether a trailing space was
// present (which permits the *next* word to also be alias-checked, spec
// §4.7). No bypass form is recognized: `\name` reaches this lookup as
// `name` once the lexer has removed the backslash, and there is no
// `command` builtin.
func (r *Runner) expandAliasWord(name string, seen expandingAliases) (replacement string, trailingSpace bool, ok bool) {
	if seen[name] {
		return "", false, false
	}
	val, found := r.Aliases.Get(name)
	if !found {
		return "", false, false
	}
	trailingSpace = strings.HasSuffix(val, " ") || strings.HasSuffix(val, "\t")
	return strings.TrimRight(val, " \t"), trailingSpace, true
}
