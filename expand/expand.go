package expand

import (
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/parser"
	"github.com/philipwilsonTHG/psh/pattern"
	"github.com/philipwilsonTHG/psh/token"
)

// Config bundles everything the expander needs from the running shell:
// the variable store, positional parameters, and the callbacks into
// interp for the pieces that require a subprocess or a live parser (spec
// §4.3 steps 2-4).
type Config struct {
	Env        WriteEnviron
	Positional []string
	Arg0       string
	LastStatus int
	LastBgPID  int
	PID        int
	Options    string // rendering of `$-`

	// CmdSubst runs code (the raw text between $(...) or `...`) as a shell
	// command list and returns its captured stdout.
	CmdSubst func(code string) (string, error)

	// HomeDir resolves `~user` for a user other than the current one. A
	// nil HomeDir (or one returning ok==false) falls back to os/user.
	HomeDir func(user string) (dir string, ok bool)

	IFS     string // defaults to " \t\n"
	NoGlob  bool   // `set -f`
	NoUnset bool   // `set -u`
}

func (cfg *Config) ifs() string {
	if cfg.IFS == "" {
		return " \t\n"
	}
	return cfg.IFS
}

func (cfg *Config) ifsFirst() string {
	s := cfg.ifs()
	if s == "" {
		return ""
	}
	return s[:1]
}

// resolveVariable looks up a name, synthesizing the special parameters
// ($@ $* $# $? $$ $! $- $0 and the positionals) spec §3.3 lists as always
// present, then falling through to Env.
func (cfg *Config) resolveVariable(name string) Variable {
	switch name {
	case "@", "*":
		idx := make([]int64, len(cfg.Positional))
		m := make(map[int64]string, len(cfg.Positional))
		for i, v := range cfg.Positional {
			idx[i] = int64(i + 1)
			m[idx[i]] = v
		}
		return Variable{Set: true, Kind: Indexed, IndexOrder: idx, Indexed: m}
	case "#":
		return scalarVar(strconv.Itoa(len(cfg.Positional)))
	case "?":
		return scalarVar(strconv.Itoa(cfg.LastStatus))
	case "$":
		return scalarVar(strconv.Itoa(cfg.PID))
	case "!":
		return scalarVar(strconv.Itoa(cfg.LastBgPID))
	case "-":
		return scalarVar(cfg.Options)
	case "0":
		return scalarVar(cfg.Arg0)
	}
	if n, ok := positionalIndex(name); ok {
		if n >= 1 && n <= len(cfg.Positional) {
			return scalarVar(cfg.Positional[n-1])
		}
		return Variable{}
	}
	if cfg.Env != nil {
		return cfg.Env.Get(name)
	}
	return Variable{}
}

func scalarVar(s string) Variable { return Variable{Set: true, Kind: Scalar, Str: s} }

func positionalIndex(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Literal expands w as a single field: used for redirect targets,
// assignment right-hand sides, and anywhere else spec §4.3 applies
// expansion but not word splitting or pathname expansion.
func (cfg *Config) Literal(w ast.Word) (string, error) {
	var sb strings.Builder
	for i, part := range w.Parts {
		text, _, _, multi, err := cfg.expandPart(part, i == 0)
		if err != nil {
			return "", err
		}
		if multi != nil {
			sb.WriteString(strings.Join(multi, cfg.ifsFirst()))
			continue
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// Fields expands w into the one-or-more command-line arguments it
// produces, running word splitting and pathname expansion over the
// unquoted portions (spec §4.3 steps 6-7). A word that expands to nothing
// unquoted (e.g. a lone `"$empty"`-free `$empty`) vanishes entirely.
func (cfg *Config) Fields(w ast.Word) ([]string, error) {
	type seg struct {
		text   string
		quoted bool
	}
	var fields [][]seg
	cur := []seg{}
	flush := func() {
		fields = append(fields, cur)
		cur = nil
	}

	any := false
	for i, part := range w.Parts {
		text, quoted, splittable, multi, err := cfg.expandPart(part, i == 0)
		if err != nil {
			return nil, err
		}
		any = true
		if multi != nil {
			for k, t := range multi {
				if k > 0 {
					flush()
				}
				cur = append(cur, seg{t, quoted})
			}
			continue
		}
		if !splittable || !strings.ContainsAny(text, cfg.ifs()) {
			cur = append(cur, seg{text, quoted})
			continue
		}
		pieces := splitIFS(text, cfg.ifs())
		for k, p := range pieces {
			if k > 0 {
				flush()
			}
			cur = append(cur, seg{p, quoted})
		}
	}
	flush()
	if !any {
		return nil, nil
	}

	var out []string
	for _, f := range fields {
		if len(f) == 0 {
			continue
		}
		if len(fields) == 1 {
			empty := true
			for _, s := range f {
				empty = empty && !s.quoted && s.text == ""
			}
			if empty {
				continue
			}
		}
		allQuoted := true
		needsGlob := false
		var plain, globSrc strings.Builder
		for _, s := range f {
			plain.WriteString(s.text)
			if s.quoted {
				globSrc.WriteString(escapeGlobMeta(s.text))
			} else {
				if pattern.HasMeta(s.text) {
					needsGlob = true
				}
				globSrc.WriteString(s.text)
				allQuoted = false
			}
		}
		if cfg.NoGlob || allQuoted || !needsGlob {
			out = append(out, plain.String())
			continue
		}
		matches, err := filepath.Glob(globSrc.String())
		if err != nil || len(matches) == 0 {
			out = append(out, plain.String())
			continue
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}

func escapeGlobMeta(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// splitIFS splits s on runs of IFS characters, per spec §4.3 step 6
// (whitespace IFS characters collapse runs and trim leading/trailing
// splits; non-whitespace IFS characters each start a new field even when
// adjacent). A plain-whitespace IFS is handled with the common-case
// collapsing rule; mixed IFS falls back to a simpler per-rune split.
func splitIFS(s, ifs string) []string {
	if isAllWhitespace(ifs) {
		return strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(ifs, r) })
	}
	var out []string
	var cur strings.Builder
	for _, r := range s {
		if strings.ContainsRune(ifs, r) {
			out = append(out, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	out = append(out, cur.String())
	return out
}

func isAllWhitespace(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' {
			return false
		}
	}
	return true
}

// expandPart expands one Word part, returning either a single (text,
// quoted, splittable) result, or multi != nil for array-returning forms.
func (cfg *Config) expandPart(part ast.WordPart, first bool) (text string, quoted, splittable bool, multi []string, err error) {
	switch p := part.(type) {
	case *ast.LiteralPart:
		quoted = p.Quote != 0
		if first && !quoted && strings.HasPrefix(p.Value, "~") {
			return cfg.expandTilde(p.Value), quoted, false, nil, nil
		}
		return p.Value, quoted, false, nil, nil

	case *ast.ExpansionPart:
		quoted = p.Quoted
		switch p.Kind {
		case ast.ExpVariable:
			return cfg.expandBareVariable(p.Raw, quoted)
		case ast.ExpParameter:
			fields, err := cfg.expandParam(p.ParamExpr)
			if err != nil {
				return "", quoted, false, nil, err
			}
			if isArrayReturning(p.ParamExpr) {
				return "", quoted, false, fields, nil
			}
			if len(fields) == 0 {
				return "", quoted, !quoted, nil, nil
			}
			return fields[0], quoted, !quoted, nil, nil
		case ast.ExpCommandSub:
			if cfg.CmdSubst == nil {
				return "", quoted, !quoted, nil, nil
			}
			out, err := cfg.CmdSubst(p.Raw)
			if err != nil {
				return "", quoted, false, nil, err
			}
			return strings.TrimRight(out, "\n"), quoted, !quoted, nil, nil
		case ast.ExpArithmetic:
			v, err := EvalArith(p.Raw, cfg.Env)
			if err != nil {
				return "", quoted, false, nil, err
			}
			return strconv.FormatInt(v, 10), quoted, !quoted, nil, nil
		case ast.ExpProcessSubIn, ast.ExpProcessSubOut:
			// Resolved to a /dev/fd path by interp at exec time; the
			// expander treats the literal placeholder as opaque text.
			return p.Raw, quoted, false, nil, nil
		}
	}
	return "", false, false, nil, nil
}

func isArrayReturning(pe *ast.ParamExpr) bool {
	switch pe.Op {
	case ast.ParamArrayAt, ast.ParamArrayKeys, ast.ParamNamesPrefix:
		return true
	}
	return false
}

// expandBareVariable handles the lexer's un-braced forms: $NAME, $0-$9,
// and the special one-character parameters, with $@/$* given their
// classic splitting behavior (spec §4.3, §3.3).
func (cfg *Config) expandBareVariable(name string, quoted bool) (text string, q, splittable bool, multi []string, err error) {
	switch name {
	case "@":
		if quoted {
			return "", true, false, append([]string(nil), cfg.Positional...), nil
		}
		return strings.Join(cfg.Positional, cfg.ifsFirst()), false, true, nil, nil
	case "*":
		joined := strings.Join(cfg.Positional, cfg.ifsFirst())
		return joined, quoted, !quoted, nil, nil
	}
	vr := cfg.resolveVariable(name)
	if !vr.Set && cfg.NoUnset && !isSpecialParam(name) {
		return "", quoted, false, nil, &Error{Kind: UnsetVariable, Name: name, Message: "unbound variable"}
	}
	return vr.String(), quoted, !quoted, nil, nil
}

// expandTilde implements spec §4.3's tilde expansion: `~` or `~user` at
// the start of a word (and only there) expands to a home directory.
func (cfg *Config) expandTilde(text string) string {
	rest := text[1:]
	name, tail, _ := strings.Cut(rest, "/")
	hasSlash := strings.Contains(rest, "/")
	if !hasSlash {
		name, tail = rest, ""
	}

	var home string
	var ok bool
	if name == "" {
		if cfg.Env != nil {
			if h := cfg.Env.Get("HOME"); h.Set {
				home, ok = h.Str, true
			}
		}
	} else if cfg.HomeDir != nil {
		home, ok = cfg.HomeDir(name)
	}
	if !ok && name != "" {
		if u, err := user.Lookup(name); err == nil {
			home, ok = u.HomeDir, true
		}
	}
	if !ok {
		return text
	}
	if hasSlash {
		return home + "/" + tail
	}
	return home
}

// ExpandRawText expands the raw text embedded in a parameter-operator
// argument (the W in `${VAR:-W}`, the P/R in `${VAR/P/R}`), which the
// parser captures verbatim rather than as an ast.Word. It understands the
// same `$...` forms the lexer recognizes, re-parsing `${...}` bodies
// through parser.ParseParamExpr on demand (spec §4.1's "balanced-delimiter
// capture, lazy parsing" pattern, applied one level deeper).
func (cfg *Config) ExpandRawText(s string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			out.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c == '$' && i+1 < len(s) {
			switch {
			case strings.HasPrefix(s[i:], "$(("):
				if end, ok := findBalancedDouble(s, i+3); ok {
					v, err := EvalArith(s[i+3:end], cfg.Env)
					if err != nil {
						return "", err
					}
					out.WriteString(strconv.FormatInt(v, 10))
					i = end + 2
					continue
				}
			case s[i+1] == '(':
				if end, ok := findBalanced(s, i+2, '(', ')'); ok {
					if cfg.CmdSubst != nil {
						v, err := cfg.CmdSubst(s[i+2 : end])
						if err != nil {
							return "", err
						}
						out.WriteString(strings.TrimRight(v, "\n"))
					}
					i = end + 1
					continue
				}
			case s[i+1] == '{':
				if end, ok := findBalanced(s, i+2, '{', '}'); ok {
					v, err := cfg.expandBracedText(s[i+2 : end])
					if err != nil {
						return "", err
					}
					out.WriteString(v)
					i = end + 1
					continue
				}
			default:
				if name, adv, ok := scanBareName(s[i+1:]); ok {
					v, _, _, multi, err := cfg.expandBareVariable(name, false)
					if err != nil {
						return "", err
					}
					if multi != nil {
						out.WriteString(strings.Join(multi, cfg.ifsFirst()))
					} else {
						out.WriteString(v)
					}
					i += 1 + adv
					continue
				}
			}
		}
		out.WriteByte(c)
		i++
	}
	return out.String(), nil
}

// expandBracedText is ExpandRawText's ${...} case, deferring to the
// parser's own parameter-expansion grammar.
func (cfg *Config) expandBracedText(inner string) (string, error) {
	pe, err := parser.ParseParamExpr(token.Position{}, inner)
	if err != nil {
		return "", err
	}
	fields, err := cfg.expandParam(pe)
	if err != nil {
		return "", err
	}
	return strings.Join(fields, cfg.ifsFirst()), nil
}

func scanBareName(s string) (name string, consumed int, ok bool) {
	if s == "" {
		return "", 0, false
	}
	for i := 0; i < len(specialParamChars); i++ {
		if s[0] == specialParamChars[i] {
			return s[:1], 1, true
		}
	}
	j := 0
	for j < len(s) && isIdentByteLocal(s[j], j == 0) {
		j++
	}
	if j == 0 {
		return "", 0, false
	}
	return s[:j], j, true
}

const specialParamChars = "@*#?$!-"

func isIdentByteLocal(b byte, first bool) bool {
	if b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') {
		return true
	}
	if !first && b >= '0' && b <= '9' {
		return true
	}
	return false
}

func findBalanced(s string, start int, open, close byte) (end int, ok bool) {
	depth := 1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// findBalancedDouble locates the `))` closing a `$((` capture already
// stripped of its opening, mirroring the lexer's captureDoubleParen.
func findBalancedDouble(s string, start int) (end int, ok bool) {
	depth := 1
	i := start
	for i < len(s) {
		switch s[i] {
		case '(':
			depth++
			i++
		case ')':
			if i+1 < len(s) && s[i+1] == ')' {
				depth--
				if depth == 0 {
					return i, true
				}
				i++
			} else {
				depth--
				i++
			}
		default:
			i++
		}
	}
	return 0, false
}
