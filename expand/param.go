package expand

import (
	"strconv"
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/pattern"
)

// expandParam evaluates a parsed `${...}` expansion (ast.ParamExpr) against
// cfg, returning the field(s) it produces. Array-returning operators
// (ParamArrayAt/ParamArrayKeys/ParamNamesPrefix) hand back a list of
// fields; everything
// else returns exactly one (spec §4.3's parameter-operator table).
func (cfg *Config) expandParam(pe *ast.ParamExpr) ([]string, error) {
	vr := cfg.resolveVariable(pe.Name)

	switch pe.Op {
	case ast.ParamNamesPrefix:
		return cfg.namesWithPrefix(pe.Name), nil

	case ast.ParamIndirect:
		target := vr.String()
		if target == "" {
			return []string{""}, nil
		}
		return []string{cfg.resolveVariable(target).String()}, nil

	case ast.ParamArrayAt:
		return vr.Elements(), nil

	case ast.ParamArrayStar:
		return []string{strings.Join(vr.Elements(), cfg.ifsFirst())}, nil

	case ast.ParamArrayLen:
		return []string{strconv.Itoa(len(vr.Elements()))}, nil

	case ast.ParamArrayKeys:
		return vr.Keys(), nil

	case ast.ParamLength:
		return []string{strconv.Itoa(len(cfg.subscripted(vr, pe)))}, nil

	case ast.ParamPlain:
		if pe.Index != "" {
			return []string{cfg.subscriptValue(vr, pe.Index)}, nil
		}
		if !vr.Set && cfg.NoUnset && !isSpecialParam(pe.Name) {
			return nil, &Error{Kind: UnsetVariable, Name: pe.Name, Message: "unbound variable"}
		}
		return []string{vr.String()}, nil

	case ast.ParamDefault:
		if cfg.unsetOrNull(vr, pe) {
			v, err := cfg.ExpandRawText(pe.Arg)
			return []string{v}, err
		}
		return []string{cfg.subscripted(vr, pe)}, nil

	case ast.ParamAssignDef:
		if cfg.unsetOrNull(vr, pe) {
			v, err := cfg.ExpandRawText(pe.Arg)
			if err != nil {
				return nil, err
			}
			if err := cfg.assign(pe.Name, v); err != nil {
				return nil, err
			}
			return []string{v}, nil
		}
		return []string{cfg.subscripted(vr, pe)}, nil

	case ast.ParamAltValue:
		if cfg.unsetOrNull(vr, pe) {
			return []string{""}, nil
		}
		v, err := cfg.ExpandRawText(pe.Arg)
		return []string{v}, err

	case ast.ParamError:
		if cfg.unsetOrNull(vr, pe) {
			msg, err := cfg.ExpandRawText(pe.Arg)
			if err != nil {
				return nil, err
			}
			if msg == "" {
				msg = "parameter null or not set"
			}
			return nil, &Error{Kind: UnsetVariable, Name: pe.Name, Message: msg}
		}
		return []string{cfg.subscripted(vr, pe)}, nil

	case ast.ParamRemShortPre, ast.ParamRemLongPre:
		val := cfg.subscripted(vr, pe)
		pat, err := cfg.ExpandRawText(pe.Arg)
		if err != nil {
			return nil, err
		}
		return []string{stripPrefix(val, pat, pe.Op == ast.ParamRemLongPre)}, nil

	case ast.ParamRemShortSuf, ast.ParamRemLongSuf:
		val := cfg.subscripted(vr, pe)
		pat, err := cfg.ExpandRawText(pe.Arg)
		if err != nil {
			return nil, err
		}
		return []string{stripSuffix(val, pat, pe.Op == ast.ParamRemLongSuf)}, nil

	case ast.ParamReplaceFirst, ast.ParamReplaceAll:
		val := cfg.subscripted(vr, pe)
		pat, err := cfg.ExpandRawText(pe.Arg)
		if err != nil {
			return nil, err
		}
		repl, err := cfg.ExpandRawText(pe.Arg2)
		if err != nil {
			return nil, err
		}
		out, err := globReplace(val, pat, repl, pe.Op == ast.ParamReplaceAll, pe.Anchor)
		return []string{out}, err

	case ast.ParamUpperFirst, ast.ParamUpperAll, ast.ParamLowerFirst, ast.ParamLowerAll:
		val := cfg.subscripted(vr, pe)
		return []string{caseConvert(val, pe.Op)}, nil

	case ast.ParamSubstring:
		val := cfg.subscripted(vr, pe)
		return []string{substring(val, pe, cfg)}, nil
	}

	return []string{""}, nil
}

// subscripted resolves pe's array subscript (if any) against vr, otherwise
// returns vr's plain scalar rendering.
func (cfg *Config) subscripted(vr Variable, pe *ast.ParamExpr) string {
	if pe.Index != "" {
		return cfg.subscriptValue(vr, pe.Index)
	}
	return vr.String()
}

func (cfg *Config) subscriptValue(vr Variable, indexText string) string {
	switch vr.Kind {
	case Indexed:
		if indexText == "@" || indexText == "*" {
			return strings.Join(vr.Elements(), cfg.ifsFirst())
		}
		idx, err := EvalArith(indexText, cfg.Env)
		if err != nil {
			return ""
		}
		return vr.Indexed[idx]
	case Associative:
		if indexText == "@" || indexText == "*" {
			return strings.Join(vr.Elements(), cfg.ifsFirst())
		}
		key, _ := cfg.ExpandRawText(indexText)
		return vr.Assoc[key]
	default:
		return vr.Str
	}
}

// unsetOrNull implements the ":-"-family distinction the grammar collapses
// onto a single colon-requiring operator set (spec §4.3): true when the
// variable is unset, or set to the empty string.
func (cfg *Config) unsetOrNull(vr Variable, pe *ast.ParamExpr) bool {
	if !vr.Set {
		return true
	}
	return cfg.subscripted(vr, pe) == ""
}

func (cfg *Config) assign(name, val string) error {
	if cfg.Env == nil {
		return &Error{Kind: BadSubstitution, Name: name, Message: "no variable store available"}
	}
	cur := cfg.Env.Get(name)
	if cur.Has(AttrReadOnly) {
		return &Error{Kind: BadSubstitution, Name: name, Message: "readonly variable"}
	}
	return cfg.Env.Set(name, Variable{Set: true, Kind: Scalar, Str: val, Attrs: cur.Attrs})
}

func isSpecialParam(name string) bool {
	switch name {
	case "@", "*", "#", "?", "$", "!", "-", "0":
		return true
	}
	if len(name) > 0 && name[0] >= '0' && name[0] <= '9' {
		return true
	}
	return false
}

func (cfg *Config) namesWithPrefix(prefix string) []string {
	var out []string
	if cfg.Env == nil {
		return out
	}
	cfg.Env.Each(func(name string, vr Variable) bool {
		if strings.HasPrefix(name, prefix) && vr.Set {
			out = append(out, name)
		}
		return true
	})
	return out
}

// stripPrefix strips the shortest/longest prefix of val matching pat,
// spec §4.3's ${VAR#P}/${VAR##P}.
func stripPrefix(val, pat string, longest bool) string {
	if longest {
		for j := len(val); j >= 0; j-- {
			if ok, _ := pattern.Match(pat, val[:j]); ok {
				return val[j:]
			}
		}
		return val
	}
	for j := 0; j <= len(val); j++ {
		if ok, _ := pattern.Match(pat, val[:j]); ok {
			return val[j:]
		}
	}
	return val
}

// stripSuffix strips the shortest/longest suffix of val matching pat,
// spec §4.3's ${VAR%P}/${VAR%%P}.
func stripSuffix(val, pat string, longest bool) string {
	n := len(val)
	if longest {
		for i := 0; i <= n; i++ {
			if ok, _ := pattern.Match(pat, val[i:]); ok {
				return val[:i]
			}
		}
		return val
	}
	for i := n; i >= 0; i-- {
		if ok, _ := pattern.Match(pat, val[i:]); ok {
			return val[:i]
		}
	}
	return val
}

// globReplace implements ${VAR/P/R} / ${VAR//P/R}, with /#P and /%P
// anchoring the match to the start/end (spec §4.3).
func globReplace(val, pat, repl string, all bool, anchor ast.ReplaceAnchor) (string, error) {
	switch anchor {
	case ast.AnchorPrefix:
		for j := len(val); j >= 0; j-- {
			if ok, err := pattern.Match(pat, val[:j]); err != nil {
				return "", err
			} else if ok {
				return repl + val[j:], nil
			}
		}
		return val, nil
	case ast.AnchorSuffix:
		for i := 0; i <= len(val); i++ {
			if ok, err := pattern.Match(pat, val[i:]); err != nil {
				return "", err
			} else if ok {
				return val[:i] + repl, nil
			}
		}
		return val, nil
	}

	var out strings.Builder
	i := 0
	for i <= len(val) {
		matched := false
		for j := len(val); j > i; j-- {
			ok, err := pattern.Match(pat, val[i:j])
			if err != nil {
				return "", err
			}
			if ok {
				out.WriteString(repl)
				i = j
				matched = true
				break
			}
		}
		if matched {
			if !all {
				out.WriteString(val[i:])
				return out.String(), nil
			}
			continue
		}
		if i < len(val) {
			out.WriteByte(val[i])
			i++
		} else {
			break
		}
	}
	return out.String(), nil
}

func caseConvert(val string, op ast.ParamOp) string {
	switch op {
	case ast.ParamUpperAll:
		return strings.ToUpper(val)
	case ast.ParamLowerAll:
		return strings.ToLower(val)
	case ast.ParamUpperFirst:
		if val == "" {
			return val
		}
		return strings.ToUpper(val[:1]) + val[1:]
	case ast.ParamLowerFirst:
		if val == "" {
			return val
		}
		return strings.ToLower(val[:1]) + val[1:]
	}
	return val
}

func substring(val string, pe *ast.ParamExpr, cfg *Config) string {
	n := int64(len(val))
	off, err := EvalArith(pe.Arg, cfg.Env)
	if err != nil {
		return ""
	}
	if off < 0 {
		off += n
	}
	if off < 0 {
		off = 0
	}
	if off > n {
		off = n
	}
	end := n
	if pe.Arg2 != "" {
		length, err := EvalArith(pe.Arg2, cfg.Env)
		if err != nil {
			return ""
		}
		if length < 0 {
			end = n + length
		} else {
			end = off + length
		}
	}
	if end > n {
		end = n
	}
	if end < off {
		end = off
	}
	return val[off:end]
}
