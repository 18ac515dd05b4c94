package lexer

import (
	"strconv"
	"strings"
)

// ExpandBraces is the brace-expansion preprocessing pass from spec §4.1
// step 1: `{a,b,c}` and `{1..5}` are expanded on literal text before
// tokenization begins, producing a flat string. Invalid patterns (`{}`,
// `{a}`, incompatible-endpoint ranges) are left untouched. Quoted regions
// are never touched: brace expansion only ever applies to literal,
// unquoted source text.
func ExpandBraces(input string) string {
	out, _ := expandBracesFrom(input, 0, false)
	return out
}

// expandBracesFrom expands braces starting at i until it hits the end of
// input or (if stopAtClose) an unmatched '}' that belongs to an enclosing
// call. It returns the expanded text and the index just past what it
// consumed.
func expandBracesFrom(s string, i int, stopAtClose bool) (string, int) {
	var out strings.Builder
	for i < len(s) {
		switch s[i] {
		case '\'':
			j := matchQuote(s, i, '\'')
			out.WriteString(s[i:j])
			i = j
		case '"':
			j := matchDoubleQuote(s, i)
			out.WriteString(s[i:j])
			i = j
		case '\\':
			if i+1 < len(s) {
				out.WriteString(s[i : i+2])
				i += 2
			} else {
				out.WriteByte(s[i])
				i++
			}
		case '}':
			if stopAtClose {
				return out.String(), i
			}
			out.WriteByte(s[i])
			i++
		case '{':
			group, next, ok := scanBraceGroup(s, i)
			if !ok {
				out.WriteByte(s[i])
				i++
				continue
			}
			expanded, did := expandGroup(group)
			if !did {
				out.WriteString(s[i:next])
			} else {
				out.WriteString(expanded)
			}
			i = next
		default:
			out.WriteByte(s[i])
			i++
		}
	}
	return out.String(), i
}

func matchQuote(s string, i int, q byte) int {
	i++
	for i < len(s) && s[i] != q {
		i++
	}
	if i < len(s) {
		i++
	}
	return i
}

func matchDoubleQuote(s string, i int) int {
	i++
	for i < len(s) && s[i] != '"' {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		i++
	}
	if i < len(s) {
		i++
	}
	return i
}

// scanBraceGroup finds the text between a matching '{' and '}' pair
// (honoring nesting and quotes), returning the inner text and the index
// just past the closing brace.
func scanBraceGroup(s string, i int) (inner string, next int, ok bool) {
	depth := 0
	start := i
	j := i
	for j < len(s) {
		switch s[j] {
		case '\'':
			j = matchQuote(s, j, '\'')
			continue
		case '"':
			j = matchDoubleQuote(s, j)
			continue
		case '\\':
			if j+1 < len(s) {
				j += 2
			} else {
				j++
			}
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start+1 : j], j + 1, true
			}
		}
		j++
	}
	return "", i, false
}

// splitTopLevel splits s on commas that are not nested inside '{...}',
// quotes, or an escape.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	i := 0
	for i < len(s) {
		switch s[i] {
		case '\'':
			i = matchQuote(s, i, '\'')
			continue
		case '"':
			i = matchDoubleQuote(s, i)
			continue
		case '\\':
			if i+1 < len(s) {
				i += 2
			} else {
				i++
			}
			continue
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
		i++
	}
	parts = append(parts, s[start:])
	return parts
}

// expandGroup expands the inner text of one `{...}` group: either a
// comma-separated alternation or a `{lo..hi[..step]}` range. It returns
// the fully expanded (and recursively brace-expanded) replacement text and
// whether expansion actually applied.
func expandGroup(inner string) (string, bool) {
	if alts := splitTopLevel(inner); len(alts) > 1 {
		var results []string
		for _, alt := range alts {
			expanded, _ := expandBracesFrom(alt, 0, false)
			results = append(results, expanded)
		}
		return strings.Join(results, " "), true
	}
	if vals, ok := expandRange(inner); ok {
		return strings.Join(vals, " "), true
	}
	return "", false
}

// expandRange handles `{1..5}`, `{5..1}`, `{a..e}`, and a `..step` suffix.
func expandRange(inner string) ([]string, bool) {
	parts := strings.Split(inner, "..")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, false
	}
	step := 1
	if len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n == 0 {
			return nil, false
		}
		step = n
		if step < 0 {
			step = -step
		}
	}
	lo, hi := parts[0], parts[1]
	if li, lerr := strconv.Atoi(lo); lerr == nil {
		if hii, herr := strconv.Atoi(hi); herr == nil {
			return intRange(li, hii, step), true
		}
		return nil, false
	}
	if len(lo) == 1 && len(hi) == 1 && isAlpha(lo[0]) && isAlpha(hi[0]) {
		return charRange(lo[0], hi[0], step), true
	}
	return nil, false
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func intRange(lo, hi, step int) []string {
	var out []string
	if lo <= hi {
		for v := lo; v <= hi; v += step {
			out = append(out, strconv.Itoa(v))
		}
	} else {
		for v := lo; v >= hi; v -= step {
			out = append(out, strconv.Itoa(v))
		}
	}
	return out
}

func charRange(lo, hi byte, step int) []string {
	var out []string
	if lo <= hi {
		for v := int(lo); v <= int(hi); v += step {
			out = append(out, string(rune(v)))
		}
	} else {
		for v := int(lo); v >= int(hi); v -= step {
			out = append(out, string(rune(v)))
		}
	}
	return out
}
