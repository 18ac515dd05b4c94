// Package pattern implements POSIX shell pathname/glob matching: the `*`,
// `?`, `[set]`, `[!set]` wildcards used by pathname expansion (spec §4.3
// step 7) and `case` pattern arms (spec §4.4), grounded on the donor
// package of the same name (translate-to-regexp, not a hand-rolled
// matcher).
package pattern

import (
	"regexp"
	"strings"
)

// Mode enables optional matching behavior.
type Mode uint

const (
	// EntireString anchors the translated regexp with ^ and $, used for
	// case patterns and parameter-expansion pattern operators (where the
	// whole value must match), as opposed to pathname expansion (where a
	// path component is matched piecewise by the caller).
	EntireString Mode = 1 << iota
)

// SyntaxError reports a malformed pattern, e.g. an unterminated `[...]`.
type SyntaxError struct{ msg string }

func (e *SyntaxError) Error() string { return e.msg }

// Translate turns a shell pattern into a Go regexp source string (spec
// §4.3: `*`, `?`, `[set]`, `[!set]`; a literal `\` escapes the following
// metacharacter).
func Translate(pat string, mode Mode) (string, error) {
	var sb strings.Builder
	if mode&EntireString != 0 {
		sb.WriteString("^")
	}
	runes := []rune(pat)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '\\':
			if i+1 < len(runes) {
				i++
				sb.WriteString(regexp.QuoteMeta(string(runes[i])))
			} else {
				sb.WriteString(regexp.QuoteMeta(`\`))
			}
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		case '[':
			end, class, err := scanClass(runes, i)
			if err != nil {
				// An unterminated class is a literal '[' (spec §4.1's
				// "invalid patterns preserved literally" principle
				// extended to globs).
				sb.WriteString(regexp.QuoteMeta("["))
				continue
			}
			sb.WriteString(class)
			i = end
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if mode&EntireString != 0 {
		sb.WriteString("$")
	}
	return sb.String(), nil
}

// scanClass translates a `[...]`/`[!...]` bracket expression starting at
// runes[i]=='[' into the equivalent regexp class, returning the index of
// the closing `]`.
func scanClass(runes []rune, i int) (end int, class string, err error) {
	j := i + 1
	neg := false
	if j < len(runes) && (runes[j] == '!' || runes[j] == '^') {
		neg = true
		j++
	}
	start := j
	// A ']' immediately after the opening (or after the negation) is a
	// literal member of the class, per POSIX bracket-expression rules.
	if j < len(runes) && runes[j] == ']' {
		j++
	}
	for j < len(runes) && runes[j] != ']' {
		j++
	}
	if j >= len(runes) {
		return 0, "", &SyntaxError{msg: "unterminated character class"}
	}
	body := string(runes[start:j])
	var sb strings.Builder
	sb.WriteString("[")
	if neg {
		sb.WriteString("^")
	}
	sb.WriteString(escapeClassBody(body))
	sb.WriteString("]")
	return j, sb.String(), nil
}

// escapeClassBody protects regexp-significant bytes inside a translated
// bracket expression while leaving ranges (`a-z`) and the leading `]`/`^`
// special cases intact.
func escapeClassBody(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', ']', '^':
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// Regexp compiles pat into a usable *regexp.Regexp.
func Regexp(pat string, mode Mode) (*regexp.Regexp, error) {
	src, err := Translate(pat, mode)
	if err != nil {
		return nil, err
	}
	return regexp.Compile(src)
}

// Match reports whether name matches the entire shell pattern pat (spec
// §4.4 Case and §4.3's parameter-expansion pattern operators both match
// against the whole value).
func Match(pat, name string) (bool, error) {
	re, err := Regexp(pat, EntireString)
	if err != nil {
		return false, err
	}
	return re.MatchString(name), nil
}

// HasMeta reports whether pat contains any unescaped glob metacharacter,
// used by pathname expansion to skip the filesystem walk for plain words.
func HasMeta(pat string) bool {
	for i := 0; i < len(pat); i++ {
		switch pat[i] {
		case '*', '?', '[':
			return true
		case '\\':
			i++
		}
	}
	return false
}
