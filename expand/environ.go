// Package expand implements spec §4.3's eight ordered word expansions —
// tilde, parameter, command substitution, arithmetic delegation, word
// splitting, pathname expansion, and quote removal (brace expansion runs
// earlier, at lex time) — grounded on the donor's expand package: an
// Environ the caller supplies, a Config bundling the knobs, and a Variable
// value type with an explicit Kind instead of an interface{} union.
package expand

import "strconv"

// Attr is the spec §3.3 variable-attribute bitset (assoc/indexed are
// folded into Kind instead of living here, since they're mutually
// exclusive with every other attribute and with each other).
type Attr uint16

const (
	AttrExported Attr = 1 << iota
	AttrReadOnly
	AttrInteger
	AttrLower
	AttrUpper
	AttrNameRef
	AttrLocal
)

// ValueKind says which of Variable's value fields is meaningful.
type ValueKind uint8

const (
	Unknown ValueKind = iota
	Scalar
	Indexed
	Associative
)

// Variable is the runtime value of a shell variable (spec §3.3). Declared
// but unset variables have Set == false but may still carry Kind/Attrs
// (e.g. `declare -a foo` or `export foo`).
type Variable struct {
	Set   bool
	Attrs Attr
	Kind  ValueKind

	Str string // Kind == Scalar

	IndexOrder []int64         // insertion order, Kind == Indexed
	Indexed    map[int64]string

	AssocOrder []string // insertion order, Kind == Associative
	Assoc      map[string]string
}

func (v Variable) IsSet() bool { return v.Set }

func (v Variable) Has(a Attr) bool { return v.Attrs&a != 0 }

// String renders a Variable the way unquoted scalar use sees it: the
// string value, or the first element of an indexed array (spec §3.3,
// mirrored on the donor's Variable.String()).
func (v Variable) String() string {
	switch v.Kind {
	case Scalar:
		return v.Str
	case Indexed:
		if len(v.IndexOrder) > 0 {
			return v.Indexed[v.IndexOrder[0]]
		}
	case Associative:
	}
	return ""
}

// Elements returns a Variable's array values in iteration order, used for
// ${arr[@]}/${arr[*]} and for $@/$* (spec §3.3's insertion-order
// guarantee for AssocArray, and the "preserve insertion order... when
// index order is ambiguous" note for IndexedArray).
func (v Variable) Elements() []string {
	switch v.Kind {
	case Indexed:
		out := make([]string, len(v.IndexOrder))
		for i, k := range v.IndexOrder {
			out[i] = v.Indexed[k]
		}
		return out
	case Associative:
		out := make([]string, len(v.AssocOrder))
		for i, k := range v.AssocOrder {
			out[i] = v.Assoc[k]
		}
		return out
	default:
		if v.Set {
			return []string{v.Str}
		}
		return nil
	}
}

// Keys returns an indexed array's integer subscripts, or an associative
// array's string keys rendered as strings, for ${!arr[@]}.
func (v Variable) Keys() []string {
	switch v.Kind {
	case Indexed:
		out := make([]string, len(v.IndexOrder))
		for i, k := range v.IndexOrder {
			out[i] = strconv.FormatInt(k, 10)
		}
		return out
	case Associative:
		return append([]string(nil), v.AssocOrder...)
	}
	return nil
}

// Environ is the read side of the variable store the expander needs.
type Environ interface {
	Get(name string) Variable
	Each(func(name string, vr Variable) bool)
}

// WriteEnviron additionally allows assignment, needed for `${VAR:=W}` and
// for `((i++))`/`((x=1))` arithmetic side effects.
type WriteEnviron interface {
	Environ
	Set(name string, vr Variable) error
}

// MapEnviron is a minimal in-memory Environ/WriteEnviron, handy for tests
// and for the deep-copy a subshell receives at fork time (spec §3.3
// "Ownership").
type MapEnviron struct {
	vars map[string]Variable
}

func NewMapEnviron() *MapEnviron { return &MapEnviron{vars: map[string]Variable{}} }

func (m *MapEnviron) Get(name string) Variable { return m.vars[name] }

func (m *MapEnviron) Set(name string, vr Variable) error {
	m.vars[name] = vr
	return nil
}

func (m *MapEnviron) Each(f func(name string, vr Variable) bool) {
	for name, vr := range m.vars {
		if !f(name, vr) {
			return
		}
	}
}

// Copy returns an independent deep copy, used for the subshell-isolation
// invariant (spec §3.3/§8: "( X=1 ); echo ${X:-unset} prints unset").
func (m *MapEnviron) Copy() *MapEnviron {
	out := NewMapEnviron()
	for k, v := range m.vars {
		cp := v
		if v.Indexed != nil {
			cp.Indexed = make(map[int64]string, len(v.Indexed))
			for ik, iv := range v.Indexed {
				cp.Indexed[ik] = iv
			}
			cp.IndexOrder = append([]int64(nil), v.IndexOrder...)
		}
		if v.Assoc != nil {
			cp.Assoc = make(map[string]string, len(v.Assoc))
			for ak, av := range v.Assoc {
				cp.Assoc[ak] = av
			}
			cp.AssocOrder = append([]string(nil), v.AssocOrder...)
		}
		out.vars[k] = cp
	}
	return out
}
