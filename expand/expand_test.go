package expand

import (
	"testing"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/token"
)

func lit(s string, q token.QuoteType) *ast.LiteralPart {
	return &ast.LiteralPart{Value: s, Quote: q}
}

func TestFieldsSplitsUnquotedExpansion(t *testing.T) {
	env := NewMapEnviron()
	env.Set("X", Variable{Set: true, Kind: Scalar, Str: "a b  c"})
	cfg := &Config{Env: env}

	w := ast.Word{Parts: []ast.WordPart{
		&ast.ExpansionPart{Kind: ast.ExpVariable, Raw: "X"},
	}}
	got, err := cfg.Fields(w)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFieldsQuotedExpansionDoesNotSplit(t *testing.T) {
	env := NewMapEnviron()
	env.Set("X", Variable{Set: true, Kind: Scalar, Str: "a b c"})
	cfg := &Config{Env: env}

	w := ast.Word{Parts: []ast.WordPart{
		&ast.ExpansionPart{Kind: ast.ExpVariable, Raw: "X", Quoted: true},
	}}
	got, err := cfg.Fields(w)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "a b c" {
		t.Fatalf("got %v, want one field %q", got, "a b c")
	}
}

func TestFieldsUnsetVariableVanishes(t *testing.T) {
	cfg := &Config{Env: NewMapEnviron()}
	w := ast.Word{Parts: []ast.WordPart{
		&ast.ExpansionPart{Kind: ast.ExpVariable, Raw: "UNSET"},
	}}
	got, err := cfg.Fields(w)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want no fields", got)
	}
}

func TestLiteralConcatenatesParts(t *testing.T) {
	env := NewMapEnviron()
	env.Set("NAME", Variable{Set: true, Kind: Scalar, Str: "world"})
	cfg := &Config{Env: env}

	w := ast.Word{Parts: []ast.WordPart{
		lit("hello-", token.NoQuote),
		&ast.ExpansionPart{Kind: ast.ExpVariable, Raw: "NAME"},
	}}
	got, err := cfg.Literal(w)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello-world" {
		t.Fatalf("got %q, want hello-world", got)
	}
}

func TestParamDefaultOperator(t *testing.T) {
	cfg := &Config{Env: NewMapEnviron()}
	pe := &ast.ParamExpr{Name: "UNSET", Op: ast.ParamDefault, Arg: "fallback"}
	fields, err := cfg.expandParam(pe)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 || fields[0] != "fallback" {
		t.Fatalf("got %v, want [fallback]", fields)
	}
}

func TestParamRemoveShortestPrefix(t *testing.T) {
	env := NewMapEnviron()
	env.Set("P", Variable{Set: true, Kind: Scalar, Str: "/usr/local/bin"})
	cfg := &Config{Env: env}
	pe := &ast.ParamExpr{Name: "P", Op: ast.ParamRemShortPre, Arg: "*/"}
	fields, err := cfg.expandParam(pe)
	if err != nil {
		t.Fatal(err)
	}
	if fields[0] != "usr/local/bin" {
		t.Fatalf("got %q", fields[0])
	}
}

func TestParamRemoveLongestPrefix(t *testing.T) {
	env := NewMapEnviron()
	env.Set("P", Variable{Set: true, Kind: Scalar, Str: "/usr/local/bin"})
	cfg := &Config{Env: env}
	pe := &ast.ParamExpr{Name: "P", Op: ast.ParamRemLongPre, Arg: "*/"}
	fields, err := cfg.expandParam(pe)
	if err != nil {
		t.Fatal(err)
	}
	if fields[0] != "bin" {
		t.Fatalf("got %q", fields[0])
	}
}

func TestParamUpperLower(t *testing.T) {
	env := NewMapEnviron()
	env.Set("S", Variable{Set: true, Kind: Scalar, Str: "Hello"})
	cfg := &Config{Env: env}
	fields, err := cfg.expandParam(&ast.ParamExpr{Name: "S", Op: ast.ParamUpperAll})
	if err != nil {
		t.Fatal(err)
	}
	if fields[0] != "HELLO" {
		t.Fatalf("got %q", fields[0])
	}
	fields, err = cfg.expandParam(&ast.ParamExpr{Name: "S", Op: ast.ParamLowerAll})
	if err != nil {
		t.Fatal(err)
	}
	if fields[0] != "hello" {
		t.Fatalf("got %q", fields[0])
	}
}

func TestSubshellIsolation(t *testing.T) {
	env := NewMapEnviron()
	env.Set("X", Variable{Set: true, Kind: Scalar, Str: "1"})
	sub := env.Copy()
	sub.Set("X", Variable{Set: true, Kind: Scalar, Str: "2"})
	if env.Get("X").Str != "1" {
		t.Fatalf("parent mutated: got %q", env.Get("X").Str)
	}
}
