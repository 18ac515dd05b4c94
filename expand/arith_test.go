package expand

import "testing"

func TestEvalArith(t *testing.T) {
	cases := []struct {
		expr string
		want int64
	}{
		{"1+2", 3},
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"2**10", 1024},
		{"10/3", 3},
		{"10%3", 1},
		{"1 << 4", 16},
		{"256 >> 4", 16},
		{"5 & 3", 1},
		{"5 | 2", 7},
		{"5 ^ 1", 4},
		{"~0", -1},
		{"!0", 1},
		{"!5", 0},
		{"1 == 1", 1},
		{"1 != 2", 1},
		{"3 > 2 && 2 > 1", 1},
		{"0 || 1", 1},
		{"1 ? 2 : 3", 2},
		{"0 ? 2 : 3", 3},
		{"0x10", 16},
		{"010", 8},
		{"2#101", 5},
		{"-5", -5},
		{"9223372036854775807 + 1", -9223372036854775808},
	}
	for _, c := range cases {
		got, err := EvalArith(c.expr, nil)
		if err != nil {
			t.Fatalf("EvalArith(%q): %v", c.expr, err)
		}
		if got != c.want {
			t.Errorf("EvalArith(%q) = %d, want %d", c.expr, got, c.want)
		}
	}
}

func TestEvalArithVariables(t *testing.T) {
	env := NewMapEnviron()
	env.Set("x", Variable{Set: true, Kind: Scalar, Str: "5"})

	got, err := EvalArith("x + 1", env)
	if err != nil {
		t.Fatal(err)
	}
	if got != 6 {
		t.Fatalf("got %d, want 6", got)
	}

	got, err = EvalArith("x++", env)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Fatalf("postincrement result = %d, want 5", got)
	}
	if env.Get("x").Str != "6" {
		t.Fatalf("x after x++ = %q, want 6", env.Get("x").Str)
	}

	got, err = EvalArith("x = 42", env)
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 || env.Get("x").Str != "42" {
		t.Fatalf("assignment did not take effect: got=%d x=%q", got, env.Get("x").Str)
	}
}

func TestEvalArithUnsetIsZero(t *testing.T) {
	got, err := EvalArith("unset_var + 1", NewMapEnviron())
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
}

func TestEvalArithDivisionByZero(t *testing.T) {
	if _, err := EvalArith("1/0", nil); err == nil {
		t.Fatal("expected division-by-zero error")
	}
}
