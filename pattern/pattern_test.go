package pattern

import "testing"

func TestMatch(t *testing.T) {
	cases := []struct {
		pat, name string
		want      bool
	}{
		{"foo", "foo", true},
		{"foo", "foobar", false},
		{"foo*", "foobar", true},
		{"f?o", "foo", true},
		{"f?o", "fooo", false},
		{"[abc]at", "bat", true},
		{"[abc]at", "dat", false},
		{"[!abc]at", "dat", true},
		{"[!abc]at", "bat", false},
		{"*.go", "pattern.go", true},
		{"*.go", "pattern.go.bak", false},
		{`\*`, "*", true},
		{`\*`, "x", false},
	}
	for _, c := range cases {
		got, err := Match(c.pat, c.name)
		if err != nil {
			t.Fatalf("Match(%q, %q): %v", c.pat, c.name, err)
		}
		if got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pat, c.name, got, c.want)
		}
	}
}

func TestHasMeta(t *testing.T) {
	if !HasMeta("a*b") {
		t.Error("expected a*b to have meta")
	}
	if HasMeta(`a\*b`) {
		t.Error(`expected a\*b (escaped) to have no meta`)
	}
	if HasMeta("plain") {
		t.Error("expected plain to have no meta")
	}
}
