//go:build !windows
// +build !windows

package interp

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/creack/pty"

	"github.com/philipwilsonTHG/psh/parser"
)

// TestRunnerTerminalStdIO grounds spec §3.1's "-t fd" test against a real
// pseudo-terminal, the same way the donor pack exercises terminal-backed
// I/O: a secondary end wired to the Runner's streams, a primary end the
// test reads from.
func TestRunnerTerminalStdIO(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files func(*testing.T) (secondary io.Writer, primary io.Reader)
		want  string
	}{
		{"Pipe", func(t *testing.T) (io.Writer, io.Reader) {
			pr, pw := io.Pipe()
			return pw, pr
		}, "end\n"},
		{"Pseudo", func(t *testing.T) (io.Writer, io.Reader) {
			primary, secondary, err := pty.Open()
			if err != nil {
				t.Fatal(err)
			}
			return secondary, primary
		}, "1end\r\n"},
	}

	src := `if [ -t 1 ]; then echo -n 1; fi; echo end`
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			secondary, primary := test.files(t)
			prog, err := parser.Parse(src, parser.Strict)
			if err != nil {
				t.Fatal(err)
			}

			r := NewRunner([]string{"psh"}, nil)
			r.Stdout = secondary
			r.Stderr = secondary
			var buf bytes.Buffer
			r.Stdin = &buf

			go func() {
				if _, err := r.runProgram(prog); err != nil {
					t.Log(err)
				}
			}()

			got, err := bufio.NewReader(primary).ReadString('\n')
			if err != nil {
				t.Fatal(err)
			}
			if got != test.want {
				t.Fatalf("\nwant: %q\ngot:  %q", test.want, got)
			}
			if closer, ok := secondary.(io.Closer); ok {
				closer.Close()
			}
			if closer, ok := primary.(io.Closer); ok {
				closer.Close()
			}
		})
	}
}

// TestJobManagerLifecycle exercises Register/UpdateProc/List/Lookup
// against synthetic pids (no real fork needed to cover the bookkeeping
// spec §3.4 describes).
func TestJobManagerLifecycle(t *testing.T) {
	jm := NewJobManager()
	job := &Job{Pgid: 4242, Command: "sleep 10", Procs: []*ProcState{{Pid: 4242, State: JobRunning}}}
	n := jm.Register(job)
	if n != 1 {
		t.Fatalf("expected job number 1, got %d", n)
	}

	jm.UpdateProc(4242, JobStopped, StatusOK)
	got := jm.Lookup("%1")
	if got == nil || got.State != JobStopped {
		t.Fatalf("expected job 1 stopped, got %+v", got)
	}

	list := jm.List()
	if len(list) != 1 || list[0].Command != "sleep 10" {
		t.Fatalf("unexpected job list: %+v", list)
	}

	if got := jm.Lookup("%sleep"); got == nil {
		t.Fatal("expected prefix-match lookup on %sleep to find the job")
	}

	jm.UpdateProc(4242, JobDone, StatusOK)
	if got := jm.Lookup("%1"); got == nil || got.State != JobDone {
		t.Fatalf("expected job 1 done, got %+v", got)
	}
}

func TestBuiltinJobsReportsState(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner([]string{"psh"}, nil)
	r.Stdout, r.Stderr = &buf, &buf
	r.Jobs.Register(&Job{Command: "sleep 5", State: JobRunning})

	if _, err := biJobs(r, nil); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); !strings.Contains(got, "sleep 5") {
		t.Fatalf("jobs output missing command: %q", got)
	}
}
