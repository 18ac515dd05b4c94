// psh is an interactive/scripted POSIX-subset shell built on top of
// [interp], spec §6.2.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/philipwilsonTHG/psh/interp"
	"github.com/philipwilsonTHG/psh/parser"
)

var (
	command     = flag.String("c", "", "command to execute")
	interactive = flag.Bool("i", false, "force interactive mode")
	noRC        = flag.Bool("norc", false, "skip reading the startup file")
	loginShell  = flag.Bool("l", false, "act as a login shell")
)

func main() { os.Exit(main1()) }

// main1 is split out from main so tests can drive the whole CLI via
// testscript.RunMain without forking a real psh binary.
func main1() int {
	flag.Parse()
	err := runAll()
	var ee *interp.ShellExitError
	if errors.As(err, &ee) {
		return int(ee.Status)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runAll() error {
	r := interp.NewRunner(os.Args, os.Environ())
	r.Arg0 = filepath.Base(os.Args[0])

	if *command != "" {
		r.Arg0 = "psh"
		r.Positional = flag.Args()
		return run(r, strings.NewReader(*command), "")
	}

	if flag.NArg() == 0 {
		if *interactive || term.IsTerminal(int(os.Stdin.Fd())) {
			return runInteractive(r)
		}
		return run(r, os.Stdin, "")
	}

	path := flag.Arg(0)
	r.Arg0 = path
	r.Positional = flag.Args()[1:]
	return runPath(r, path)
}

func run(r *interp.Runner, reader io.Reader, name string) error {
	src, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	prog, err := parser.Parse(string(src), parser.Strict)
	if err != nil {
		return err
	}
	status := r.Run(prog)
	if status != interp.StatusOK {
		return &interp.ShellExitError{Status: status}
	}
	return nil
}

func runPath(r *interp.Runner, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return run(r, f, path)
}

// runInteractive implements spec §4.6's interactive startup ordering:
// install job-control signal dispositions before the first prompt, read
// history, then loop prompt/read/parse/run until EOF, saving history on
// the way out.
func runInteractive(r *interp.Runner) error {
	r.Signals = interp.NewSignalManager(r)
	r.Signals.InstallInteractive()
	defer r.Signals.RestoreForeground()

	histPath := ""
	if home := os.Getenv("HOME"); home != "" {
		histPath = filepath.Join(home, ".psh_history")
	}
	r.Hist = interp.NewHistory(histPath)
	_ = r.Hist.Load()
	defer r.Hist.Save()

	if !*noRC {
		if home := os.Getenv("HOME"); home != "" {
			rcPath := filepath.Join(home, ".pshrc")
			if data, err := os.ReadFile(rcPath); err == nil {
				if prog, err := parser.Parse(string(data), parser.Strict); err == nil {
					r.Run(prog)
				}
			}
		}
	}

	r.Line = interp.NewLineReader(os.Stdin)
	for {
		ps1 := expandPrompt(r, "$ ")
		line, err := r.Line.ReadLine(os.Stdout, ps1)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		r.Hist.Add(line)

		prog, perr := parser.Parse(line, parser.Recover)
		if perr != nil {
			fmt.Fprintln(os.Stderr, perr)
			continue
		}
		r.Run(prog)
		if r.Exited {
			return nil
		}
	}
}

func expandPrompt(r *interp.Runner, fallback string) string {
	vr := r.Vars.Get("PS1")
	if !vr.Set {
		return fallback
	}
	return vr.Str
}
