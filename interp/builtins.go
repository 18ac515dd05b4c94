package interp

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/expand"
	"github.com/philipwilsonTHG/psh/parser"
)

func parseProgram(src string) (*ast.Program, error) {
	return parser.Parse(src, parser.Strict)
}

// builtinFunc is spec §6.4's dispatch signature: `(args, shell) -> i32`,
// reordered to the Go-idiomatic receiver-first form.
type builtinFunc func(r *Runner, args []string) (ExitStatus, error)

// specialBuiltins bypass function lookup and run even when a same-named
// function exists (spec §4.4 step 1: "special builtins... assignments
// persist in the calling shell").
var specialBuiltins = map[string]builtinFunc{
	":":        biColon,
	"true":     biTrue,
	"false":    biFalse,
	"eval":     biEval,
	"exec":     biExec,
	"export":   biExport,
	"readonly": biReadonly,
	"unset":    biUnset,
	"set":      biSet,
	"shift":    biShift,
	"trap":     biTrap,
	"break":    biBreak,
	"continue": biContinue,
	"return":   biReturn,
	"exit":     biExit,
	".":        biSource,
	"source":   biSource,
}

// builtins is the ordinary builtin set, consulted after function lookup.
var builtins = map[string]builtinFunc{
	"cd":      biCd,
	"pwd":     biPwd,
	"read":    biRead,
	"jobs":    biJobs,
	"fg":      biFg,
	"bg":      biBg,
	"wait":    biWait,
	"history": biHistory,
	"alias":   biAlias,
	"unalias": biUnalias,
	"local":   biLocal,
	"declare": biDeclare,
	"typeset": biDeclare,
	"echo":    biEcho,
	"printf":  biPrintf,
	"test":    biTest,
	"[":       biTest,
	"type":    biType,
	"hash":    biHash,
}

func biColon(r *Runner, args []string) (ExitStatus, error) { return StatusOK, nil }
func biTrue(r *Runner, args []string) (ExitStatus, error)  { return StatusOK, nil }
func biFalse(r *Runner, args []string) (ExitStatus, error) { return StatusGeneralError, nil }

func biEval(r *Runner, args []string) (ExitStatus, error) {
	code := strings.Join(args, " ")
	prog, err := parseProgram(code)
	if err != nil {
		fmt.Fprintf(r.Stderr, "psh: eval: %s\n", err)
		return StatusGeneralError, nil
	}
	return r.runProgram(prog)
}

// biExec implements `exec cmd...`: the donor shell can't truly replace its
// own image mid-evaluator-loop (the Go runtime that hosts it would go with
// it), so this covers the common "replace with an external program" case
// via syscall.Exec and leaves the redirects-only `exec` with no command
// (spec's "apply redirects permanently" form) as a documented no-op.
func biExec(r *Runner, args []string) (ExitStatus, error) {
	if len(args) == 0 {
		return StatusOK, nil
	}
	path, err := exec.LookPath(args[0])
	if err != nil {
		fmt.Fprintf(r.Stderr, "psh: exec: %s: not found\n", args[0])
		return StatusNotFound, nil
	}
	env := r.execEnviron()
	err = syscall.Exec(path, args, env)
	fmt.Fprintf(r.Stderr, "psh: exec: %s\n", err)
	return StatusNotExecutable, nil
}

func biExport(r *Runner, args []string) (ExitStatus, error) {
	if len(args) == 0 {
		r.Vars.Each(func(name string, vr expand.Variable) bool {
			if vr.Has(expand.AttrExported) {
				fmt.Fprintf(r.Stdout, "export %s=%s\n", name, vr.String())
			}
			return true
		})
		return StatusOK, nil
	}
	for _, a := range args {
		name, val, hasVal := strings.Cut(a, "=")
		vr := r.Vars.Get(name)
		if hasVal {
			vr.Set, vr.Kind, vr.Str = true, expand.Scalar, val
		}
		vr.Attrs |= expand.AttrExported
		r.Vars.Set(name, vr)
	}
	return StatusOK, nil
}

func biReadonly(r *Runner, args []string) (ExitStatus, error) {
	if len(args) == 0 {
		r.Vars.Each(func(name string, vr expand.Variable) bool {
			if vr.Has(expand.AttrReadOnly) {
				fmt.Fprintf(r.Stdout, "readonly %s=%s\n", name, vr.String())
			}
			return true
		})
		return StatusOK, nil
	}
	for _, a := range args {
		name, val, hasVal := strings.Cut(a, "=")
		vr := r.Vars.Get(name)
		if hasVal {
			vr.Set, vr.Kind, vr.Str = true, expand.Scalar, val
		}
		vr.Attrs |= expand.AttrReadOnly
		r.Vars.Set(name, vr)
	}
	return StatusOK, nil
}

func biUnset(r *Runner, args []string) (ExitStatus, error) {
	for _, name := range args {
		if vr := r.Vars.Get(name); vr.Has(expand.AttrReadOnly) {
			fmt.Fprintf(r.Stderr, "psh: unset: %s: readonly variable\n", name)
			return StatusGeneralError, nil
		}
		r.Vars.Unset(name)
	}
	return StatusOK, nil
}

func biSet(r *Runner, args []string) (ExitStatus, error) {
	i := 0
	for i < len(args) {
		a := args[i]
		if a == "--" {
			i++
			break
		}
		if len(a) < 2 || (a[0] != '-' && a[0] != '+') {
			break
		}
		enable := a[0] == '-'
		if a == "-o" || a == "+o" {
			i++
			if i >= len(args) {
				for name, opt := range optionNames {
					fmt.Fprintf(r.Stdout, "%-15s %v\n", name, r.Opts&opt != 0)
				}
				return StatusOK, nil
			}
			if opt, ok := optionNames[args[i]]; ok {
				if enable {
					r.Opts |= opt
				} else {
					r.Opts &^= opt
				}
			}
			i++
			continue
		}
		for _, c := range a[1:] {
			if opt, ok := shortLetters[byte(c)]; ok {
				if enable {
					r.Opts |= opt
				} else {
					r.Opts &^= opt
				}
			}
		}
		i++
	}
	if i < len(args) {
		r.Positional = append([]string(nil), args[i:]...)
	}
	return StatusOK, nil
}

func biShift(r *Runner, args []string) (ExitStatus, error) {
	n := 1
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			n = v
		}
	}
	if n > len(r.Positional) {
		return StatusGeneralError, nil
	}
	r.Positional = r.Positional[n:]
	return StatusOK, nil
}

func biTrap(r *Runner, args []string) (ExitStatus, error) {
	if len(args) == 0 {
		for name, tr := range r.Traps.All() {
			if tr.Action == TrapCommand {
				fmt.Fprintf(r.Stdout, "trap -- %q %s\n", tr.Command, name)
			}
		}
		return StatusOK, nil
	}
	if args[0] == "-l" || args[0] == "-p" {
		return StatusOK, nil
	}
	if len(args) == 1 {
		r.Traps.Unset(args[0])
		return StatusOK, nil
	}
	action := args[0]
	for _, name := range args[1:] {
		switch action {
		case "-":
			r.Traps.Set(name, Trap{Action: TrapDefault})
		case "":
			r.Traps.Set(name, Trap{Action: TrapIgnore})
		default:
			r.Traps.Set(name, Trap{Action: TrapCommand, Command: action})
		}
	}
	return StatusOK, nil
}

func biBreak(r *Runner, args []string) (ExitStatus, error) {
	lvl := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			lvl = n
		}
	}
	return StatusOK, &LoopBreak{Level: lvl}
}

func biContinue(r *Runner, args []string) (ExitStatus, error) {
	lvl := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			lvl = n
		}
	}
	return StatusOK, &LoopContinue{Level: lvl}
}

func biReturn(r *Runner, args []string) (ExitStatus, error) {
	status := r.LastStatus
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			status = ExitStatus(n)
		}
	}
	return status, &FunctionReturn{Status: status}
}

func biExit(r *Runner, args []string) (ExitStatus, error) {
	status := r.LastStatus
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			status = ExitStatus(n)
		}
	}
	return status, &ShellExitError{Status: status}
}

func biSource(r *Runner, args []string) (ExitStatus, error) {
	if len(args) == 0 {
		return StatusUsageError, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(r.Stderr, "psh: %s: %s\n", args[0], err)
		return StatusGeneralError, nil
	}
	prog, err := parseProgram(string(data))
	if err != nil {
		fmt.Fprintf(r.Stderr, "psh: %s: %s\n", args[0], err)
		return StatusGeneralError, nil
	}
	saved := r.Positional
	if len(args) > 1 {
		r.Positional = args[1:]
	}
	status, runErr := r.runProgram(prog)
	r.Positional = saved
	return status, runErr
}

func biCd(r *Runner, args []string) (ExitStatus, error) {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	} else if h := r.Vars.Get("HOME"); h.Set {
		dir = h.Str
	}
	if dir == "-" {
		if o := r.Vars.Get("OLDPWD"); o.Set {
			dir = o.Str
		}
	}
	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(r.Stderr, "psh: cd: %s\n", err)
		return StatusGeneralError, nil
	}
	old := r.Vars.Get("PWD")
	wd, _ := os.Getwd()
	r.Vars.Set("OLDPWD", old)
	r.Vars.Set("PWD", expand.Variable{Set: true, Kind: expand.Scalar, Str: wd, Attrs: expand.AttrExported})
	return StatusOK, nil
}

func biPwd(r *Runner, args []string) (ExitStatus, error) {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(r.Stderr, "psh: pwd: %s\n", err)
		return StatusGeneralError, nil
	}
	fmt.Fprintln(r.Stdout, wd)
	return StatusOK, nil
}

func biRead(r *Runner, args []string) (ExitStatus, error) {
	names := args
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	reader := bufio.NewReader(r.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return StatusGeneralError, nil
	}
	line = strings.TrimRight(line, "\n")
	fields := splitReadFields(line, r.ifsValue(), len(names))
	for i, name := range names {
		val := ""
		if i < len(fields) {
			val = fields[i]
		}
		r.Vars.Set(name, expand.Variable{Set: true, Kind: expand.Scalar, Str: val})
	}
	return StatusOK, nil
}

func splitReadFields(line, ifs string, n int) []string {
	parts := strings.FieldsFunc(line, func(c rune) bool { return strings.ContainsRune(ifs, c) })
	if n > 0 && len(parts) > n {
		head := append([]string(nil), parts[:n-1]...)
		tail := strings.Join(parts[n-1:], " ")
		return append(head, tail)
	}
	return parts
}

func biJobs(r *Runner, args []string) (ExitStatus, error) {
	for _, j := range r.Jobs.List() {
		fmt.Fprintf(r.Stdout, "[%d]  %-8s %s\n", j.Number, j.State, j.Command)
	}
	return StatusOK, nil
}

func biFg(r *Runner, args []string) (ExitStatus, error) {
	spec := ""
	if len(args) > 0 {
		spec = args[0]
	}
	j := r.Jobs.Lookup(spec)
	if j == nil {
		fmt.Fprintln(r.Stderr, "psh: fg: no such job")
		return StatusGeneralError, nil
	}
	j.Foreground = true
	if r.Signals != nil && r.Signals.ttyFd >= 0 {
		_ = tcSetForeground(r.Signals.ttyFd, j.Pgid)
	}
	if j.State == JobStopped {
		_ = syscall.Kill(-j.Pgid, syscall.SIGCONT)
		j.State = JobRunning
	}
	fmt.Fprintln(r.Stdout, j.Command)
	return StatusOK, nil
}

func biBg(r *Runner, args []string) (ExitStatus, error) {
	spec := ""
	if len(args) > 0 {
		spec = args[0]
	}
	j := r.Jobs.Lookup(spec)
	if j == nil {
		fmt.Fprintln(r.Stderr, "psh: bg: no such job")
		return StatusGeneralError, nil
	}
	if j.State == JobStopped {
		_ = syscall.Kill(-j.Pgid, syscall.SIGCONT)
		j.State = JobRunning
	}
	fmt.Fprintf(r.Stdout, "[%d] %s &\n", j.Number, j.Command)
	return StatusOK, nil
}

// biWait is a best-effort reap: the JobManager doesn't retain live
// *os.Process handles, so this drains whatever SIGCHLD has already
// queued rather than blocking until the target job finishes.
func biWait(r *Runner, args []string) (ExitStatus, error) {
	r.reapChildren()
	return StatusOK, nil
}

func biHistory(r *Runner, args []string) (ExitStatus, error) {
	if r.Hist == nil {
		return StatusOK, nil
	}
	for i, e := range r.Hist.Entries() {
		fmt.Fprintf(r.Stdout, "%5d  %s\n", i+1, e)
	}
	return StatusOK, nil
}

func biAlias(r *Runner, args []string) (ExitStatus, error) {
	if len(args) == 0 {
		r.Aliases.Each(func(name, val string) {
			fmt.Fprintf(r.Stdout, "alias %s='%s'\n", name, val)
		})
		return StatusOK, nil
	}
	for _, a := range args {
		name, val, ok := strings.Cut(a, "=")
		if !ok {
			if v, found := r.Aliases.Get(a); found {
				fmt.Fprintf(r.Stdout, "alias %s='%s'\n", a, v)
			}
			continue
		}
		r.Aliases.Set(name, val)
	}
	return StatusOK, nil
}

func biUnalias(r *Runner, args []string) (ExitStatus, error) {
	for _, name := range args {
		r.Aliases.Unset(name)
	}
	return StatusOK, nil
}

func biLocal(r *Runner, args []string) (ExitStatus, error) {
	for _, a := range args {
		name, val, hasVal := strings.Cut(a, "=")
		var vr expand.Variable
		if hasVal {
			vr = expand.Variable{Set: true, Kind: expand.Scalar, Str: val}
		}
		r.Vars.SetLocal(name, vr)
	}
	return StatusOK, nil
}

func biDeclare(r *Runner, args []string) (ExitStatus, error) {
	var attrs expand.Attr
	i := 0
	for i < len(args) && strings.HasPrefix(args[i], "-") {
		for _, c := range args[i][1:] {
			switch c {
			case 'x':
				attrs |= expand.AttrExported
			case 'r':
				attrs |= expand.AttrReadOnly
			case 'i':
				attrs |= expand.AttrInteger
			case 'l':
				attrs |= expand.AttrLower
			case 'u':
				attrs |= expand.AttrUpper
			}
		}
		i++
	}
	for _, a := range args[i:] {
		name, val, hasVal := strings.Cut(a, "=")
		vr := r.Vars.Get(name)
		if hasVal {
			vr.Set, vr.Kind, vr.Str = true, expand.Scalar, val
		}
		vr.Attrs |= attrs
		r.Vars.Set(name, vr)
	}
	return StatusOK, nil
}

func biEcho(r *Runner, args []string) (ExitStatus, error) {
	i := 0
	noNewline, interpret := false, false
	for i < len(args) && len(args[i]) > 1 && args[i][0] == '-' {
		opt := args[i][1:]
		valid := true
		for _, c := range opt {
			if c != 'n' && c != 'e' && c != 'E' {
				valid = false
			}
		}
		if !valid {
			break
		}
		if strings.ContainsRune(opt, 'n') {
			noNewline = true
		}
		if strings.ContainsRune(opt, 'e') {
			interpret = true
		}
		i++
	}
	parts := append([]string(nil), args[i:]...)
	if interpret {
		for j, p := range parts {
			parts[j] = interpretEchoEscapes(p)
		}
	}
	out := strings.Join(parts, " ")
	if noNewline {
		fmt.Fprint(r.Stdout, out)
	} else {
		fmt.Fprintln(r.Stdout, out)
	}
	return StatusOK, nil
}

func interpretEchoEscapes(s string) string {
	repl := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\\`, "\\")
	return repl.Replace(s)
}

func biPrintf(r *Runner, args []string) (ExitStatus, error) {
	if len(args) == 0 {
		return StatusUsageError, nil
	}
	fmt.Fprint(r.Stdout, expandPrintfFormat(args[0], args[1:]))
	return StatusOK, nil
}

func expandPrintfFormat(format string, args []string) string {
	format = strings.NewReplacer(`\n`, "\n", `\t`, "\t").Replace(format)
	var out strings.Builder
	ai := 0
	next := func() string {
		if ai < len(args) {
			a := args[ai]
			ai++
			return a
		}
		return ""
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == '%' && i+1 < len(format) {
			switch format[i+1] {
			case 's':
				out.WriteString(next())
				i++
				continue
			case 'd', 'i':
				v, _ := strconv.ParseInt(strings.TrimSpace(next()), 0, 64)
				out.WriteString(strconv.FormatInt(v, 10))
				i++
				continue
			case '%':
				out.WriteByte('%')
				i++
				continue
			}
		}
		out.WriteByte(c)
	}
	return out.String()
}

func biTest(r *Runner, args []string) (ExitStatus, error) {
	if len(args) > 0 && args[len(args)-1] == "]" {
		args = args[:len(args)-1]
	}
	if len(args) == 2 && args[0] == "-t" {
		streams := map[string]interface{}{"0": r.Stdin, "1": r.Stdout, "2": r.Stderr}
		if f, ok := streams[args[1]].(*os.File); ok && f != nil && term.IsTerminal(int(f.Fd())) {
			return StatusOK, nil
		}
		return StatusGeneralError, nil
	}
	ok, err := evalTestArgs(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "psh: test: %s\n", err)
		return StatusGeneralError, nil
	}
	if ok {
		return StatusOK, nil
	}
	return StatusGeneralError, nil
}

func biType(r *Runner, args []string) (ExitStatus, error) {
	for _, name := range args {
		switch {
		case specialBuiltins[name] != nil:
			fmt.Fprintf(r.Stdout, "%s is a shell builtin\n", name)
		case r.Functions[name] != nil:
			fmt.Fprintf(r.Stdout, "%s is a function\n", name)
		case builtins[name] != nil:
			fmt.Fprintf(r.Stdout, "%s is a shell builtin\n", name)
		default:
			if p, err := exec.LookPath(name); err == nil {
				fmt.Fprintf(r.Stdout, "%s is %s\n", name, p)
			} else {
				fmt.Fprintf(r.Stdout, "psh: type: %s: not found\n", name)
			}
		}
	}
	return StatusOK, nil
}

// biHash is a no-op: this shell re-resolves $PATH on every external
// command instead of caching a hash table, so there's no cache to print
// or clear.
func biHash(r *Runner, args []string) (ExitStatus, error) { return StatusOK, nil }
