package interp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/expand"
	"github.com/philipwilsonTHG/psh/parser"
	"github.com/philipwilsonTHG/psh/pattern"
)

// Runner is the tree-walking evaluator (spec §4.4): one Runner per shell
// process or subshell, holding the variable store, job table, trap table,
// alias table, and the three standard streams a command or builtin sees.
type Runner struct {
	Vars      *Store
	Aliases   *AliasTable
	Jobs      *JobManager
	Traps     *TrapTable
	Functions map[string]*ast.FunctionDef
	Opts      RunnerOption

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Fds    map[int]*os.File // numbered fds beyond 0/1/2

	Positional []string
	Arg0       string
	LastStatus ExitStatus
	LastBgPID  int
	PID        int

	Signals *SignalManager
	Hist    *History
	Line    *LineReader

	inConditional bool
	foreground    bool

	// Exited records whether the last Run saw the `exit` builtin, so an
	// interactive REPL knows to stop prompting instead of just noting a
	// nonzero status. An `exit` inside a trap command does not set it.
	Exited bool
}

// NewRunner builds a top-level Runner seeded from the process environment,
// the donor's NewInterp equivalent.
func NewRunner(argv []string, environ []string) *Runner {
	r := &Runner{
		Vars:       NewStore(),
		Aliases:    NewAliasTable(),
		Jobs:       NewJobManager(),
		Traps:      NewTrapTable(),
		Functions:  map[string]*ast.FunctionDef{},
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		PID:        os.Getpid(),
		foreground: true,
	}
	for _, kv := range environ {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		r.Vars.Set(name, expand.Variable{Set: true, Kind: expand.Scalar, Str: val, Attrs: expand.AttrExported})
	}
	if len(argv) > 0 {
		r.Arg0 = argv[0]
		r.Positional = argv[1:]
	}
	if wd, err := os.Getwd(); err == nil {
		r.Vars.Set("PWD", expand.Variable{Set: true, Kind: expand.Scalar, Str: wd, Attrs: expand.AttrExported})
	}
	return r
}

func (r *Runner) ifsValue() string {
	if v := r.Vars.Get("IFS"); v.Set {
		return v.Str
	}
	return " \t\n"
}

// expandConfig bundles the Runner's state into the expand package's view
// of the world (spec §4.3's Config), rebuilt fresh for every simple
// command since Positional/LastStatus/Opts can all change between them.
func (r *Runner) expandConfig() *expand.Config {
	return &expand.Config{
		Env:        r.Vars,
		Positional: r.Positional,
		Arg0:       r.Arg0,
		LastStatus: int(r.LastStatus),
		LastBgPID:  r.LastBgPID,
		PID:        r.PID,
		Options:    dashString(r.Opts),
		CmdSubst:   r.runCommandSubstitution,
		IFS:        r.ifsValue(),
		NoGlob:     r.Opts&OptNoGlob != 0,
		NoUnset:    r.Opts&OptNoUnset != 0,
	}
}

// Run executes a parsed program to completion, firing the EXIT trap
// afterward regardless of how the program finished (spec §3.5).
func (r *Runner) Run(prog *ast.Program) ExitStatus {
	status, err := r.runProgram(prog)
	if ee, ok := err.(*ShellExitError); ok {
		status = ee.Status
		r.Exited = true
	}
	r.LastStatus = status
	r.runTrap("EXIT")
	return status
}

func (r *Runner) runProgram(prog *ast.Program) (ExitStatus, error) {
	status := r.LastStatus
	for _, item := range prog.Items {
		if fn, ok := item.(*ast.FunctionDef); ok {
			r.Functions[fn.Name] = fn
			continue
		}
		st, ok := item.(ast.Statement)
		if !ok {
			continue
		}
		s, err := r.execStatement(st)
		status = s
		r.LastStatus = status
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

func (r *Runner) runTrap(name string) {
	if r.Traps == nil {
		return
	}
	tr, ok := r.Traps.Get(name)
	if !ok || tr.Action != TrapCommand {
		return
	}
	prog, err := parser.Parse(tr.Command, parser.Strict)
	if err != nil {
		return
	}
	r.runProgram(prog)
}

// runPendingTraps runs every trap queued by an async signal handler since
// the last safe point (spec §4.6: "queues the command to run at the next
// safe point (between simple commands)").
func (r *Runner) runPendingTraps() {
	if r.Traps == nil {
		return
	}
	for _, name := range r.Traps.DrainPending() {
		r.runTrap(name)
	}
}

// reapChildren drains every exited/stopped child without blocking,
// called from the SIGCHLD handler (spec §4.6).
func (r *Runner) reapChildren() {
	for {
		var ws syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
		if err != nil || pid <= 0 {
			return
		}
		var state JobState
		var status ExitStatus
		switch {
		case ws.Exited():
			state, status = JobDone, ExitStatus(ws.ExitStatus())
		case ws.Signaled():
			state, status = JobDone, SignalExitStatus(int(ws.Signal()))
		case ws.Stopped():
			state, status = JobStopped, StatusOK
		default:
			continue
		}
		r.Jobs.UpdateProc(pid, state, status)
	}
}

// queueTrapSignal is the SignalManager's entry point for an asynchronously
// delivered signal: if a trap is bound for name, queue it to run at the
// next safe point; with no trap bound the signal is dropped here.
func (r *Runner) queueTrapSignal(name string) {
	if _, ok := r.Traps.Get(name); ok {
		r.Traps.Queue(name)
	}
}

func (r *Runner) selfPath() string {
	if p, err := os.Executable(); err == nil {
		return p
	}
	return os.Args[0]
}

func (r *Runner) execEnviron() []string {
	var out []string
	r.Vars.Each(func(name string, vr expand.Variable) bool {
		if vr.Has(expand.AttrExported) && vr.Set {
			out = append(out, name+"="+vr.String())
		}
		return true
	})
	return out
}

// forkSubshell returns an independent Runner sharing the job/trap/alias
// tables but with its own copy of the variable store and function table
// (spec §3.3 "Ownership": "a subshell... receives a copy-on-fork
// snapshot; writes after the fork are invisible to the parent").
func (r *Runner) forkSubshell() *Runner {
	fns := make(map[string]*ast.FunctionDef, len(r.Functions))
	for k, v := range r.Functions {
		fns[k] = v
	}
	fds := make(map[int]*os.File, len(r.Fds))
	for k, v := range r.Fds {
		fds[k] = v
	}
	return &Runner{
		Vars:       r.Vars.Copy(),
		Aliases:    r.Aliases,
		Jobs:       r.Jobs,
		Traps:      r.Traps,
		Functions:  fns,
		Opts:       r.Opts,
		Stdin:      r.Stdin,
		Stdout:     r.Stdout,
		Stderr:     r.Stderr,
		Fds:        fds,
		Positional: append([]string(nil), r.Positional...),
		Arg0:       r.Arg0,
		LastStatus: r.LastStatus,
		LastBgPID:  r.LastBgPID,
		PID:        r.PID,
		Signals:    r.Signals,
		foreground: r.foreground,
	}
}

// runCommandSubstitution implements `$(...)`/`` `...` ``: parse and run
// code in a forked subshell with Stdout captured, per spec §4.3 step 3.
func (r *Runner) runCommandSubstitution(code string) (string, error) {
	prog, err := parser.Parse(code, parser.Strict)
	if err != nil {
		return "", err
	}
	sub := r.forkSubshell()
	var buf bytes.Buffer
	sub.Stdout = &buf
	_, _ = sub.runProgram(prog)
	return buf.String(), nil
}

// execCommand runs one Command node (a pipeline stage, spec §4.4), used
// directly by runPipeline's per-stage dispatch.
func (r *Runner) execCommand(c ast.Command) (ExitStatus, error) {
	switch n := c.(type) {
	case *ast.SimpleCommand:
		return r.execSimpleCommand(n)
	case *ast.CompoundCommand:
		return r.execCompound(n)
	case *ast.FunctionDef:
		r.Functions[n.Name] = n
		return StatusOK, nil
	default:
		if st, ok := c.(ast.Statement); ok {
			return r.execStatement(st)
		}
		return StatusGeneralError, &ShellError{Message: "unsupported command"}
	}
}

func (r *Runner) execCompound(cc *ast.CompoundCommand) (ExitStatus, error) {
	switch cc.Kind {
	case ast.CompoundSubshell:
		sub := r.forkSubshell()
		return sub.execStatements(cc.Body)
	default: // CompoundBraceGroup: runs in the current shell
		return r.execStatements(cc.Body)
	}
}

func (r *Runner) execStatements(stmts []ast.Statement) (ExitStatus, error) {
	status := r.LastStatus
	for _, s := range stmts {
		st, err := r.execStatement(s)
		status = st
		r.LastStatus = status
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

// execStatement dispatches every Statement variant spec §3.2/§4.4 names.
func (r *Runner) execStatement(s ast.Statement) (ExitStatus, error) {
	switch n := s.(type) {
	case *ast.AndOrList:
		return r.execAndOr(n)
	case *ast.FunctionDef:
		r.Functions[n.Name] = n
		return StatusOK, nil
	case *ast.Break:
		lvl := n.Level
		if lvl < 1 {
			lvl = 1
		}
		return StatusOK, &LoopBreak{Level: lvl}
	case *ast.Continue:
		lvl := n.Level
		if lvl < 1 {
			lvl = 1
		}
		return StatusOK, &LoopContinue{Level: lvl}
	case *ast.If:
		return r.execIf(n)
	case *ast.While:
		return r.execWhile(n)
	case *ast.Until:
		return r.execUntil(n)
	case *ast.ForEach:
		return r.execForEach(n)
	case *ast.ForArith:
		return r.execForArith(n)
	case *ast.Case:
		return r.execCase(n)
	case *ast.Select:
		return r.execSelect(n)
	case *ast.ArithEval:
		return r.execArithEval(n)
	case *ast.TestBracket:
		return r.evalTestExpr(n.Expr)
	default:
		return StatusGeneralError, &ShellError{Message: "unsupported statement"}
	}
}

// execAndOr implements the left-associative &&/|| chain, spec §4.4: each
// term runs only if the preceding result matches its operator, and
// errexit/traps are evaluated once per pipeline, not once per term.
func (r *Runner) execAndOr(list *ast.AndOrList) (ExitStatus, error) {
	status, err := r.execPipelineStmt(list.First)
	if err != nil {
		return status, err
	}
	for _, term := range list.Rest {
		if term.Op == ast.OpAnd && status != StatusOK {
			continue
		}
		if term.Op == ast.OpOr && status == StatusOK {
			continue
		}
		status, err = r.execPipelineStmt(term.Pipe)
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

func (r *Runner) execPipelineStmt(p *ast.Pipeline) (ExitStatus, error) {
	if p.Background {
		job := &Job{State: JobRunning, Command: "pipeline", Foreground: false}
		num := r.Jobs.Register(job)
		go func() {
			status := r.runPipeline(p)
			job.State = JobDone
			_ = status
		}()
		fmt.Fprintf(r.Stderr, "[%d]\n", num)
		return StatusOK, nil
	}

	var status ExitStatus
	if len(p.Commands) == 1 {
		// The sole command runs in the current shell, so its assignments
		// and break/continue/return/exit reach the caller.
		s, err := r.execCommand(p.Commands[0])
		status = r.finishPipeline(p, []ExitStatus{s})
		if err != nil {
			r.LastStatus = status
			return status, err
		}
	} else {
		status = r.runPipeline(p)
	}
	r.LastStatus = status
	r.runPendingTraps()
	if status != StatusOK {
		r.runTrap("ERR")
	}
	if r.Opts&OptErrExit != 0 && status != StatusOK && !r.inConditional {
		return status, &ShellExitError{Status: status}
	}
	return status, nil
}

func (r *Runner) execIf(n *ast.If) (ExitStatus, error) {
	prev := r.inConditional
	r.inConditional = true
	status, err := r.execStatements(n.Cond)
	r.inConditional = prev
	if err != nil {
		return status, err
	}
	if status == StatusOK {
		return r.execStatements(n.Then)
	}
	for _, el := range n.Elifs {
		r.inConditional = true
		status, err = r.execStatements(el.Cond)
		r.inConditional = prev
		if err != nil {
			return status, err
		}
		if status == StatusOK {
			return r.execStatements(el.Then)
		}
	}
	if n.Else != nil {
		return r.execStatements(n.Else)
	}
	return StatusOK, nil
}

func (r *Runner) execWhile(n *ast.While) (ExitStatus, error) {
	status := r.LastStatus
loop:
	for {
		prev := r.inConditional
		r.inConditional = true
		cstatus, err := r.execStatements(n.Cond)
		r.inConditional = prev
		if err != nil {
			return cstatus, err
		}
		if cstatus != StatusOK {
			break
		}
		bstatus, err := r.execStatements(n.Body)
		status = bstatus
		if err != nil {
			switch e := err.(type) {
			case *LoopBreak:
				if e.Level > 1 {
					return status, &LoopBreak{Level: e.Level - 1}
				}
				break loop
			case *LoopContinue:
				if e.Level > 1 {
					return status, &LoopContinue{Level: e.Level - 1}
				}
				continue loop
			default:
				return status, err
			}
		}
	}
	return status, nil
}

func (r *Runner) execUntil(n *ast.Until) (ExitStatus, error) {
	status := r.LastStatus
loop:
	for {
		prev := r.inConditional
		r.inConditional = true
		cstatus, err := r.execStatements(n.Cond)
		r.inConditional = prev
		if err != nil {
			return cstatus, err
		}
		if cstatus == StatusOK {
			break
		}
		bstatus, err := r.execStatements(n.Body)
		status = bstatus
		if err != nil {
			switch e := err.(type) {
			case *LoopBreak:
				if e.Level > 1 {
					return status, &LoopBreak{Level: e.Level - 1}
				}
				break loop
			case *LoopContinue:
				if e.Level > 1 {
					return status, &LoopContinue{Level: e.Level - 1}
				}
				continue loop
			default:
				return status, err
			}
		}
	}
	return status, nil
}

func (r *Runner) execForEach(n *ast.ForEach) (ExitStatus, error) {
	cfg := r.expandConfig()
	var words []string
	if n.HasIn {
		for _, w := range n.Words {
			fs, err := cfg.Fields(w)
			if err != nil {
				return r.commandFailure(err)
			}
			words = append(words, fs...)
		}
	} else {
		words = append([]string(nil), r.Positional...)
	}
	status := r.LastStatus
loop:
	for _, val := range words {
		r.Vars.Set(n.VarName, expand.Variable{Set: true, Kind: expand.Scalar, Str: val})
		bstatus, err := r.execStatements(n.Body)
		status = bstatus
		if err != nil {
			switch e := err.(type) {
			case *LoopBreak:
				if e.Level > 1 {
					return status, &LoopBreak{Level: e.Level - 1}
				}
				break loop
			case *LoopContinue:
				if e.Level > 1 {
					return status, &LoopContinue{Level: e.Level - 1}
				}
				continue loop
			default:
				return status, err
			}
		}
	}
	return status, nil
}

func (r *Runner) execForArith(n *ast.ForArith) (ExitStatus, error) {
	if n.Init != "" {
		if _, err := expand.EvalArith(n.Init, r.Vars); err != nil {
			return r.commandFailure(err)
		}
	}
	status := r.LastStatus
loop:
	for {
		if n.Cond != "" {
			v, err := expand.EvalArith(n.Cond, r.Vars)
			if err != nil {
				return r.commandFailure(err)
			}
			if v == 0 {
				break
			}
		}
		bstatus, err := r.execStatements(n.Body)
		status = bstatus
		if err != nil {
			switch e := err.(type) {
			case *LoopBreak:
				if e.Level > 1 {
					return status, &LoopBreak{Level: e.Level - 1}
				}
				break loop
			case *LoopContinue:
				if e.Level > 1 {
					return status, &LoopContinue{Level: e.Level - 1}
				}
			default:
				return status, err
			}
		}
		if n.Update != "" {
			if _, err := expand.EvalArith(n.Update, r.Vars); err != nil {
				return r.commandFailure(err)
			}
		}
	}
	return status, nil
}

func (r *Runner) execCase(n *ast.Case) (ExitStatus, error) {
	cfg := r.expandConfig()
	val, err := cfg.Literal(n.Word)
	if err != nil {
		return r.commandFailure(err)
	}
	status := StatusOK
	matched := false
	for i := 0; i < len(n.Items); i++ {
		item := n.Items[i]
		if !matched {
			for _, pw := range item.Patterns {
				pat, err := cfg.Literal(pw)
				if err != nil {
					return r.commandFailure(err)
				}
				if ok, _ := pattern.Match(pat, val); ok {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}
		s, err := r.execStatements(item.Body)
		status = s
		if err != nil {
			return status, err
		}
		switch item.Terminator {
		case ast.TermFallThrough:
			matched = true
		case ast.TermContinue:
			matched = false
		default:
			return status, nil
		}
	}
	return status, nil
}

func (r *Runner) execSelect(n *ast.Select) (ExitStatus, error) {
	cfg := r.expandConfig()
	var words []string
	for _, w := range n.Words {
		fs, err := cfg.Fields(w)
		if err != nil {
			return r.commandFailure(err)
		}
		words = append(words, fs...)
	}
	lr := r.Line
	if lr == nil {
		if f, ok := r.Stdin.(*os.File); ok {
			lr = NewLineReader(f)
		} else {
			lr = NewLineReader(os.Stdin)
		}
	}
	ps3 := "#? "
	if v := r.Vars.Get("PS3"); v.Set {
		ps3 = v.Str
	}
	status := StatusOK
loop:
	for {
		for i, w := range words {
			fmt.Fprintf(r.Stderr, "%d) %s\n", i+1, w)
		}
		line, err := lr.ReadLine(r.Stderr, ps3)
		if err != nil {
			break
		}
		r.Vars.Set("REPLY", expand.Variable{Set: true, Kind: expand.Scalar, Str: line})
		idx, convErr := strconv.Atoi(strings.TrimSpace(line))
		val := ""
		if convErr == nil && idx >= 1 && idx <= len(words) {
			val = words[idx-1]
		}
		r.Vars.Set(n.VarName, expand.Variable{Set: true, Kind: expand.Scalar, Str: val})
		bstatus, err := r.execStatements(n.Body)
		status = bstatus
		if err != nil {
			switch e := err.(type) {
			case *LoopBreak:
				if e.Level > 1 {
					return status, &LoopBreak{Level: e.Level - 1}
				}
				break loop
			case *LoopContinue:
				if e.Level > 1 {
					return status, &LoopContinue{Level: e.Level - 1}
				}
				continue loop
			default:
				return status, err
			}
		}
	}
	return status, nil
}

func (r *Runner) execArithEval(n *ast.ArithEval) (ExitStatus, error) {
	v, err := expand.EvalArith(n.Expr, r.Vars)
	if err != nil {
		return r.commandFailure(err)
	}
	if v == 0 {
		return StatusGeneralError, nil
	}
	return StatusOK, nil
}

// commandFailure applies spec §4.4's errexit rule uniformly to expansion,
// assignment, redirection, and arithmetic failures outside a conditional
// context.
func (r *Runner) commandFailure(err error) (ExitStatus, error) {
	fmt.Fprintf(r.Stderr, "psh: %s\n", err.Error())
	if r.Opts&OptErrExit != 0 && !r.inConditional {
		return StatusGeneralError, &ShellExitError{Status: StatusGeneralError}
	}
	return StatusGeneralError, nil
}

// execSimpleCommand implements spec §4.4's five-step SimpleCommand
// strategy chain: assignments are applied (permanently if there's no
// command word, temporarily to the environment otherwise), redirections
// are applied with scoped save/restore, and the command name is resolved
// in order special-builtin -> function -> builtin -> alias -> external.
func (r *Runner) execSimpleCommand(sc *ast.SimpleCommand) (ExitStatus, error) {
	r.runPendingTraps()
	cfg := r.expandConfig()

	assignVals := map[string]expand.Variable{}
	var order []string
	for _, a := range sc.Assignments {
		old := r.Vars.Get(a.Name)
		if old.Has(expand.AttrReadOnly) {
			return r.commandFailure(&ShellError{Message: "readonly variable: " + a.Name})
		}
		val, err := cfg.Literal(a.Value)
		if err != nil {
			return r.commandFailure(err)
		}
		if a.Append {
			val = old.String() + val
		}
		assignVals[a.Name] = expand.Variable{Set: true, Kind: expand.Scalar, Str: val}
		order = append(order, a.Name)
	}
	for _, aa := range sc.ArrayAssignments {
		if old := r.Vars.Get(aa.Name); old.Has(expand.AttrReadOnly) {
			return r.commandFailure(&ShellError{Message: "readonly variable: " + aa.Name})
		}
		vr, err := r.buildArrayVariable(aa, cfg)
		if err != nil {
			return r.commandFailure(err)
		}
		assignVals[aa.Name] = vr
		order = append(order, aa.Name)
	}

	hasArgs := len(sc.ArgWords) > 0 || len(sc.Args) > 0
	if !hasArgs {
		for _, name := range order {
			r.Vars.Set(name, assignVals[name])
		}
		return StatusOK, nil
	}

	if len(order) > 0 {
		saved := map[string]expand.Variable{}
		for _, name := range order {
			saved[name] = r.Vars.Get(name)
			r.Vars.Set(name, assignVals[name])
		}
		defer func() {
			for _, name := range order {
				r.Vars.Set(name, saved[name])
			}
		}()
	}

	var args []string
	if len(sc.ArgWords) > 0 {
		for _, w := range sc.ArgWords {
			fs, err := cfg.Fields(w)
			if err != nil {
				return r.commandFailure(err)
			}
			args = append(args, fs...)
		}
	} else {
		args = append(args, sc.Args...)
	}
	if len(args) == 0 {
		return StatusOK, nil
	}

	restore, err := r.applyRedirects(sc.Redirects, cfg)
	if restore != nil {
		defer restore()
	}
	if err != nil {
		return r.commandFailure(err)
	}

	r.traceCommand(args)
	name := args[0]

	seen := expandingAliases{}
	for specialBuiltins[name] == nil && r.Functions[name] == nil && builtins[name] == nil {
		repl, trailing, ok := r.expandAliasWord(name, seen)
		if !ok {
			break
		}
		seen[name] = true
		replArgs := strings.Fields(repl)
		if len(replArgs) == 0 {
			break
		}
		args = append(replArgs, args[1:]...)
		name = args[0]
		if !trailing {
			break
		}
	}

	if fn, ok := specialBuiltins[name]; ok {
		return fn(r, args[1:])
	}
	if fn, ok := r.Functions[name]; ok {
		return r.runFunction(fn, args)
	}
	if fn, ok := builtins[name]; ok {
		return fn(r, args[1:])
	}
	if sc.Background {
		return r.runExternalBackground(name, args)
	}
	return r.runExternal(name, args)
}

func (r *Runner) buildArrayVariable(aa *ast.ArrayAssignment, cfg *expand.Config) (expand.Variable, error) {
	if aa.Index != "" {
		old := r.Vars.Get(aa.Name)
		val, err := cfg.Literal(aa.ScalarVal)
		if err != nil {
			return expand.Variable{}, err
		}
		if aa.Assoc || old.Kind == expand.Associative {
			vr := old
			if vr.Kind != expand.Associative {
				vr = expand.Variable{Set: true, Kind: expand.Associative}
			}
			if vr.Assoc == nil {
				vr.Assoc = map[string]string{}
			}
			if _, exists := vr.Assoc[aa.Index]; !exists {
				vr.AssocOrder = append(vr.AssocOrder, aa.Index)
			}
			if aa.Append {
				val = vr.Assoc[aa.Index] + val
			}
			vr.Assoc[aa.Index] = val
			return vr, nil
		}
		idx, err := expand.EvalArith(aa.Index, r.Vars)
		if err != nil {
			return expand.Variable{}, err
		}
		vr := old
		if vr.Kind != expand.Indexed {
			vr = expand.Variable{Set: true, Kind: expand.Indexed}
		}
		if vr.Indexed == nil {
			vr.Indexed = map[int64]string{}
		}
		if _, exists := vr.Indexed[idx]; !exists {
			vr.IndexOrder = append(vr.IndexOrder, idx)
		}
		if aa.Append {
			val = vr.Indexed[idx] + val
		}
		vr.Indexed[idx] = val
		return vr, nil
	}

	if aa.Assoc {
		vr := expand.Variable{Set: true, Kind: expand.Associative, Assoc: map[string]string{}}
		for i, el := range aa.Elements {
			key := el.Key
			if key == "" {
				key = strconv.Itoa(i)
			}
			val, err := cfg.Literal(el.Value)
			if err != nil {
				return expand.Variable{}, err
			}
			if _, exists := vr.Assoc[key]; !exists {
				vr.AssocOrder = append(vr.AssocOrder, key)
			}
			vr.Assoc[key] = val
		}
		return vr, nil
	}

	vr := expand.Variable{Set: true, Kind: expand.Indexed, Indexed: map[int64]string{}}
	next := int64(0)
	for _, el := range aa.Elements {
		idx := next
		if el.Key != "" {
			n, err := expand.EvalArith(el.Key, r.Vars)
			if err != nil {
				return expand.Variable{}, err
			}
			idx = n
		}
		val, err := cfg.Literal(el.Value)
		if err != nil {
			return expand.Variable{}, err
		}
		if _, exists := vr.Indexed[idx]; !exists {
			vr.IndexOrder = append(vr.IndexOrder, idx)
		}
		vr.Indexed[idx] = val
		next = idx + 1
	}
	return vr, nil
}

// runFunction pushes a scope, rebinds the positional parameters to the
// call's own arguments, and translates a FunctionReturn into a plain
// status (spec §4.4: "return... is a typed non-local exit caught at the
// function-call frame").
func (r *Runner) runFunction(fn *ast.FunctionDef, args []string) (ExitStatus, error) {
	savedPositional := r.Positional
	r.Positional = args[1:]
	r.Vars.PushScope()
	defer func() {
		r.Vars.PopScope()
		r.Positional = savedPositional
	}()
	status, err := r.execCommand(fn.Body)
	switch e := err.(type) {
	case *FunctionReturn:
		return e.Status, nil
	case *LoopBreak, *LoopContinue:
		return status, nil
	}
	return status, err
}

func (r *Runner) runExternal(name string, args []string) (ExitStatus, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			fmt.Fprintf(r.Stderr, "psh: %s: command not found\n", name)
			return StatusNotFound, nil
		}
		fmt.Fprintf(r.Stderr, "psh: %s: %s\n", name, err)
		return StatusNotExecutable, nil
	}
	cmd := exec.Command(path, args[1:]...)
	cmd.Env = r.execEnviron()
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		fmt.Fprintf(r.Stderr, "psh: %s: %s\n", name, err)
		return StatusNotExecutable, nil
	}
	pid := cmd.Process.Pid
	_ = setpgid(pid, pid)
	if r.foreground && r.Signals != nil && r.Signals.ttyFd >= 0 {
		_ = tcSetForeground(r.Signals.ttyFd, pid)
	}
	waitErr := cmd.Wait()
	if r.foreground && r.Signals != nil && r.Signals.ttyFd >= 0 {
		r.Signals.RestoreForeground()
	}
	return exitStatusFromError(waitErr), nil
}

func (r *Runner) runExternalBackground(name string, args []string) (ExitStatus, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Fprintf(r.Stderr, "psh: %s: command not found\n", name)
		return StatusNotFound, nil
	}
	cmd := exec.Command(path, args[1:]...)
	cmd.Env = r.execEnviron()
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		fmt.Fprintf(r.Stderr, "psh: %s: %s\n", name, err)
		return StatusNotExecutable, nil
	}
	pid := cmd.Process.Pid
	_ = setpgid(pid, pid)
	r.LastBgPID = pid
	job := &Job{Pgid: pid, State: JobRunning, Command: strings.Join(args, " "),
		Procs: []*ProcState{{Pid: pid, State: JobRunning}}}
	num := r.Jobs.Register(job)
	fmt.Fprintf(r.Stderr, "[%d] %d\n", num, pid)
	go func() {
		status := exitStatusFromError(cmd.Wait())
		r.Jobs.UpdateProc(pid, JobDone, status)
	}()
	return StatusOK, nil
}

func exitStatusFromError(err error) ExitStatus {
	if err == nil {
		return StatusOK
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return SignalExitStatus(int(ws.Signal()))
			}
			return ExitStatus(ws.ExitStatus())
		}
	}
	return StatusNotExecutable
}
