package interp

import (
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/philipwilsonTHG/psh/ast"
)

// runPipeline implements spec §4.4's Pipeline dispatch for multi-command
// pipelines and background jobs (execPipelineStmt runs a foreground
// single-command pipeline itself, in the current shell, without forking
// or piping). N commands wire N-1 pipes between them and run
// concurrently, with the parent waiting for all of them. Every stage
// that runs here runs against its own copy of the variable
// store (spec's "all pipeline components run in their own subshell"
// default, no `lastpipe`), so only the last stage's exit status — or, in
// `pipefail`, the first nonzero one — is visible afterward.
func (r *Runner) runPipeline(p *ast.Pipeline) ExitStatus {
	n := len(p.Commands)
	if n == 0 {
		return StatusOK
	}
	if n == 1 {
		status := r.runPipelineStage(p.Commands[0], r.Stdin, r.Stdout)
		return r.finishPipeline(p, []ExitStatus{status})
	}

	readers := make([]*os.File, n-1)
	writers := make([]*os.File, n-1)
	for i := 0; i < n-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			fmtPrintErr(r.Stderr, "pipe: "+err.Error())
			return StatusGeneralError
		}
		readers[i], writers[i] = pr, pw
	}

	statuses := make([]ExitStatus, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		var stdin io.Reader = r.Stdin
		var stdout io.Writer = r.Stdout
		if i > 0 {
			stdin = readers[i-1]
		}
		if i < n-1 {
			stdout = writers[i]
		}
		cmd := p.Commands[i]
		g.Go(func() error {
			statuses[i] = r.runPipelineStageIO(cmd, stdin, stdout)
			if i > 0 {
				readers[i-1].Close()
			}
			if i < n-1 {
				writers[i].Close()
			}
			return nil
		})
	}
	_ = g.Wait()

	return r.finishPipeline(p, statuses)
}

func (r *Runner) finishPipeline(p *ast.Pipeline, statuses []ExitStatus) ExitStatus {
	status := statuses[len(statuses)-1]
	if r.Opts&OptPipefail != 0 {
		status = StatusOK
		for _, s := range statuses {
			if s != StatusOK {
				status = s
				break
			}
		}
	}
	if p.Inverted {
		if status == StatusOK {
			status = StatusGeneralError
		} else {
			status = StatusOK
		}
	}
	return status
}

// runPipelineStage runs the lone command of a single-command pipeline
// that reaches runPipeline (a background job) with the given streams; like
// every stage here it runs in a forked sub-Runner.
func (r *Runner) runPipelineStage(cmd ast.Command, stdin io.Reader, stdout io.Writer) ExitStatus {
	return r.runPipelineStageIO(cmd, stdin, stdout)
}

// runPipelineStageIO runs cmd against a forked sub-Runner whose variable
// store is an isolated copy (spec §4.4/§3.3: pipeline stages run in a
// subshell; changes don't propagate to the parent).
func (r *Runner) runPipelineStageIO(cmd ast.Command, stdin io.Reader, stdout io.Writer) ExitStatus {
	sub := r.forkSubshell()
	if f, ok := stdin.(*os.File); ok {
		sub.Stdin = f
	}
	sub.Stdout = stdout

	status, err := sub.execCommand(cmd)
	if err != nil {
		if ee, ok := err.(*ShellExitError); ok {
			return ee.Status
		}
	}
	return status
}

func fmtPrintErr(w io.Writer, msg string) {
	io.WriteString(w, "psh: "+msg+"\n")
}
