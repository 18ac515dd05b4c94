package interp

import (
	"io"
	"os"
	"strconv"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/expand"
)

// applyRedirects implements spec §4.4/§5's scoped fd save/restore: every
// redirect in redirs is applied against the Runner's own Stdin/Stdout/
// Stderr/Fds in source order, and the returned restore closure undoes all
// of it (and closes whatever files were opened) regardless of whether the
// command that follows succeeds.
func (r *Runner) applyRedirects(redirs []*ast.Redirect, cfg *expand.Config) (restore func(), err error) {
	if len(redirs) == 0 {
		return func() {}, nil
	}

	oldStdin, oldStdout, oldStderr := r.Stdin, r.Stdout, r.Stderr
	oldFds := make(map[int]*os.File, len(r.Fds))
	for k, v := range r.Fds {
		oldFds[k] = v
	}
	var opened []*os.File
	restore = func() {
		r.Stdin, r.Stdout, r.Stderr = oldStdin, oldStdout, oldStderr
		r.Fds = oldFds
		for _, f := range opened {
			f.Close()
		}
	}

	setFd := func(fd int, f *os.File) {
		switch fd {
		case 0:
			r.Stdin = f
		case 1:
			r.Stdout = f
		case 2:
			r.Stderr = f
		default:
			if r.Fds == nil {
				r.Fds = map[int]*os.File{}
			}
			r.Fds[fd] = f
		}
	}
	getFile := func(fd int) (*os.File, bool) {
		switch fd {
		case 0:
			f, ok := r.Stdin.(*os.File)
			return f, ok
		case 1:
			f, ok := r.Stdout.(*os.File)
			return f, ok
		case 2:
			f, ok := r.Stderr.(*os.File)
			return f, ok
		default:
			f, ok := r.Fds[fd]
			return f, ok
		}
	}

	fail := func(e error) (func(), error) {
		restore()
		return nil, &ShellError{Context: "redirect", Message: e.Error()}
	}

	for _, rd := range redirs {
		fd := rd.SourceFd
		if !rd.HasSourceFd {
			switch rd.Kind {
			case ast.RedirIn, ast.RedirHeredoc, ast.RedirHeredocStrip, ast.RedirHerestring, ast.RedirDupIn, ast.RedirReadWrite:
				fd = 0
			default:
				fd = 1
			}
		}

		switch rd.Kind {
		case ast.RedirIn:
			target, e := cfg.Literal(rd.Target)
			if e != nil {
				return fail(e)
			}
			f, e := os.Open(target)
			if e != nil {
				return fail(e)
			}
			opened = append(opened, f)
			setFd(fd, f)

		case ast.RedirOut, ast.RedirClobber:
			target, e := cfg.Literal(rd.Target)
			if e != nil {
				return fail(e)
			}
			flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			if r.Opts&OptNoClobber != 0 && rd.Kind == ast.RedirOut {
				flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
			}
			f, e := os.OpenFile(target, flags, 0o644)
			if e != nil {
				return fail(e)
			}
			opened = append(opened, f)
			setFd(fd, f)

		case ast.RedirAppend:
			target, e := cfg.Literal(rd.Target)
			if e != nil {
				return fail(e)
			}
			f, e := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
			if e != nil {
				return fail(e)
			}
			opened = append(opened, f)
			setFd(fd, f)

		case ast.RedirReadWrite:
			target, e := cfg.Literal(rd.Target)
			if e != nil {
				return fail(e)
			}
			f, e := os.OpenFile(target, os.O_RDWR|os.O_CREATE, 0o644)
			if e != nil {
				return fail(e)
			}
			opened = append(opened, f)
			setFd(fd, f)

		case ast.RedirHeredoc, ast.RedirHeredocStrip:
			body := rd.Body
			if !rd.QuotedDelimiter {
				var e error
				body, e = cfg.ExpandRawText(body)
				if e != nil {
					return fail(e)
				}
			}
			pr, pw, e := os.Pipe()
			if e != nil {
				return fail(e)
			}
			go func(text string) {
				io.WriteString(pw, text)
				pw.Close()
			}(body)
			opened = append(opened, pr)
			setFd(0, pr)

		case ast.RedirHerestring:
			text, e := cfg.Literal(rd.Target)
			if e != nil {
				return fail(e)
			}
			pr, pw, e := os.Pipe()
			if e != nil {
				return fail(e)
			}
			go func(s string) {
				io.WriteString(pw, s+"\n")
				pw.Close()
			}(text)
			opened = append(opened, pr)
			setFd(0, pr)

		case ast.RedirDupOut, ast.RedirDupIn:
			if rd.CloseTarget {
				devnull, e := os.OpenFile(os.DevNull, os.O_RDWR, 0)
				if e != nil {
					return fail(e)
				}
				opened = append(opened, devnull)
				setFd(fd, devnull)
				continue
			}
			targetText, e := cfg.Literal(rd.Target)
			if e != nil {
				return fail(e)
			}
			n, e := strconv.Atoi(targetText)
			if e != nil {
				return fail(e)
			}
			src, ok := getFile(n)
			if !ok {
				return fail(&ShellError{Message: "bad file descriptor: " + targetText})
			}
			setFd(fd, src)
		}
	}

	return restore, nil
}
