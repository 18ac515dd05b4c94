//go:build unix

package interp

import (
	"fmt"
	"os"
	"os/exec"
)

// runProcessSubstitution implements `<(cmd)`/`>(cmd)` (spec §4.4): fork a
// child connected to one end of a pipe, hand the caller a `/dev/fd/N`
// path for the other end, and arrange for the child to be waited on once
// the caller is done with it.
func (r *Runner) runProcessSubstitution(code string, out bool) (path string, cleanup func(), err error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return "", nil, err
	}

	childEnd, parentPath := pr, pw
	if out {
		childEnd, parentPath = pw, pr
	}

	cmd := exec.Command(r.selfPath(), "-c", code)
	cmd.Env = r.execEnviron()
	if out {
		cmd.Stdin = childEnd
	} else {
		cmd.Stdout = childEnd
	}
	cmd.Stderr = r.Stderr

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return "", nil, err
	}
	childEnd.Close()

	path = fmt.Sprintf("/dev/fd/%d", parentPath.Fd())
	cleanup = func() {
		parentPath.Close()
		_ = cmd.Wait()
	}
	return path, cleanup, nil
}
