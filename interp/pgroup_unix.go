//go:build unix

package interp

import (
	"os"

	"golang.org/x/sys/unix"
)

// setpgid puts pid into process group pgid, creating a new group when
// pgid == 0. Called from the parent (to win the fork/setpgid race against
// the child doing the same) and from the child itself, per the donor's
// belt-and-suspenders pattern for process-group assignment.
func setpgid(pid, pgid int) error {
	return unix.Setpgid(pid, pgid)
}

// tcSetForeground gives the terminal to pgid, the spec §4.6 "foreground
// transfer" step. Errors are swallowed when the shell has no controlling
// terminal (e.g. running a script non-interactively).
func tcSetForeground(ttyFd int, pgid int) error {
	return unix.IoctlSetPointerInt(ttyFd, unix.TIOCSPGRP, pgid)
}

func tcGetForeground(ttyFd int) (int, error) {
	return unix.IoctlGetInt(ttyFd, unix.TIOCGPGRP)
}

// controllingTTYFd opens the controlling terminal for job-control ioctls,
// or returns -1 if there isn't one (spec §4.6 applies only when attached
// to a tty).
func controllingTTYFd() int {
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return -1
	}
	return int(f.Fd())
}
