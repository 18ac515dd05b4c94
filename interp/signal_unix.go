//go:build unix

package interp

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// SignalManager owns the shell's own signal dispositions, separate from
// what a forked child resets before exec (spec §4.6).
type SignalManager struct {
	ch      chan os.Signal
	sigint  chan struct{}
	runner  *Runner
	ttyFd   int
	installed bool
}

func NewSignalManager(r *Runner) *SignalManager {
	return &SignalManager{ch: make(chan os.Signal, 16), sigint: make(chan struct{}, 1), runner: r, ttyFd: -1}
}

// InstallInteractive follows spec §4.6's startup ordering invariant to the
// letter: ignore SIGTTOU/SIGTTIN/SIGTSTP *first*, and only afterward
// attempt to take terminal control, to avoid the shell stopping itself.
func (sm *SignalManager) InstallInteractive() {
	signal.Ignore(unix.SIGTTOU, unix.SIGTTIN, unix.SIGTSTP)
	sm.installed = true

	sm.ttyFd = controllingTTYFd()
	if sm.ttyFd >= 0 {
		pgid := unix.Getpgrp()
		_ = tcSetForeground(sm.ttyFd, pgid)
	}

	signal.Notify(sm.ch, unix.SIGCHLD, unix.SIGINT, unix.SIGTERM, unix.SIGHUP,
		unix.SIGQUIT, unix.SIGUSR1, unix.SIGUSR2, unix.SIGWINCH)
	go sm.loop()
}

// InstallNonInteractive only wires SIGCHLD reaping and trap queuing for
// SIGINT, SIGTERM, and SIGHUP; it never touches terminal control.
func (sm *SignalManager) InstallNonInteractive() {
	signal.Notify(sm.ch, unix.SIGCHLD, unix.SIGINT, unix.SIGTERM, unix.SIGHUP)
	go sm.loop()
}

func (sm *SignalManager) loop() {
	for sig := range sm.ch {
		switch sig {
		case unix.SIGCHLD:
			sm.runner.reapChildren()
		case unix.SIGINT:
			select {
			case sm.sigint <- struct{}{}:
			default:
			}
			sm.runner.queueTrapSignal("INT")
		default:
			sm.runner.queueTrapSignal(signalName(sig))
		}
	}
}

// RestoreForeground gives the terminal back to the shell's own process
// group. Per spec §4.6 this must happen only after SIGTTOU/SIGTTIN are
// (still) ignored, which InstallInteractive already guaranteed stays true
// for the shell's lifetime.
func (sm *SignalManager) RestoreForeground() {
	if sm.ttyFd < 0 {
		return
	}
	_ = tcSetForeground(sm.ttyFd, unix.Getpgrp())
}

func signalName(sig os.Signal) string {
	if s, ok := sig.(unix.Signal); ok {
		switch s {
		case unix.SIGTERM:
			return "TERM"
		case unix.SIGHUP:
			return "HUP"
		case unix.SIGQUIT:
			return "QUIT"
		case unix.SIGUSR1:
			return "USR1"
		case unix.SIGUSR2:
			return "USR2"
		case unix.SIGWINCH:
			return "WINCH"
		}
	}
	return sig.String()
}

// resetChildSignals reverts this process's handling of the signals spec
// §4.6 names back to the default (signal.Reset). Nothing on the
// command-launch path calls it, and os/exec runs no Go code in a child
// between fork and exec.
func resetChildSignals() {
	for _, s := range []os.Signal{unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP, unix.SIGTTOU, unix.SIGTTIN, unix.SIGCHLD, unix.SIGPIPE} {
		signal.Reset(s)
	}
}
