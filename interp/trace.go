package interp

import (
	"fmt"
	"strings"
)

// traceCommand implements `set -x` (spec §4.4's xtrace rule): before
// executing a simple command, emit its expanded argv to stderr prefixed
// by the expansion of PS4.
func (r *Runner) traceCommand(args []string) {
	if r.Opts&OptXTrace == 0 {
		return
	}
	ps4 := r.expandPS4()
	fmt.Fprintln(r.Stderr, ps4+strings.Join(args, " "))
}

func (r *Runner) expandPS4() string {
	vr := r.Vars.Get("PS4")
	if !vr.Set {
		return "+ "
	}
	cfg := r.expandConfig()
	text, err := cfg.ExpandRawText(vr.Str)
	if err != nil {
		return "+ "
	}
	return text
}
