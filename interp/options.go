package interp

// RunnerOption is the spec §6.5 shell-option bitset, toggled by `set -o
// name`/`set +o name` and the short-letter forms (`-e`, `-u`, `-x`, ...).
type RunnerOption uint32

const (
	OptErrExit RunnerOption = 1 << iota
	OptNoUnset
	OptXTrace
	OptPipefail
	OptNoClobber
	OptNoGlob
	OptAllExport
	OptNotify
	OptNoExec
	OptVerbose
	OptHashCmds
	OptMonitor
	OptIgnoreEOF
	OptNoLog
	OptErrTrace
	OptPosix
)

// optionNames maps `set -o name` spelling to its bit, and back for the
// `set -o` (no args) listing.
var optionNames = map[string]RunnerOption{
	"errexit":   OptErrExit,
	"nounset":   OptNoUnset,
	"xtrace":    OptXTrace,
	"pipefail":  OptPipefail,
	"noclobber": OptNoClobber,
	"noglob":    OptNoGlob,
	"allexport": OptAllExport,
	"notify":    OptNotify,
	"noexec":    OptNoExec,
	"verbose":   OptVerbose,
	"hashcmds":  OptHashCmds,
	"monitor":   OptMonitor,
	"ignoreeof": OptIgnoreEOF,
	"nolog":     OptNoLog,
	"errtrace":  OptErrTrace,
	"posix":     OptPosix,
}

// shortLetters maps the single-letter `set -X` spelling to the option it
// toggles, for the subset spec §6.5 names a letter for.
var shortLetters = map[byte]RunnerOption{
	'e': OptErrExit,
	'u': OptNoUnset,
	'x': OptXTrace,
	'f': OptNoGlob,
	'v': OptVerbose,
	'n': OptNoExec,
	'a': OptAllExport,
}

// letterFor is shortLetters inverted, used to render `$-`.
var letterFor = map[RunnerOption]byte{
	OptErrExit: 'e',
	OptNoUnset: 'u',
	OptXTrace:  'x',
	OptNoGlob:  'f',
	OptVerbose: 'v',
	OptNoExec:  'n',
	OptAllExport: 'a',
}

func (o RunnerOption) has(opts RunnerOption) bool { return opts&o != 0 }

// dashString renders the `$-` special parameter: the concatenation of
// every currently-set option's short letter, in a stable order.
func dashString(opts RunnerOption) string {
	order := []RunnerOption{OptErrExit, OptNoUnset, OptXTrace, OptNoGlob, OptVerbose, OptNoExec, OptAllExport}
	out := make([]byte, 0, len(order))
	for _, o := range order {
		if opts&o != 0 {
			out = append(out, letterFor[o])
		}
	}
	return string(out)
}
