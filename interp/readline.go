package interp

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// LineReader reads one interactive input line at a time in the terminal's
// cooked mode; it never switches the terminal into raw mode (a minimal
// line editor: no history search, no keybindings beyond what the terminal
// driver itself gives — a fuller editor would own cursor movement and
// redraw itself, which this stub defers).
type LineReader struct {
	in     *os.File
	scan   *bufio.Scanner
	isTerm bool
}

func NewLineReader(in *os.File) *LineReader {
	return &LineReader{in: in, scan: bufio.NewScanner(in), isTerm: term.IsTerminal(int(in.Fd()))}
}

// ReadLine prompts with ps1 (already expanded by the caller) and returns
// one line of input, io.EOF when the input is exhausted.
func (lr *LineReader) ReadLine(w io.Writer, ps1 string) (string, error) {
	if lr.isTerm {
		fmt.Fprint(w, ps1)
	}
	if !lr.scan.Scan() {
		if err := lr.scan.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return lr.scan.Text(), nil
}

// TerminalWidth reports f's column count when f is a terminal; 80
// otherwise.
func TerminalWidth(f *os.File) int {
	if !term.IsTerminal(int(f.Fd())) {
		return 80
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
