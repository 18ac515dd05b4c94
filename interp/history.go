package interp

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// History holds the interactive command log (spec §6.3: "one command per
// line, UTF-8"), written atomically so a crash mid-write never corrupts
// HISTFILE.
type History struct {
	Path    string
	entries []string
}

func NewHistory(path string) *History { return &History{Path: path} }

// Load reads the existing history file, if any, into memory.
func (h *History) Load() error {
	if h.Path == "" {
		return nil
	}
	data, err := os.ReadFile(h.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line != "" {
			h.entries = append(h.entries, line)
		}
	}
	return nil
}

// Add appends a command to the in-memory history.
func (h *History) Add(cmd string) {
	if cmd == "" {
		return
	}
	h.entries = append(h.entries, cmd)
}

// Entries returns the full history in order, for the `history` builtin.
func (h *History) Entries() []string { return h.entries }

// Save rewrites HISTFILE atomically via a temp-file-then-rename, using
// renameio so a concurrent reader (or a crash) never observes a
// partially-written file.
func (h *History) Save() error {
	if h.Path == "" {
		return nil
	}
	if dir := filepath.Dir(h.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	t, err := renameio.TempFile("", h.Path)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	for _, e := range h.entries {
		if _, err := t.Write([]byte(e + "\n")); err != nil {
			return err
		}
	}
	return t.CloseAtomicallyReplace()
}
