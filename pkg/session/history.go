package session

import (
	"strings"
)

// DefaultMaxEntries bounds the history when no limit is configured.
const DefaultMaxEntries = 500

// History is an ordered, size-bounded list of previously entered command
// lines. Entries are 1-based oldest-first; that numbering is what `history`
// prints and what `!n` expands against.
type History struct {
	Entries []string `json:"entries"`
	Max     int      `json:"max"`
}

// NewHistory creates a history bounded to max entries. A non-positive max
// falls back to DefaultMaxEntries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &History{Max: max}
}

// Append records a command line. Blank lines and lines identical to the
// previous entry are skipped. Lines are recorded post-expansion, so `!n`
// never appears in the history itself.
func (h *History) Append(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(h.Entries); n > 0 && h.Entries[n-1] == line {
		return
	}

	h.Entries = append(h.Entries, line)
	if h.Max > 0 && len(h.Entries) > h.Max {
		h.Entries = h.Entries[len(h.Entries)-h.Max:]
	}
}

// Entry returns the n-th history entry, 1-based oldest-first.
func (h *History) Entry(n int) (string, bool) {
	if n < 1 || n > len(h.Entries) {
		return "", false
	}
	return h.Entries[n-1], true
}

// Last returns the most recent entry.
func (h *History) Last() (string, bool) {
	if len(h.Entries) == 0 {
		return "", false
	}
	return h.Entries[len(h.Entries)-1], true
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.Entries)
}

// SetMax changes the bound and trims existing entries to fit.
func (h *History) SetMax(max int) {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	h.Max = max
	if len(h.Entries) > h.Max {
		h.Entries = h.Entries[len(h.Entries)-h.Max:]
	}
}
