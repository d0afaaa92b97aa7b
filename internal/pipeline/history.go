package pipeline

import "github.com/lectern-app/lectern/internal/notes"

// History is the append-only sequence of structured notes produced by a
// session's synthesis rounds. Not safe for concurrent use: the session
// worker is the sole mutator.
type History struct {
	entries []notes.StructuredNote
}

func (h *History) Append(note notes.StructuredNote) {
	h.entries = append(h.entries, note)
}

func (h *History) Len() int {
	return len(h.entries)
}

// Last returns a copy of the most recent note, or nil when empty.
func (h *History) Last() *notes.StructuredNote {
	if len(h.entries) == 0 {
		return nil
	}
	last := h.entries[len(h.entries)-1]
	return &last
}

// All returns a copy of the full history, oldest first.
func (h *History) All() []notes.StructuredNote {
	return append([]notes.StructuredNote(nil), h.entries...)
}
