package pipeline

import (
	"strings"
	"time"
)

// SessionData is the mutable per-session pipeline state: the fragment
// buffer, the synthesis history, and the trigger timing. It survives
// reconnects: workers come and go, SessionData does not. Only the single
// active worker for the session touches it, so no locking is needed.
type SessionData struct {
	Buffer  FragmentBuffer
	History History

	lastSynthesis time.Time
	nextIndex     int
	transcript    strings.Builder
}

func NewSessionData() *SessionData {
	return &SessionData{}
}

// LastSynthesis returns the time of the last successful mid-stream round,
// or the zero time if none has completed yet.
func (d *SessionData) LastSynthesis() time.Time {
	return d.lastSynthesis
}

// SetLastSynthesis records a successful round. Failed rounds must not call
// this, so the time-based trigger retries on the next fragment.
func (d *SessionData) SetLastSynthesis(t time.Time) {
	d.lastSynthesis = t
}

// NextIndex returns the next fragment index and advances the counter.
func (d *SessionData) NextIndex() int {
	i := d.nextIndex
	d.nextIndex++
	return i
}

// RecordTranscript accumulates fragment text for the wide retrieval query
// used by final synthesis, since the window buffer is truncated long before
// the final round runs.
func (d *SessionData) RecordTranscript(text string) {
	if d.transcript.Len() > 0 {
		d.transcript.WriteString(" ")
	}
	d.transcript.WriteString(text)
}

// Transcript returns all accumulated fragment text.
func (d *SessionData) Transcript() string {
	return d.transcript.String()
}
