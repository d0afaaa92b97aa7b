// Package event defines the payloads pushed to clients over the session
// transport. Every payload embeds a versioned envelope so clients can
// dispatch on type without sniffing fields.
package event

import (
	"time"

	"github.com/lectern-app/lectern/internal/notes"
)

const Version = 1

type Envelope struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type ConnectionConfirmed struct {
	Envelope
	Message string `json:"message"`
}

type Transcription struct {
	Envelope
	Content       string  `json:"content"`
	EnrichedNotes string  `json:"enriched_notes"`
	Language      string  `json:"language,omitempty"`
	Importance    float64 `json:"importance"`
	FragmentIndex int     `json:"fragment_index"`
}

type SynthesisStarted struct {
	Envelope
	Message string `json:"message"`
}

type StructuredNotes struct {
	Envelope
	Content           string `json:"content"`
	FragmentsConsumed int    `json:"fragments_consumed"`
}

type SynthesisError struct {
	Envelope
	Error string `json:"error"`
}

type FinalSynthesisStarted struct {
	Envelope
	Message string `json:"message"`
}

type FinalNotes struct {
	Envelope
	Title        string                `json:"title"`
	Markdown     string                `json:"markdown"`
	Sections     []string              `json:"sections"`
	Glossary     []notes.GlossaryEntry `json:"glossary"`
	KeyTakeaways []string              `json:"key_takeaways"`
}

type FinalSynthesisError struct {
	Envelope
	Error string `json:"error"`
}

type RecordingStarted struct {
	Envelope
	Message string `json:"message"`
}

type RecordingStopped struct {
	Envelope
	Message string `json:"message"`
}

func newEnvelope(eventType string, now time.Time) Envelope {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Envelope{
		Type:      eventType,
		Version:   Version,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

func NewConnectionConfirmed() ConnectionConfirmed {
	return ConnectionConfirmed{
		Envelope: newEnvelope("connection_confirmed", time.Now().UTC()),
		Message:  "connected, ready for audio segments",
	}
}

func NewTranscription(frag notes.Fragment) Transcription {
	return Transcription{
		Envelope:      newEnvelope("transcription", frag.Timestamp),
		Content:       frag.Text,
		EnrichedNotes: frag.EnrichedNotes,
		Language:      frag.Language,
		Importance:    frag.Importance,
		FragmentIndex: frag.Index,
	}
}

func NewSynthesisStarted() SynthesisStarted {
	return SynthesisStarted{
		Envelope: newEnvelope("synthesis_started", time.Now().UTC()),
		Message:  "generating structured notes",
	}
}

func NewStructuredNotes(note notes.StructuredNote) StructuredNotes {
	return StructuredNotes{
		Envelope:          newEnvelope("structured_notes", note.CreatedAt),
		Content:           note.Content,
		FragmentsConsumed: note.FragmentCount,
	}
}

func NewSynthesisError(err error) SynthesisError {
	return SynthesisError{
		Envelope: newEnvelope("synthesis_error", time.Now().UTC()),
		Error:    err.Error(),
	}
}

func NewFinalSynthesisStarted() FinalSynthesisStarted {
	return FinalSynthesisStarted{
		Envelope: newEnvelope("final_synthesis_started", time.Now().UTC()),
		Message:  "creating comprehensive final notes",
	}
}

func NewFinalNotes(fn notes.FinalNotes) FinalNotes {
	return FinalNotes{
		Envelope:     newEnvelope("final_notes", fn.CreatedAt),
		Title:        fn.Title,
		Markdown:     fn.Markdown,
		Sections:     fn.Sections,
		Glossary:     fn.Glossary,
		KeyTakeaways: fn.KeyTakeaways,
	}
}

func NewFinalSynthesisError(err error) FinalSynthesisError {
	return FinalSynthesisError{
		Envelope: newEnvelope("final_synthesis_error", time.Now().UTC()),
		Error:    err.Error(),
	}
}

func NewRecordingStarted() RecordingStarted {
	return RecordingStarted{
		Envelope: newEnvelope("recording_started", time.Now().UTC()),
		Message:  "recording started, send audio segments over HTTP",
	}
}

func NewRecordingStopped() RecordingStopped {
	return RecordingStopped{
		Envelope: newEnvelope("recording_stopped", time.Now().UTC()),
		Message:  "recording stopped",
	}
}
