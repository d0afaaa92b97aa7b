// Package pipeline implements the per-session streaming core: a bounded
// FIFO work queue, a rolling fragment buffer, the synthesis trigger policy,
// and the single worker that drains a session's queue. External services
// (speech-to-text, retrieval, LLM synthesis, persistence) are consumed
// through the narrow interfaces below.
package pipeline

import (
	"context"
	"time"

	"github.com/lectern-app/lectern/internal/notes"
	"github.com/lectern-app/lectern/internal/retrieval"
	"github.com/lectern-app/lectern/internal/storage"
	"github.com/lectern-app/lectern/internal/transcribe"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (transcribe.Result, error)
}

type Scorer interface {
	Score(text string, segments []transcribe.Span) float64
}

type Retriever interface {
	Query(ctx context.Context, query, sessionID string, topK int) ([]retrieval.Chunk, error)
}

type Enricher interface {
	Enrich(ctx context.Context, sessionID, text string, chunks []retrieval.Chunk, prior *notes.StructuredNote) (string, error)
}

type ShiftDetector interface {
	Detect(ctx context.Context, latest string, prior []string) (bool, error)
}

type Synthesizer interface {
	MidStream(ctx context.Context, sessionID string, fragments []notes.Fragment, chunks []retrieval.Chunk, prior *notes.StructuredNote) (notes.StructuredNote, error)
	Final(ctx context.Context, sessionID string, history []notes.StructuredNote, chunks []retrieval.Chunk) (notes.FinalNotes, error)
}

// Store is the persistence sink. All calls are best-effort from the
// worker's perspective: failures are logged, never surfaced to the client.
type Store interface {
	SaveFragment(sessionID string, frag notes.Fragment) error
	SaveStructuredNote(sessionID string, note notes.StructuredNote) error
	SaveFinalNotes(sessionID string, fn notes.FinalNotes) error
	EndSession(id string, endedAt time.Time) error
}

// Spool provides access to transiently stored audio segments.
type Spool interface {
	Read(ref storage.SegmentRef) ([]byte, error)
	Remove(ref storage.SegmentRef) error
}

// Publisher pushes events toward the session's client. Implementations
// must tolerate a detached transport (events are dropped, not queued).
type Publisher interface {
	PublishTranscription(frag notes.Fragment)
	PublishSynthesisStarted()
	PublishStructuredNote(note notes.StructuredNote)
	PublishSynthesisError(err error)
	PublishFinalSynthesisStarted()
	PublishFinalNotes(fn notes.FinalNotes)
	PublishFinalSynthesisError(err error)
	PublishRecordingStopped()
}

// Exporter copies final notes to an external destination, best-effort.
type Exporter interface {
	ExportFinalNotes(ctx context.Context, sessionID, title, markdown string) error
}

// Deps bundles the collaborators a worker needs.
type Deps struct {
	Transcriber Transcriber
	Scorer      Scorer
	Retriever   Retriever
	Enricher    Enricher
	Detector    ShiftDetector
	Synthesizer Synthesizer
	Store       Store
	Spool       Spool
	Publisher   Publisher
	Exporter    Exporter // optional
}

// Policy carries the tunable pipeline parameters.
type Policy struct {
	Window    int           // fragments consumed per mid-stream round
	Interval  time.Duration // time-based trigger threshold
	LiveTopK  int           // retrieval depth for enrichment and mid-stream rounds
	FinalTopK int           // retrieval depth for the final round
}

func (p Policy) withDefaults() Policy {
	if p.Window <= 0 {
		p.Window = 3
	}
	if p.Interval <= 0 {
		p.Interval = 60 * time.Second
	}
	if p.LiveTopK <= 0 {
		p.LiveTopK = 5
	}
	if p.FinalTopK <= 0 {
		p.FinalTopK = 15
	}
	return p
}
