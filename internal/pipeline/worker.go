package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lectern-app/lectern/internal/notes"
	"github.com/lectern-app/lectern/internal/retrieval"
	"github.com/lectern-app/lectern/internal/storage"
)

// Worker is the single long-lived task that drains one session's queue.
// Exactly one worker may be active per session: the registry cancels and
// awaits the old worker before starting a replacement.
type Worker struct {
	sessionID string
	queue     *Queue
	data      *SessionData
	deps      Deps
	policy    Policy
	trigger   *Trigger

	now  func() time.Time
	done chan struct{}
}

func NewWorker(sessionID string, queue *Queue, data *SessionData, deps Deps, policy Policy) *Worker {
	policy = policy.withDefaults()
	return &Worker{
		sessionID: sessionID,
		queue:     queue,
		data:      data,
		deps:      deps,
		policy:    policy,
		trigger:   NewTrigger(policy.Window, policy.Interval, deps.Detector),
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Done is closed when the worker has fully terminated, whether by
// cancellation or fault.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run drains the queue until ctx is cancelled. Collaborator failures are
// isolated per item; only an internal panic ends the loop early, and that
// is logged and terminal; there is no respawn, a reconnect starts fresh.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("session worker faulted", "session", w.sessionID, "panic", r)
		}
	}()

	slog.Info("session worker started", "session", w.sessionID)

	for {
		item, err := w.queue.Take(ctx)
		if err != nil {
			slog.Info("session worker cancelled", "session", w.sessionID)
			return
		}

		switch item.Kind {
		case ItemSegment:
			w.processSegment(ctx, item)
		case ItemFinal:
			w.runFinal(ctx, false)
		case ItemStop:
			w.runFinal(ctx, true)
		}

		if ctx.Err() != nil {
			slog.Info("session worker cancelled", "session", w.sessionID)
			return
		}
	}
}

func (w *Worker) processSegment(ctx context.Context, item Item) {
	audio, err := w.deps.Spool.Read(item.Ref)
	if err != nil {
		slog.Error("read spooled segment", "session", w.sessionID, "error", err)
		return
	}

	result, err := w.deps.Transcriber.Transcribe(ctx, audio, item.Ref.Filename)
	if err != nil {
		// Per-fragment isolation: one bad segment never kills the session.
		slog.Error("transcription failed", "session", w.sessionID, "segment", item.Ref.Filename, "error", err)
		return
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		slog.Debug("no speech detected in segment", "session", w.sessionID, "segment", item.Ref.Filename)
		w.removeSpooled(item.Ref)
		return
	}
	if ctx.Err() != nil {
		return
	}

	importance := w.deps.Scorer.Score(text, result.Segments)

	chunks := w.retrieve(ctx, text, w.policy.LiveTopK)
	if ctx.Err() != nil {
		return
	}

	enriched, err := w.deps.Enricher.Enrich(ctx, w.sessionID, text, chunks, w.data.History.Last())
	if err != nil {
		slog.Error("fragment enrichment failed", "session", w.sessionID, "error", err)
		enriched = ""
	}
	if ctx.Err() != nil {
		return
	}

	frag := notes.Fragment{
		Index:         w.data.NextIndex(),
		Text:          text,
		EnrichedNotes: enriched,
		Language:      result.Language,
		Importance:    importance,
		Timestamp:     time.UnixMilli(item.Ref.ArrivedAt).UTC(),
	}

	w.data.Buffer.Append(frag)
	w.data.RecordTranscript(text)

	if err := w.deps.Store.SaveFragment(w.sessionID, frag); err != nil {
		slog.Error("persist fragment failed", "session", w.sessionID, "fragment", frag.Index, "error", err)
	}

	w.deps.Publisher.PublishTranscription(frag)

	if w.trigger.Evaluate(ctx, w.sessionID, w.data) {
		w.synthesize(ctx)
	}

	w.removeSpooled(item.Ref)
}

// synthesize runs one mid-stream round over the newest window of fragments.
// On success the buffer collapses to its newest fragment and the trigger
// clock resets; on failure both are left untouched so the next fragment
// retries the evaluation.
func (w *Worker) synthesize(ctx context.Context) {
	fragments := w.data.Buffer.Window(w.policy.Window)
	if len(fragments) == 0 {
		return
	}

	w.deps.Publisher.PublishSynthesisStarted()

	texts := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		texts = append(texts, frag.Text)
	}
	chunks := w.retrieve(ctx, strings.Join(texts, " "), w.policy.LiveTopK)

	note, err := w.deps.Synthesizer.MidStream(ctx, w.sessionID, fragments, chunks, w.data.History.Last())
	if err != nil {
		slog.Error("mid-stream synthesis failed", "session", w.sessionID, "error", err)
		w.deps.Publisher.PublishSynthesisError(err)
		return
	}

	w.data.History.Append(note)
	if err := w.deps.Store.SaveStructuredNote(w.sessionID, note); err != nil {
		slog.Error("persist structured note failed", "session", w.sessionID, "error", err)
	}

	w.deps.Publisher.PublishStructuredNote(note)
	w.data.SetLastSynthesis(w.now())
	w.data.Buffer.TruncateToNewest()

	slog.Info("structured notes generated", "session", w.sessionID, "fragments", note.FragmentCount, "rounds", w.data.History.Len())
}

// runFinal flushes any buffered fragments through one last mid-stream
// round, then synthesizes the terminal document from the whole history.
// stop additionally marks the session ended and acknowledges the client.
func (w *Worker) runFinal(ctx context.Context, stop bool) {
	if w.data.Buffer.Len() > 0 {
		w.synthesize(ctx)
	}

	history := w.data.History.All()
	if len(history) == 0 {
		slog.Warn("no structured notes to synthesize", "session", w.sessionID)
		if stop {
			w.endSession()
		}
		return
	}

	w.deps.Publisher.PublishFinalSynthesisStarted()

	chunks := w.retrieve(ctx, w.data.Transcript(), w.policy.FinalTopK)

	fn, err := w.deps.Synthesizer.Final(ctx, w.sessionID, history, chunks)
	if err != nil {
		slog.Error("final synthesis failed", "session", w.sessionID, "error", err)
		w.deps.Publisher.PublishFinalSynthesisError(err)
		if stop {
			w.endSession()
		}
		return
	}

	if err := w.deps.Store.SaveFinalNotes(w.sessionID, fn); err != nil {
		slog.Error("persist final notes failed", "session", w.sessionID, "error", err)
	}

	w.deps.Publisher.PublishFinalNotes(fn)

	if w.deps.Exporter != nil {
		if err := w.deps.Exporter.ExportFinalNotes(ctx, w.sessionID, fn.Title, fn.Markdown); err != nil {
			slog.Error("final notes export failed", "session", w.sessionID, "error", err)
		}
	}

	slog.Info("final notes generated", "session", w.sessionID, "rounds", len(history))

	if stop {
		w.endSession()
	}
}

func (w *Worker) endSession() {
	if err := w.deps.Store.EndSession(w.sessionID, w.now().UTC()); err != nil {
		slog.Error("mark session ended failed", "session", w.sessionID, "error", err)
	}
	w.deps.Publisher.PublishRecordingStopped()
}

// retrieve is best-effort: a retrieval failure degrades to empty context
// rather than failing the fragment or round.
func (w *Worker) retrieve(ctx context.Context, query string, topK int) []retrieval.Chunk {
	chunks, err := w.deps.Retriever.Query(ctx, query, w.sessionID, topK)
	if err != nil {
		slog.Error("context retrieval failed", "session", w.sessionID, "error", err)
		return nil
	}
	return chunks
}

// removeSpooled deletes the transient audio file; failure to delete is
// non-fatal.
func (w *Worker) removeSpooled(ref storage.SegmentRef) {
	if err := w.deps.Spool.Remove(ref); err != nil {
		slog.Warn("remove spooled segment failed", "session", w.sessionID, "error", err)
	}
}
