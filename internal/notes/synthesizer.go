package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lectern-app/lectern/internal/llm"
	"github.com/lectern-app/lectern/internal/retrieval"
)

const midStreamSystemPrompt = `You are an expert lecture note synthesizer. Consolidate the transcript fragments into well-organized markdown study notes: headings, bullet points, definitions. Build on the previous notes without repeating them. Use the reference material to correct and complete what the speaker said. Reply with the markdown alone.`

const finalSystemPrompt = `You are an expert lecture note synthesizer producing a final comprehensive study document from incremental structured notes. Reply with a single JSON object and nothing else, using this shape:
{"title": "...", "markdown": "...", "sections": ["..."], "glossary": [{"term": "...", "definition": "..."}], "key_takeaways": ["..."]}
The markdown field is the full document body.`

// Synthesizer runs mid-stream and final note synthesis through LLM
// completion clients. Calls are retried with backoff; the caller decides
// what a failed round means for pipeline state.
type Synthesizer struct {
	notesClient llm.Client
	finalClient llm.Client
	sleep       func(time.Duration)
	now         func() time.Time
}

func NewSynthesizer(notesClient, finalClient llm.Client) *Synthesizer {
	return &Synthesizer{
		notesClient: notesClient,
		finalClient: finalClient,
		sleep:       time.Sleep,
		now:         time.Now,
	}
}

// MidStream consolidates a window of fragments into one structured note.
func (s *Synthesizer) MidStream(ctx context.Context, sessionID string, fragments []Fragment, chunks []retrieval.Chunk, prior *StructuredNote) (StructuredNote, error) {
	if s.notesClient == nil {
		return StructuredNote{}, fmt.Errorf("note synthesis is not configured")
	}
	if len(fragments) == 0 {
		return StructuredNote{}, fmt.Errorf("no fragments to synthesize")
	}

	var b strings.Builder
	if len(chunks) > 0 {
		b.WriteString("Reference material:\n")
		for _, chunk := range chunks {
			b.WriteString(chunk.Content)
			b.WriteString("\n---\n")
		}
		b.WriteString("\n")
	}
	if prior != nil {
		b.WriteString("Previous structured notes:\n")
		b.WriteString(prior.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("Transcript fragments, in order:\n")
	for _, frag := range fragments {
		b.WriteString(frag.Text)
		b.WriteString("\n---\n")
	}

	content, err := s.completeWithRetry(ctx, s.notesClient, llm.Request{
		System: midStreamSystemPrompt,
		User:   b.String(),
	})
	if err != nil {
		return StructuredNote{}, fmt.Errorf("mid-stream synthesis for session %s: %w", sessionID, err)
	}

	return StructuredNote{
		Content:       content,
		FragmentCount: len(fragments),
		CreatedAt:     s.now().UTC(),
	}, nil
}

// Final builds the terminal document from the whole structured-note history.
func (s *Synthesizer) Final(ctx context.Context, sessionID string, history []StructuredNote, chunks []retrieval.Chunk) (FinalNotes, error) {
	if s.finalClient == nil {
		return FinalNotes{}, fmt.Errorf("final synthesis is not configured")
	}
	if len(history) == 0 {
		return FinalNotes{}, fmt.Errorf("no structured notes to synthesize")
	}

	var b strings.Builder
	if len(chunks) > 0 {
		b.WriteString("Reference material:\n")
		for _, chunk := range chunks {
			b.WriteString(chunk.Content)
			b.WriteString("\n---\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Structured notes, in order:\n")
	for i, note := range history {
		fmt.Fprintf(&b, "## Round %d\n%s\n\n", i+1, note.Content)
	}

	raw, err := s.completeWithRetry(ctx, s.finalClient, llm.Request{
		System: finalSystemPrompt,
		User:   b.String(),
	})
	if err != nil {
		return FinalNotes{}, fmt.Errorf("final synthesis for session %s: %w", sessionID, err)
	}

	fn := parseFinalPayload(raw)
	fn.CreatedAt = s.now().UTC()
	return fn, nil
}

func (s *Synthesizer) completeWithRetry(ctx context.Context, client llm.Client, req llm.Request) (string, error) {
	backoff := []time.Duration{1 * time.Second, 4 * time.Second, 16 * time.Second}
	var lastErr error
	for attempt := range backoff {
		result, err := client.Complete(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < len(backoff)-1 {
			s.sleep(backoff[attempt])
		}
	}
	return "", fmt.Errorf("completion failed after retries: %w", lastErr)
}

// parseFinalPayload decodes the model's JSON reply. A reply that is not
// valid JSON degrades to a plain markdown document rather than failing the
// whole final round.
func parseFinalPayload(raw string) FinalNotes {
	var fn FinalNotes
	if err := json.Unmarshal([]byte(extractJSON(raw)), &fn); err == nil && fn.Markdown != "" {
		return fn
	}

	slog.Warn("final synthesis reply was not valid JSON, using raw markdown")
	return FinalNotes{
		Title:    "Session Notes",
		Markdown: strings.TrimSpace(raw),
	}
}

// extractJSON strips code fences and surrounding prose from a model reply,
// returning the outermost JSON object if one is present.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}
