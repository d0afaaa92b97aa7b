package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/lectern-app/lectern/internal/llm"
	"github.com/lectern-app/lectern/internal/retrieval"
)

const enrichSystemPrompt = `You are a live note-taking assistant. Rewrite the transcript fragment as 2-4 concise bullet points of lecture notes. Use the reference material only when it clarifies a term or concept in the fragment. Reply with the bullet points alone, no preamble.`

// Enricher turns one raw transcript fragment into short contextual notes,
// using retrieved document chunks as grounding. No retry: this sits on the
// live path and a failed enrichment just leaves the fragment unenriched.
type Enricher struct {
	client llm.Client
}

func NewEnricher(client llm.Client) *Enricher {
	return &Enricher{client: client}
}

func (e *Enricher) Enrich(ctx context.Context, sessionID, text string, chunks []retrieval.Chunk, prior *StructuredNote) (string, error) {
	if e.client == nil {
		return "", nil
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
		b.WriteString("Notes so far:\n")
		b.WriteString(prior.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("Transcript fragment:\n")
	b.WriteString(text)

	result, err := e.client.Complete(ctx, llm.Request{
		System:    enrichSystemPrompt,
		User:      b.String(),
		MaxTokens: 400,
	})
	if err != nil {
		return "", fmt.Errorf("enrich fragment for session %s: %w", sessionID, err)
	}

	return strings.TrimSpace(result), nil
}
