// Package retrieval stores uploaded reference documents as overlapping text
// chunks and serves top-K context lookups for transcript enrichment and
// note synthesis. Ranking is plain term overlap; deterministic and local,
// which is all the pipeline contract requires.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChunkStore is the persistence surface the index needs.
type ChunkStore interface {
	CreateDocument(id, sessionID, filename string, chunkCount int, uploadedAt time.Time) error
	InsertChunks(documentID, sessionID string, contents []string) error
	ChunksBySession(sessionID string) ([]Chunk, error)
}

// Document summarizes one processed upload.
type Document struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

type Index struct {
	store        ChunkStore
	chunkSize    int
	chunkOverlap int
	now          func() time.Time
}

func NewIndex(store ChunkStore, chunkSize, chunkOverlap int) *Index {
	return &Index{
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		now:          time.Now,
	}
}

// Process chunks an uploaded document and stores it under the session.
func (x *Index) Process(sessionID, filename string, content []byte) (Document, error) {
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return Document{}, fmt.Errorf("document %s is empty", filename)
	}

	chunks := Split(text, x.chunkSize, x.chunkOverlap)
	docID := uuid.NewString()

	if err := x.store.CreateDocument(docID, sessionID, filename, len(chunks), x.now().UTC()); err != nil {
		return Document{}, fmt.Errorf("create document record: %w", err)
	}
	if err := x.store.InsertChunks(docID, sessionID, chunks); err != nil {
		return Document{}, fmt.Errorf("store document chunks: %w", err)
	}

	return Document{ID: docID, Filename: filename, ChunkCount: len(chunks)}, nil
}

// Query returns the topK chunks for the session ranked by term overlap with
// the query text. Chunks with no overlap are omitted, so the result may be
// shorter than topK or empty.
func (x *Index) Query(_ context.Context, query, sessionID string, topK int) ([]Chunk, error) {
	if topK <= 0 {
		return nil, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	chunks, err := x.store.ChunksBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load chunks for session %s: %w", sessionID, err)
	}

	type scored struct {
		chunk Chunk
		score float64
	}

	ranked := make([]scored, 0, len(chunks))
	for _, chunk := range chunks {
		s := overlapScore(terms, chunk.Content)
		if s > 0 {
			ranked = append(ranked, scored{chunk: chunk, score: s})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	result := make([]Chunk, 0, len(ranked))
	for _, r := range ranked {
		result = append(result, r.chunk)
	}
	return result, nil
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {}, "so": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "we": {},
	"were": {}, "which": {}, "will": {}, "with": {}, "you": {},
}

func tokenize(text string) map[string]int {
	terms := make(map[string]int)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(word) < 2 {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		terms[word]++
	}
	return terms
}

// overlapScore is the summed frequency of query terms present in the chunk,
// dampened by chunk length so long chunks don't win on volume alone.
func overlapScore(queryTerms map[string]int, content string) float64 {
	chunkTerms := tokenize(content)
	if len(chunkTerms) == 0 {
		return 0
	}

	var matched float64
	for term, qf := range queryTerms {
		if cf, ok := chunkTerms[term]; ok {
			matched += float64(qf * cf)
		}
	}
	if matched == 0 {
		return 0
	}

	return matched / math.Sqrt(float64(len(chunkTerms)))
}
