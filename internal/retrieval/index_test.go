package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memChunkStore struct {
	docs   map[string]Document
	chunks map[string][]Chunk // keyed by session id
	err    error
}

func newMemChunkStore() *memChunkStore {
	return &memChunkStore{
		docs:   make(map[string]Document),
		chunks: make(map[string][]Chunk),
	}
}

func (s *memChunkStore) CreateDocument(id, sessionID, filename string, chunkCount int, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.docs[id] = Document{ID: id, Filename: filename, ChunkCount: chunkCount}
	return nil
}

func (s *memChunkStore) InsertChunks(documentID, sessionID string, contents []string) error {
	if s.err != nil {
		return s.err
	}
	for i, content := range contents {
		s.chunks[sessionID] = append(s.chunks[sessionID], Chunk{DocumentID: documentID, Index: i, Content: content})
	}
	return nil
}

func (s *memChunkStore) ChunksBySession(sessionID string) ([]Chunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks[sessionID], nil
}

func TestIndex_Process_ChunksAndStores(t *testing.T) {
	store := newMemChunkStore()
	idx := NewIndex(store, 50, 10)

	doc, err := idx.Process("s1", "syllabus.txt", []byte("First sentence here. Second sentence follows. Third sentence closes it out completely."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID == "" {
		t.Error("expected generated document id")
	}
	if doc.Filename != "syllabus.txt" {
		t.Errorf("expected filename kept, got %q", doc.Filename)
	}
	if doc.ChunkCount != len(store.chunks["s1"]) {
		t.Errorf("expected chunk count %d to match stored chunks %d", doc.ChunkCount, len(store.chunks["s1"]))
	}
	if doc.ChunkCount < 2 {
		t.Errorf("expected document split into multiple chunks, got %d", doc.ChunkCount)
	}
}

func TestIndex_Process_EmptyDocument(t *testing.T) {
	idx := NewIndex(newMemChunkStore(), 50, 10)

	if _, err := idx.Process("s1", "empty.txt", []byte("   ")); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestIndex_Query_RanksByOverlap(t *testing.T) {
	store := newMemChunkStore()
	store.chunks["s1"] = []Chunk{
		{DocumentID: "d1", Index: 0, Content: "cooking recipes for pasta and sauce"},
		{DocumentID: "d1", Index: 1, Content: "eigenvalues and eigenvectors of a matrix"},
		{DocumentID: "d1", Index: 2, Content: "matrix multiplication rules and examples"},
	}
	idx := NewIndex(store, 1200, 200)

	result, err := idx.Query(context.Background(), "eigenvalues of the matrix", "s1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result))
	}
	if result[0].Index != 1 {
		t.Errorf("expected eigenvalue chunk ranked first, got chunk %d", result[0].Index)
	}
	for _, chunk := range result {
		if chunk.Index == 0 {
			t.Error("expected unrelated cooking chunk excluded")
		}
	}
}

func TestIndex_Query_NoOverlapReturnsEmpty(t *testing.T) {
	store := newMemChunkStore()
	store.chunks["s1"] = []Chunk{{DocumentID: "d1", Index: 0, Content: "cooking recipes"}}
	idx := NewIndex(store, 1200, 200)

	result, err := idx.Query(context.Background(), "quantum entanglement", "s1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected no results without term overlap, got %d", len(result))
	}
}

func TestIndex_Query_StopwordsOnlyQuery(t *testing.T) {
	store := newMemChunkStore()
	store.chunks["s1"] = []Chunk{{DocumentID: "d1", Index: 0, Content: "the is and of"}}
	idx := NewIndex(store, 1200, 200)

	result, err := idx.Query(context.Background(), "the and of is", "s1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil for stopword-only query, got %v", result)
	}
}

func TestIndex_Query_ZeroTopK(t *testing.T) {
	idx := NewIndex(newMemChunkStore(), 1200, 200)

	result, err := idx.Query(context.Background(), "anything", "s1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil for topK 0, got %v", result)
	}
}

func TestIndex_Query_StoreError(t *testing.T) {
	store := newMemChunkStore()
	store.err = errors.New("db closed")
	idx := NewIndex(store, 1200, 200)

	if _, err := idx.Query(context.Background(), "matrix", "s1", 5); err == nil {
		t.Fatal("expected store error surfaced")
	}
}
