package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lectern-app/lectern/internal/notes"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store init failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_CreateAndGetSession(t *testing.T) {
	store := newTestStore(t)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := store.CreateSession("s1", "Linear Algebra", "math", created); err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	sess, err := store.GetSession("s1")
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if sess.Title != "Linear Algebra" || sess.Subject != "math" {
		t.Errorf("expected title and subject kept, got %q %q", sess.Title, sess.Subject)
	}
	if sess.Status != SessionCreated {
		t.Errorf("expected status %q, got %q", SessionCreated, sess.Status)
	}
	if !sess.CreatedAt.Equal(created) {
		t.Errorf("expected created_at %v, got %v", created, sess.CreatedAt)
	}
	if sess.EndedAt != nil {
		t.Errorf("expected no ended_at on a new session, got %v", sess.EndedAt)
	}
}

func TestSQLiteStore_CreateSession_EmptyID(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateSession("  ", "", "", time.Now()); err == nil {
		t.Fatal("expected error for blank session id")
	}
}

func TestSQLiteStore_EndSession(t *testing.T) {
	store := newTestStore(t)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ended := created.Add(time.Hour)

	if err := store.CreateSession("s1", "", "", created); err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if err := store.EndSession("s1", ended); err != nil {
		t.Fatalf("end session failed: %v", err)
	}

	sess, err := store.GetSession("s1")
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if sess.Status != SessionEnded {
		t.Errorf("expected status %q, got %q", SessionEnded, sess.Status)
	}
	if sess.EndedAt == nil || !sess.EndedAt.Equal(ended) {
		t.Errorf("expected ended_at %v, got %v", ended, sess.EndedAt)
	}
}

func TestSQLiteStore_EndSession_Unknown(t *testing.T) {
	store := newTestStore(t)
	if err := store.EndSession("ghost", time.Now()); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSQLiteStore_ListSessions_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"older", "newer"} {
		if err := store.CreateSession(id, "", "", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("create session failed: %v", err)
		}
	}

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "newer" {
		t.Errorf("expected newest session first, got %q", sessions[0].ID)
	}
}

func TestSQLiteStore_FragmentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateSession("s1", "", "", time.Now().UTC()); err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	ts := time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC)
	frags := []notes.Fragment{
		{Index: 0, Text: "first fragment", EnrichedNotes: "- a note", Language: "en", Importance: 0.8, Timestamp: ts},
		{Index: 1, Text: "second fragment", Importance: 0.3, Timestamp: ts.Add(20 * time.Second)},
	}
	for _, frag := range frags {
		if err := store.SaveFragment("s1", frag); err != nil {
			t.Fatalf("save fragment failed: %v", err)
		}
	}

	got, err := store.GetFragments("s1")
	if err != nil {
		t.Fatalf("get fragments failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(got))
	}
	if got[0].Text != "first fragment" || got[0].EnrichedNotes != "- a note" {
		t.Errorf("expected first fragment round-tripped, got %+v", got[0])
	}
	if got[0].Importance != 0.8 {
		t.Errorf("expected importance 0.8, got %v", got[0].Importance)
	}
	if !got[1].Timestamp.Equal(ts.Add(20 * time.Second)) {
		t.Errorf("expected timestamp preserved, got %v", got[1].Timestamp)
	}
}

func TestSQLiteStore_StructuredNoteRoundTrip(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateSession("s1", "", "", time.Now().UTC()); err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	note := notes.StructuredNote{
		Content:       "## Round one",
		FragmentCount: 3,
		CreatedAt:     time.Date(2025, 3, 1, 10, 20, 0, 0, time.UTC),
	}
	if err := store.SaveStructuredNote("s1", note); err != nil {
		t.Fatalf("save structured note failed: %v", err)
	}

	got, err := store.GetStructuredNotes("s1")
	if err != nil {
		t.Fatalf("get structured notes failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 note, got %d", len(got))
	}
	if got[0].Content != note.Content || got[0].FragmentCount != 3 {
		t.Errorf("expected note round-tripped, got %+v", got[0])
	}
}

func TestSQLiteStore_FinalNotesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateSession("s1", "", "", time.Now().UTC()); err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	fn := notes.FinalNotes{
		Title:        "Linear Algebra",
		Markdown:     "# Notes body",
		Sections:     []string{"Vectors", "Matrices"},
		Glossary:     []notes.GlossaryEntry{{Term: "span", Definition: "all linear combinations"}},
		KeyTakeaways: []string{"practice daily"},
		CreatedAt:    time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
	}
	if err := store.SaveFinalNotes("s1", fn); err != nil {
		t.Fatalf("save final notes failed: %v", err)
	}

	got, err := store.GetFinalNotes("s1")
	if err != nil {
		t.Fatalf("get final notes failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 final notes record, got %d", len(got))
	}
	if got[0].Title != fn.Title {
		t.Errorf("expected title %q, got %q", fn.Title, got[0].Title)
	}
	if len(got[0].Sections) != 2 || got[0].Sections[1] != "Matrices" {
		t.Errorf("expected sections round-tripped, got %v", got[0].Sections)
	}
	if len(got[0].Glossary) != 1 || got[0].Glossary[0].Term != "span" {
		t.Errorf("expected glossary round-tripped, got %v", got[0].Glossary)
	}
}

func TestSQLiteStore_ChunksBySession(t *testing.T) {
	store := newTestStore(t)

	uploadedAt := time.Now().UTC()
	if err := store.CreateDocument("d1", "s1", "syllabus.txt", 2, uploadedAt); err != nil {
		t.Fatalf("create document failed: %v", err)
	}
	if err := store.InsertChunks("d1", "s1", []string{"chunk zero", "chunk one"}); err != nil {
		t.Fatalf("insert chunks failed: %v", err)
	}
	if err := store.CreateDocument("d2", "other", "notes.txt", 1, uploadedAt); err != nil {
		t.Fatalf("create document failed: %v", err)
	}
	if err := store.InsertChunks("d2", "other", []string{"unrelated"}); err != nil {
		t.Fatalf("insert chunks failed: %v", err)
	}

	chunks, err := store.ChunksBySession("s1")
	if err != nil {
		t.Fatalf("chunks by session failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks for s1, got %d", len(chunks))
	}
	if chunks[0].Content != "chunk zero" || chunks[0].Index != 0 {
		t.Errorf("expected chunk order preserved, got %+v", chunks[0])
	}
	for _, chunk := range chunks {
		if chunk.DocumentID != "d1" {
			t.Errorf("expected only d1 chunks, got %q", chunk.DocumentID)
		}
	}
}

func TestSQLiteStore_GetFragments_EmptySession(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetFragments("nothing")
	if err != nil {
		t.Fatalf("get fragments failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no fragments, got %d", len(got))
	}
}
