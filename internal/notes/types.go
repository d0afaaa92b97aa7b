package notes

import "time"

// Fragment is the transcribed and enriched text derived from one audio
// segment. Immutable once created.
type Fragment struct {
	Index         int       `json:"index"`
	Text          string    `json:"text"`
	EnrichedNotes string    `json:"enriched_notes"`
	Language      string    `json:"language,omitempty"`
	Importance    float64   `json:"importance"`
	Timestamp     time.Time `json:"timestamp"`
}

// StructuredNote is the output of one mid-stream synthesis round. The
// content payload is opaque markdown; never mutated after creation.
type StructuredNote struct {
	Content       string    `json:"content"`
	FragmentCount int       `json:"fragment_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// GlossaryEntry is one term definition in the final notes.
type GlossaryEntry struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// FinalNotes is the terminal artifact for a session.
type FinalNotes struct {
	Title        string          `json:"title"`
	Markdown     string          `json:"markdown"`
	Sections     []string        `json:"sections"`
	Glossary     []GlossaryEntry `json:"glossary"`
	KeyTakeaways []string        `json:"key_takeaways"`
	CreatedAt    time.Time       `json:"created_at"`
}
