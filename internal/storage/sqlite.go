package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lectern-app/lectern/internal/notes"
	"github.com/lectern-app/lectern/internal/retrieval"
)

const (
	SessionCreated = "created"
	SessionEnded   = "ended"
)

type Session struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Subject   string     `json:"subject"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "lectern.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			ended_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS fragments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			frag_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			enriched_notes TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			importance REAL NOT NULL DEFAULT 0,
			timestamp TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS structured_notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			content TEXT NOT NULL,
			fragment_count INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS final_notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			title TEXT NOT NULL,
			markdown TEXT NOT NULL,
			sections TEXT NOT NULL DEFAULT '[]',
			glossary TEXT NOT NULL DEFAULT '[]',
			key_takeaways TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			chunk_count INTEGER NOT NULL,
			uploaded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			FOREIGN KEY(document_id) REFERENCES documents(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fragments_session ON fragments(session_id, frag_index);`,
		`CREATE INDEX IF NOT EXISTS idx_structured_notes_session ON structured_notes(session_id, id);`,
		`CREATE INDEX IF NOT EXISTS idx_final_notes_session ON final_notes(session_id, id);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_session ON chunks(session_id);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(id, title, subject string, createdAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("session id is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions(id, title, subject, status, created_at) VALUES(?, ?, ?, ?, ?)`,
		id,
		title,
		subject,
		SessionCreated,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) EndSession(id string, endedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ?, status = ? WHERE id = ?`,
		endedAt.UTC().Format(time.RFC3339Nano),
		SessionEnded,
		id,
	)
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) GetSession(id string) (Session, error) {
	row := s.db.QueryRow(
		`SELECT id, title, subject, status, created_at, ended_at FROM sessions WHERE id = ?`,
		id,
	)

	var sess Session
	var createdAt string
	var endedAt sql.NullString
	if err := row.Scan(&sess.ID, &sess.Title, &sess.Subject, &sess.Status, &createdAt, &endedAt); err != nil {
		return Session{}, fmt.Errorf("query session %s: %w", id, err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Session{}, fmt.Errorf("parse session %s created_at: %w", id, err)
	}
	sess.CreatedAt = parsed

	if endedAt.Valid {
		parsedEnd, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return Session{}, fmt.Errorf("parse session %s ended_at: %w", id, err)
		}
		sess.EndedAt = &parsedEnd
	}

	return sess, nil
}

func (s *SQLiteStore) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, title, subject, status, created_at, ended_at FROM sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]Session, 0, 16)
	for rows.Next() {
		var sess Session
		var createdAt string
		var endedAt sql.NullString
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.Subject, &sess.Status, &createdAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		sess.CreatedAt = parsed

		if endedAt.Valid {
			parsedEnd, err := time.Parse(time.RFC3339Nano, endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
			sess.EndedAt = &parsedEnd
		}

		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions rows: %w", err)
	}

	return sessions, nil
}

func (s *SQLiteStore) SaveFragment(sessionID string, frag notes.Fragment) error {
	_, err := s.db.Exec(
		`INSERT INTO fragments(session_id, frag_index, text, enriched_notes, language, importance, timestamp)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		frag.Index,
		strings.TrimSpace(frag.Text),
		frag.EnrichedNotes,
		frag.Language,
		frag.Importance,
		frag.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save fragment for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetFragments(sessionID string) ([]notes.Fragment, error) {
	rows, err := s.db.Query(
		`SELECT frag_index, text, enriched_notes, language, importance, timestamp
		 FROM fragments
		 WHERE session_id = ?
		 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query fragments for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	fragments := make([]notes.Fragment, 0, 32)
	for rows.Next() {
		var frag notes.Fragment
		var ts string
		if err := rows.Scan(&frag.Index, &frag.Text, &frag.EnrichedNotes, &frag.Language, &frag.Importance, &ts); err != nil {
			return nil, fmt.Errorf("scan fragment for session %s: %w", sessionID, err)
		}

		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse fragment timestamp for session %s: %w", sessionID, err)
		}
		frag.Timestamp = parsed

		fragments = append(fragments, frag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fragment rows for session %s: %w", sessionID, err)
	}

	return fragments, nil
}

func (s *SQLiteStore) SaveStructuredNote(sessionID string, note notes.StructuredNote) error {
	_, err := s.db.Exec(
		`INSERT INTO structured_notes(session_id, content, fragment_count, created_at) VALUES(?, ?, ?, ?)`,
		sessionID,
		note.Content,
		note.FragmentCount,
		note.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save structured note for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetStructuredNotes(sessionID string) ([]notes.StructuredNote, error) {
	rows, err := s.db.Query(
		`SELECT content, fragment_count, created_at
		 FROM structured_notes
		 WHERE session_id = ?
		 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query structured notes for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	var result []notes.StructuredNote
	for rows.Next() {
		var note notes.StructuredNote
		var ts string
		if err := rows.Scan(&note.Content, &note.FragmentCount, &ts); err != nil {
			return nil, fmt.Errorf("scan structured note for session %s: %w", sessionID, err)
		}

		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse structured note timestamp for session %s: %w", sessionID, err)
		}
		note.CreatedAt = parsed

		result = append(result, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate structured note rows for session %s: %w", sessionID, err)
	}

	return result, nil
}

func (s *SQLiteStore) SaveFinalNotes(sessionID string, fn notes.FinalNotes) error {
	sections, err := json.Marshal(fn.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	glossary, err := json.Marshal(fn.Glossary)
	if err != nil {
		return fmt.Errorf("marshal glossary: %w", err)
	}
	takeaways, err := json.Marshal(fn.KeyTakeaways)
	if err != nil {
		return fmt.Errorf("marshal key takeaways: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO final_notes(session_id, title, markdown, sections, glossary, key_takeaways, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		fn.Title,
		fn.Markdown,
		string(sections),
		string(glossary),
		string(takeaways),
		fn.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save final notes for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetFinalNotes(sessionID string) ([]notes.FinalNotes, error) {
	rows, err := s.db.Query(
		`SELECT title, markdown, sections, glossary, key_takeaways, created_at
		 FROM final_notes
		 WHERE session_id = ?
		 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query final notes for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	var result []notes.FinalNotes
	for rows.Next() {
		var fn notes.FinalNotes
		var sections, glossary, takeaways, ts string
		if err := rows.Scan(&fn.Title, &fn.Markdown, &sections, &glossary, &takeaways, &ts); err != nil {
			return nil, fmt.Errorf("scan final notes for session %s: %w", sessionID, err)
		}

		if err := json.Unmarshal([]byte(sections), &fn.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections for session %s: %w", sessionID, err)
		}
		if err := json.Unmarshal([]byte(glossary), &fn.Glossary); err != nil {
			return nil, fmt.Errorf("unmarshal glossary for session %s: %w", sessionID, err)
		}
		if err := json.Unmarshal([]byte(takeaways), &fn.KeyTakeaways); err != nil {
			return nil, fmt.Errorf("unmarshal key takeaways for session %s: %w", sessionID, err)
		}

		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse final notes timestamp for session %s: %w", sessionID, err)
		}
		fn.CreatedAt = parsed

		result = append(result, fn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate final note rows for session %s: %w", sessionID, err)
	}

	return result, nil
}

func (s *SQLiteStore) CreateDocument(id, sessionID, filename string, chunkCount int, uploadedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO documents(id, session_id, filename, chunk_count, uploaded_at) VALUES(?, ?, ?, ?, ?)`,
		id,
		sessionID,
		filename,
		chunkCount,
		uploadedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create document %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) InsertChunks(documentID, sessionID string, contents []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin chunk insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO chunks(document_id, session_id, chunk_index, content) VALUES(?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, content := range contents {
		if _, err := stmt.Exec(documentID, sessionID, i, content); err != nil {
			return fmt.Errorf("insert chunk %d for document %s: %w", i, documentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ChunksBySession(sessionID string) ([]retrieval.Chunk, error) {
	rows, err := s.db.Query(
		`SELECT document_id, chunk_index, content FROM chunks WHERE session_id = ? ORDER BY document_id, chunk_index`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chunks for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []retrieval.Chunk
	for rows.Next() {
		var chunk retrieval.Chunk
		if err := rows.Scan(&chunk.DocumentID, &chunk.Index, &chunk.Content); err != nil {
			return nil, fmt.Errorf("scan chunk for session %s: %w", sessionID, err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows for session %s: %w", sessionID, err)
	}

	return chunks, nil
}
