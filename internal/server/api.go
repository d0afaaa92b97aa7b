package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lectern-app/lectern/internal/notes"
	"github.com/lectern-app/lectern/internal/pipeline"
	"github.com/lectern-app/lectern/internal/retrieval"
	"github.com/lectern-app/lectern/internal/session"
	"github.com/lectern-app/lectern/internal/storage"
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// maxSegmentBytes bounds one uploaded audio segment; segments are a few
// seconds of audio, far below this.
const maxSegmentBytes = 32 << 20

const maxDocumentBytes = 16 << 20

type SessionStore interface {
	CreateSession(id, title, subject string, createdAt time.Time) error
	GetSession(id string) (storage.Session, error)
	ListSessions() ([]storage.Session, error)
	GetFragments(sessionID string) ([]notes.Fragment, error)
	GetStructuredNotes(sessionID string) ([]notes.StructuredNote, error)
	GetFinalNotes(sessionID string) ([]notes.FinalNotes, error)
}

// SessionControl is the slice of the session registry the HTTP layer uses.
type SessionControl interface {
	Connect(id string, t session.Transport) *session.State
	Disconnect(id string, t session.Transport)
	Submit(id string, audio []byte, filename string) (int, error)
	StopRecording(ctx context.Context, id string) error
	RequestFinal(ctx context.Context, id string) error
	QueueDepth(id string) int
}

type DocumentIndex interface {
	Process(sessionID, filename string, content []byte) (retrieval.Document, error)
}

type createSessionRequest struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Subject string `json:"subject"`
}

func registerAPIRoutes(mux *http.ServeMux, store SessionStore, ctrl SessionControl, docs DocumentIndex) {
	mux.HandleFunc("POST /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
			return
		}

		id := strings.TrimSpace(req.ID)
		if id == "" {
			id = uuid.NewString()
		}
		if !validSessionID(id) {
			writeJSONError(w, http.StatusBadRequest, "invalid session id")
			return
		}

		if err := store.CreateSession(id, req.Title, req.Subject, time.Now().UTC()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("create session: %v", err))
			return
		}

		sess, err := store.GetSession(id)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get session: %v", err))
			return
		}

		writeJSON(w, http.StatusCreated, sess)
	})

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		sessions, err := store.ListSessions()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list sessions: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	})

	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}

		sess, err := store.GetSession(sessionID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sql.ErrNoRows) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, fmt.Sprintf("get session: %v", err))
			return
		}

		fragments, err := store.GetFragments(sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get fragments: %v", err))
			return
		}

		structured, err := store.GetStructuredNotes(sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get structured notes: %v", err))
			return
		}

		finals, err := store.GetFinalNotes(sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get final notes: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"session":          sess,
			"fragments":        fragments,
			"structured_notes": structured,
			"final_notes":      finals,
			"queue_depth":      ctrl.QueueDepth(sessionID),
		})
	})

	mux.HandleFunc("POST /api/sessions/{id}/segments", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}

		audio, filename, err := readUpload(r, "audio", maxSegmentBytes)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("read segment: %v", err))
			return
		}
		if len(audio) == 0 {
			writeJSONError(w, http.StatusBadRequest, "empty audio segment")
			return
		}

		depth, err := ctrl.Submit(sessionID, audio, filename)
		switch {
		case errors.Is(err, session.ErrNoTransport):
			writeJSONError(w, http.StatusConflict, "no active connection for session")
			return
		case errors.Is(err, pipeline.ErrQueueFull):
			writeJSONError(w, http.StatusTooManyRequests, "session queue is full")
			return
		case err != nil:
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("accept segment: %v", err))
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]any{
			"accepted":    true,
			"queue_depth": depth,
		})
	})

	mux.HandleFunc("POST /api/sessions/{id}/documents", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}

		content, filename, err := readUpload(r, "document", maxDocumentBytes)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("read document: %v", err))
			return
		}

		doc, err := docs.Process(sessionID, filename, content)
		if err != nil {
			writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("process document: %v", err))
			return
		}

		writeJSON(w, http.StatusCreated, doc)
	})
}

// readUpload accepts either a multipart form with the named file field or a
// raw body with an optional filename query parameter.
func readUpload(r *http.Request, field string, limit int64) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(limit); err != nil {
			return nil, "", fmt.Errorf("parse multipart form: %w", err)
		}
		f, header, err := r.FormFile(field)
		if err != nil {
			return nil, "", fmt.Errorf("missing %s field: %w", field, err)
		}
		defer func() { _ = f.Close() }()

		data, err := io.ReadAll(io.LimitReader(f, limit))
		if err != nil {
			return nil, "", fmt.Errorf("read %s upload: %w", field, err)
		}
		return data, header.Filename, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		return nil, "", fmt.Errorf("read request body: %w", err)
	}
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = field + ".bin"
	}
	return data, filename, nil
}

func validSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
