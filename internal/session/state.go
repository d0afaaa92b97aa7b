package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/lectern-app/lectern/internal/event"
	"github.com/lectern-app/lectern/internal/notes"
	"github.com/lectern-app/lectern/internal/pipeline"
)

// Transport is the outbound push channel to one session's client.
type Transport interface {
	Send(payload []byte) error
}

// State owns everything per session: the work queue, the pipeline data
// (buffer, history, timing), the running worker, and the currently attached
// transport. The transport reference may be nil during a reconnect gap; the
// worker keeps running and its events are dropped.
type State struct {
	ID string

	// connectMu serializes connect/reconnect sequences. It is never taken
	// on the publish path, so an old worker can still flush events while a
	// reconnect is waiting for it to terminate.
	connectMu sync.Mutex

	mu        sync.Mutex
	queue     *pipeline.Queue
	data      *pipeline.SessionData
	worker    *pipeline.Worker
	cancel    context.CancelFunc
	transport Transport
}

func newState(id string) *State {
	return &State{
		ID:   id,
		data: pipeline.NewSessionData(),
	}
}

// Queue returns the session's current queue, or nil before first connect.
func (s *State) Queue() *pipeline.Queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue
}

// HasTransport reports whether an event channel is currently attached.
func (s *State) HasTransport() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport != nil
}

// SendEvent marshals and pushes an event to the attached transport. Events
// are silently dropped while no transport is attached; the REST API is the
// catch-up path after a reconnect.
func (s *State) SendEvent(evt any) {
	payload, err := json.Marshal(evt)
	if err != nil {
		slog.Error("event marshal failed", "session", s.ID, "error", err)
		return
	}

	s.mu.Lock()
	t := s.transport
	s.mu.Unlock()

	if t == nil {
		return
	}
	if err := t.Send(payload); err != nil {
		slog.Warn("event delivery failed", "session", s.ID, "error", err)
	}
}

// State implements pipeline.Publisher for its own worker.

func (s *State) PublishTranscription(frag notes.Fragment) {
	s.SendEvent(event.NewTranscription(frag))
}

func (s *State) PublishSynthesisStarted() {
	s.SendEvent(event.NewSynthesisStarted())
}

func (s *State) PublishStructuredNote(note notes.StructuredNote) {
	s.SendEvent(event.NewStructuredNotes(note))
}

func (s *State) PublishSynthesisError(err error) {
	s.SendEvent(event.NewSynthesisError(err))
}

func (s *State) PublishFinalSynthesisStarted() {
	s.SendEvent(event.NewFinalSynthesisStarted())
}

func (s *State) PublishFinalNotes(fn notes.FinalNotes) {
	s.SendEvent(event.NewFinalNotes(fn))
}

func (s *State) PublishFinalSynthesisError(err error) {
	s.SendEvent(event.NewFinalSynthesisError(err))
}

func (s *State) PublishRecordingStopped() {
	s.SendEvent(event.NewRecordingStopped())
}
