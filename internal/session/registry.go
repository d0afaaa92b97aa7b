package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lectern-app/lectern/internal/pipeline"
	"github.com/lectern-app/lectern/internal/storage"
)

// SegmentWriter spools inbound audio for later processing.
type SegmentWriter interface {
	Write(sessionID string, data []byte, filename string) (storage.SegmentRef, error)
	Remove(ref storage.SegmentRef) error
}

// Registry tracks live per-session state: the attached transport and the
// running worker. It is the only structure shared across sessions and is
// internally synchronized; everything hanging off a State belongs to that
// session alone.
type Registry struct {
	deps     pipeline.Deps
	policy   pipeline.Policy
	spool    SegmentWriter
	queueCap int
	grace    time.Duration

	baseCtx context.Context
	sleep   func(time.Duration)

	mu       sync.Mutex
	sessions map[string]*State
}

func NewRegistry(baseCtx context.Context, deps pipeline.Deps, policy pipeline.Policy, spool SegmentWriter, queueCap int, grace time.Duration) *Registry {
	return &Registry{
		deps:     deps,
		policy:   policy,
		spool:    spool,
		queueCap: queueCap,
		grace:    grace,
		baseCtx:  baseCtx,
		sleep:    time.Sleep,
		sessions: make(map[string]*State),
	}
}

func (r *Registry) ensure(id string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.sessions[id]
	if !ok {
		st = newState(id)
		r.sessions[id] = st
	}
	return st
}

func (r *Registry) lookup(id string) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.sessions[id]
	return st, ok
}

// Connect attaches a transport to the session and ensures exactly one
// worker is draining its queue. On reconnect the previous worker is
// cancelled and awaited before the replacement starts, and the queue is
// replaced with a fresh empty one: pending items from before the reconnect
// are deliberately discarded (last-writer-wins, not resume-from-checkpoint).
func (r *Registry) Connect(id string, t Transport) *State {
	st := r.ensure(id)

	st.connectMu.Lock()
	defer st.connectMu.Unlock()

	st.mu.Lock()
	oldCancel, oldWorker := st.cancel, st.worker
	st.mu.Unlock()

	if oldCancel != nil {
		slog.Info("reconnect: cancelling previous worker", "session", id)
		oldCancel()
		<-oldWorker.Done()
	}

	queue := pipeline.NewQueue(r.queueCap)
	ctx, cancel := context.WithCancel(r.baseCtx)

	deps := r.deps
	deps.Publisher = st
	worker := pipeline.NewWorker(id, queue, st.data, deps, r.policy)

	st.mu.Lock()
	st.queue = queue
	st.worker = worker
	st.cancel = cancel
	st.transport = t
	st.mu.Unlock()

	go worker.Run(ctx)

	return st
}

// Disconnect detaches the transport if it is still the attached one. The
// worker keeps running and queued segments continue to be processed; events
// pushed during the gap are dropped.
func (r *Registry) Disconnect(id string, t Transport) {
	st, ok := r.lookup(id)
	if !ok {
		return
	}

	st.mu.Lock()
	if st.transport == t {
		st.transport = nil
		slog.Info("transport detached, worker continues", "session", id)
	}
	st.mu.Unlock()
}

// Submit accepts one audio segment: spool it and enqueue a work item.
// Returns the queue depth after the append for backpressure visibility.
// Fails with ErrNoTransport when no event channel is attached, and with
// pipeline.ErrQueueFull when the bounded queue is at capacity.
func (r *Registry) Submit(id string, audio []byte, filename string) (int, error) {
	st, ok := r.lookup(id)
	if !ok {
		return 0, ErrNoTransport
	}

	st.mu.Lock()
	transport, queue := st.transport, st.queue
	st.mu.Unlock()

	if transport == nil || queue == nil {
		return 0, ErrNoTransport
	}

	ref, err := r.spool.Write(id, audio, storage.Sanitize(filename))
	if err != nil {
		return 0, fmt.Errorf("spool segment: %w", err)
	}

	depth, err := queue.Enqueue(pipeline.Item{Kind: pipeline.ItemSegment, Ref: ref})
	if err != nil {
		if removeErr := r.spool.Remove(ref); removeErr != nil {
			slog.Warn("remove rejected segment failed", "session", id, "error", removeErr)
		}
		return depth, err
	}

	return depth, nil
}

// StopRecording waits out the grace period so in-flight uploads can still
// be enqueued, then schedules drain + final synthesis + stop acknowledgment
// behind everything already queued.
func (r *Registry) StopRecording(ctx context.Context, id string) error {
	st, ok := r.lookup(id)
	if !ok {
		return ErrNoSuchSession
	}

	r.sleep(r.grace)

	queue := st.Queue()
	if queue == nil {
		return ErrNoSuchSession
	}
	return queue.EnqueueWait(ctx, pipeline.Item{Kind: pipeline.ItemStop})
}

// RequestFinal schedules a final synthesis without stopping the session.
func (r *Registry) RequestFinal(ctx context.Context, id string) error {
	st, ok := r.lookup(id)
	if !ok {
		return ErrNoSuchSession
	}

	queue := st.Queue()
	if queue == nil {
		return ErrNoSuchSession
	}
	return queue.EnqueueWait(ctx, pipeline.Item{Kind: pipeline.ItemFinal})
}

// QueueDepth reports the pending item count for a session, zero if unknown.
func (r *Registry) QueueDepth(id string) int {
	st, ok := r.lookup(id)
	if !ok {
		return 0
	}
	queue := st.Queue()
	if queue == nil {
		return 0
	}
	return queue.Len()
}
