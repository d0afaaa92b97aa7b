package pipeline

import (
	"context"
	"errors"

	"github.com/lectern-app/lectern/internal/storage"
)

// ErrQueueFull is returned by Enqueue when the session's queue is at
// capacity; callers surface it as backpressure rather than blocking.
var ErrQueueFull = errors.New("session queue full")

type ItemKind int

const (
	// ItemSegment references one spooled audio segment.
	ItemSegment ItemKind = iota
	// ItemFinal requests a final synthesis without stopping the session.
	ItemFinal
	// ItemStop requests drain, final synthesis, and a stop acknowledgment.
	ItemStop
)

type Item struct {
	Kind ItemKind
	Ref  storage.SegmentRef
}

// Queue is the per-session work channel: multi-producer, single-consumer,
// bounded. A session's queue is replaced wholesale on reconnect; the old
// worker holds the old queue, so a stale dequeue can never feed the new one.
type Queue struct {
	ch chan Item
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	return &Queue{ch: make(chan Item, capacity)}
}

// Enqueue appends without blocking and returns the queue depth after the
// append, for backpressure visibility at the intake boundary.
func (q *Queue) Enqueue(item Item) (int, error) {
	select {
	case q.ch <- item:
		return len(q.ch), nil
	default:
		return len(q.ch), ErrQueueFull
	}
}

// EnqueueWait blocks until there is room or ctx is done. Control items use
// this path so a full queue cannot drop a stop signal.
func (q *Queue) EnqueueWait(ctx context.Context, item Item) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take blocks until an item is available or ctx is done.
func (q *Queue) Take(ctx context.Context) (Item, error) {
	select {
	case item := <-q.ch:
		return item, nil
	case <-ctx.Done():
		return Item{}, ctx.Err()
	}
}

func (q *Queue) Len() int {
	return len(q.ch)
}
