package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lectern-app/lectern/internal/storage"
)

func TestQueue_Enqueue_ReportsDepth(t *testing.T) {
	q := NewQueue(4)

	depth, err := q.Enqueue(Item{Kind: ItemSegment})
	if err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	if depth != 1 {
		t.Errorf("expected depth 1, got %d", depth)
	}

	depth, err = q.Enqueue(Item{Kind: ItemSegment})
	if err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	if depth != 2 {
		t.Errorf("expected depth 2, got %d", depth)
	}
}

func TestQueue_Enqueue_FullReturnsError(t *testing.T) {
	q := NewQueue(2)
	for range 2 {
		if _, err := q.Enqueue(Item{Kind: ItemSegment}); err != nil {
			t.Fatalf("unexpected enqueue error: %v", err)
		}
	}

	_, err := q.Enqueue(Item{Kind: ItemSegment})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if q.Len() != 2 {
		t.Errorf("expected depth unchanged at 2, got %d", q.Len())
	}
}

func TestQueue_Take_FIFOOrder(t *testing.T) {
	q := NewQueue(8)
	refs := []string{"a", "b", "c"}
	for _, name := range refs {
		if _, err := q.Enqueue(Item{Kind: ItemSegment, Ref: storage.SegmentRef{Filename: name}}); err != nil {
			t.Fatalf("unexpected enqueue error: %v", err)
		}
	}

	for _, want := range refs {
		item, err := q.Take(context.Background())
		if err != nil {
			t.Fatalf("unexpected take error: %v", err)
		}
		if item.Ref.Filename != want {
			t.Errorf("expected %q, got %q", want, item.Ref.Filename)
		}
	}
}

func TestQueue_Take_CancelledContext(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Take(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestQueue_EnqueueWait_BlocksUntilRoom(t *testing.T) {
	q := NewQueue(1)
	if _, err := q.Enqueue(Item{Kind: ItemSegment}); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- q.EnqueueWait(context.Background(), Item{Kind: ItemStop})
	}()

	select {
	case err := <-done:
		t.Fatalf("expected EnqueueWait to block on full queue, returned %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := q.Take(context.Background()); err != nil {
		t.Fatalf("unexpected take error: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected EnqueueWait error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("EnqueueWait did not complete after room freed")
	}
}

func TestQueue_EnqueueWait_CancelledContext(t *testing.T) {
	q := NewQueue(1)
	if _, err := q.Enqueue(Item{Kind: ItemSegment}); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.EnqueueWait(ctx, Item{Kind: ItemStop}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
