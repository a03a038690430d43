package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/queue"
)

func item(id string, priority int) queue.Item {
	return queue.Item{JobID: id, Priority: priority}
}

func TestPriorityQueue_BasicEnqueueDequeue(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	if err := q.Enqueue(item("1", queue.PriorityMedium)); err != nil {
		t.Fatal(err)
	}

	got, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatal("expected item, got nothing")
	}
	if got.JobID != "1" {
		t.Fatalf("expected id=1, got %s", got.JobID)
	}
}

// TestPriorityQueue_CriticalBeforeAll verifies that a critical item
// inserted after lower-priority items is still served first.
func TestPriorityQueue_CriticalBeforeAll(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	_ = q.Enqueue(item("low", queue.PriorityLow))
	_ = q.Enqueue(item("medium", queue.PriorityMedium))
	_ = q.Enqueue(item("high", queue.PriorityHigh))
	_ = q.Enqueue(item("critical", queue.PriorityCritical))

	first, _ := q.Dequeue(ctx)
	if first.JobID != "critical" {
		t.Fatalf("expected critical to be dequeued first, got %q", first.JobID)
	}
	second, _ := q.Dequeue(ctx)
	if second.JobID != "high" {
		t.Fatalf("expected high to be dequeued second, got %q", second.JobID)
	}
}

// TestPriorityQueue_FIFOWithinTier verifies arrival order is preserved
// when items share a tier.
func TestPriorityQueue_FIFOWithinTier(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_ = q.Enqueue(item(id, queue.PriorityMedium))
	}
	for _, want := range []string{"a", "b", "c"} {
		got, _ := q.Dequeue(ctx)
		if got.JobID != want {
			t.Fatalf("expected %q, got %q", want, got.JobID)
		}
	}
}

// TestPriorityQueue_ContextCancellation verifies Dequeue returns (_, false)
// when the context is cancelled while blocking.
func TestPriorityQueue_ContextCancellation(t *testing.T) {
	q := queue.New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after context cancellation")
	}
}

func TestPriorityQueue_UnknownPriority(t *testing.T) {
	q := queue.New()

	if err := q.Enqueue(item("x", 99)); err == nil {
		t.Fatal("expected error for unknown priority")
	}
}

// TestPriorityQueue_ErrQueueFull fills the critical tier to capacity and
// verifies the non-blocking Enqueue rejects with the sentinel.
func TestPriorityQueue_ErrQueueFull(t *testing.T) {
	q := queue.New()

	for i := 0; i < 1000; i++ {
		if err := q.Enqueue(item("x", queue.PriorityCritical)); err != nil {
			t.Fatalf("enqueue %d failed early: %v", i, err)
		}
	}
	if err := q.Enqueue(item("overflow", queue.PriorityCritical)); !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestPriorityQueue_PauseResume(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	_ = q.Enqueue(item("before", queue.PriorityMedium))
	q.Pause()

	if err := q.Enqueue(item("during", queue.PriorityMedium)); !errors.Is(err, domain.ErrQueuePaused) {
		t.Fatalf("expected ErrQueuePaused, got %v", err)
	}

	// Buffered items keep draining while paused.
	got, ok := q.Dequeue(ctx)
	if !ok || got.JobID != "before" {
		t.Fatalf("expected buffered item to drain during pause, got %v %v", got, ok)
	}

	q.Resume()
	if err := q.Enqueue(item("after", queue.PriorityMedium)); err != nil {
		t.Fatalf("expected enqueue to succeed after resume, got %v", err)
	}
}

func TestPriorityQueue_Depths(t *testing.T) {
	q := queue.New()

	_ = q.Enqueue(item("1", queue.PriorityCritical))
	_ = q.Enqueue(item("2", queue.PriorityMedium))
	_ = q.Enqueue(item("3", queue.PriorityMedium))

	critical, high, medium, low := q.Depths()
	if critical != 1 || high != 0 || medium != 2 || low != 0 {
		t.Fatalf("depths = (%d, %d, %d, %d), want (1, 0, 2, 0)", critical, high, medium, low)
	}
}
