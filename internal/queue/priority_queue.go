package queue

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lexops/notify/internal/domain"
)

// Numeric priority tiers. Lower is more urgent; the policy table is the
// single place that maps urgencies onto these.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
)

// PriorityQueue dispatches items to one of four buffered channels based on
// priority.
//
// Buffer sizes reflect expected traffic ratios:
//
//	Critical: 1 000  — must never accumulate; small buffer applies back-pressure quickly
//	High:     2 000  — deadline and payment traffic
//	Medium:   5 000  — bulk of traffic
//	Low:      2 000  — informational / best-effort
//
// Workers dequeue via a cascading select, which guarantees that critical
// items are always served before high, and high before medium or low,
// while still allowing fair competition between medium and low when the
// urgent tiers are empty.
type PriorityQueue struct {
	critical chan Item
	high     chan Item
	medium   chan Item
	low      chan Item

	paused atomic.Bool
}

func New() *PriorityQueue {
	return &PriorityQueue{
		critical: make(chan Item, 1000),
		high:     make(chan Item, 2000),
		medium:   make(chan Item, 5000),
		low:      make(chan Item, 2000),
	}
}

// Enqueue places an item on the appropriate priority channel.
// It is non-blocking: if the target channel is full, ErrQueueFull is
// returned immediately rather than blocking the caller, and if the queue
// is paused every tier rejects with ErrQueuePaused.
func (q *PriorityQueue) Enqueue(item Item) error {
	if q.paused.Load() {
		return domain.ErrQueuePaused
	}
	ch, err := q.tier(item.Priority)
	if err != nil {
		return err
	}
	select {
	case ch <- item:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until an item is available or ctx is cancelled.
//
// Priority guarantee — the cascading select:
//  1. A non-blocking select checks critical first, then high. An item
//     waiting in a more urgent tier is returned immediately regardless
//     of the tiers below it.
//  2. Only when both urgent tiers are empty does the goroutine enter a
//     fair blocking select across all four channels plus the done signal.
//     This prevents priority starvation while still letting the worker
//     sleep instead of spinning.
//
// Returns (Item{}, false) when ctx is cancelled (graceful shutdown signal).
func (q *PriorityQueue) Dequeue(ctx context.Context) (Item, bool) {
	// Step 1: drain the urgent tiers before entering a fair wait.
	select {
	case item := <-q.critical:
		return item, true
	default:
	}
	select {
	case item := <-q.high:
		return item, true
	default:
	}

	// Step 2: fair competition when critical and high are empty.
	select {
	case item := <-q.critical:
		return item, true
	case item := <-q.high:
		return item, true
	case item := <-q.medium:
		return item, true
	case item := <-q.low:
		return item, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Pause makes every subsequent Enqueue fail with ErrQueuePaused.
// Items already buffered keep draining; Pause only stops intake.
func (q *PriorityQueue) Pause() { q.paused.Store(true) }

// Resume re-opens intake after a Pause.
func (q *PriorityQueue) Resume() { q.paused.Store(false) }

// Paused reports whether intake is currently rejected.
func (q *PriorityQueue) Paused() bool { return q.paused.Load() }

// Depths returns the current number of items waiting in each priority tier.
// Used by the metrics handler for the queue-depth snapshot.
func (q *PriorityQueue) Depths() (critical, high, medium, low int) {
	return len(q.critical), len(q.high), len(q.medium), len(q.low)
}

func (q *PriorityQueue) tier(priority int) (chan Item, error) {
	switch priority {
	case PriorityCritical:
		return q.critical, nil
	case PriorityHigh:
		return q.high, nil
	case PriorityMedium:
		return q.medium, nil
	case PriorityLow:
		return q.low, nil
	default:
		return nil, fmt.Errorf("unknown priority %d", priority)
	}
}
