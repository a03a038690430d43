package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/queue"
	"github.com/lexops/notify/internal/repository"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the pool constructor signature clean.
type MetricHooks struct {
	OnProcessed func(urgency domain.Urgency, latency time.Duration)
}

// Pool manages the lifecycle of all workers.
// All workers share the same priority queue — the queue's cascading
// select handles priority ordering internally.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates size identical workers. Channel distinctions are
// handled inside the processor's fan-out, not by worker specialization.
func NewPool(
	size int,
	q *queue.PriorityQueue,
	jobs repository.JobRepository,
	processor Processor,
	backoff []time.Duration,
	jobTimeout time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	workers := make([]*Worker, size)
	for i := range workers {
		workers[i] = NewWorker(
			i, q, jobs, processor,
			backoff, jobTimeout,
			logger.With(zap.Int("worker_id", i)),
			hooks.OnProcessed,
		)
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// The provided ctx is forwarded to every worker; cancelling it
// triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
// Call this after cancelling the context to ensure in-flight jobs finish.
func (p *Pool) Wait() {
	p.wg.Wait()
}
