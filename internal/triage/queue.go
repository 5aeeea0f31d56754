// internal/triage/queue.go
package triage

import (
	"context"
	"sync"

	"github.com/Corphon/Diplomat/internal/models"
	"github.com/Corphon/Diplomat/internal/utils"
)

// MaxConcurrency is the default number of analyses allowed in flight.
const MaxConcurrency = 2

// WorkQueue is an unbounded FIFO of comment ids with a ceiling on concurrently running work.
// Each dequeued id runs on its own goroutine; a finishing run claims the next free slot, so the
// queue drains without an external driver.
type WorkQueue struct {
	mu     sync.Mutex
	items  []models.CommentID
	active int
	limit  int
	idle   chan struct{} // closed while nothing runs and nothing is queued

	run     func(models.CommentID)
	metrics *utils.MetricsCollector
}

// NewWorkQueue creates a queue running at most limit calls of run at once.
func NewWorkQueue(limit int, run func(models.CommentID), metrics *utils.MetricsCollector) *WorkQueue {
	if limit <= 0 {
		limit = MaxConcurrency
	}
	if metrics == nil {
		metrics = utils.GetMetricsCollector()
	}
	idle := make(chan struct{})
	close(idle)
	return &WorkQueue{
		limit:   limit,
		idle:    idle,
		run:     run,
		metrics: metrics,
	}
}

// Enqueue appends id and starts work if a slot is free.
func (q *WorkQueue) Enqueue(id models.CommentID) {
	q.mu.Lock()
	q.items = append(q.items, id)
	q.updateIdleLocked()
	q.mu.Unlock()

	q.TryDequeueAndRun()
}

// TryDequeueAndRun starts queued work, oldest first, until the queue is empty or every slot is
// taken. It returns how many runs were started.
func (q *WorkQueue) TryDequeueAndRun() int {
	q.mu.Lock()
	claimed := q.claimLocked()
	q.mu.Unlock()

	for _, id := range claimed {
		go q.runOne(id)
	}
	return len(claimed)
}

func (q *WorkQueue) runOne(id models.CommentID) {
	defer q.finish()
	q.run(id)
}

func (q *WorkQueue) finish() {
	q.mu.Lock()
	q.active--
	claimed := q.claimLocked()
	q.mu.Unlock()

	for _, id := range claimed {
		go q.runOne(id)
	}
}

// claimLocked moves ids from the queue into running slots. Caller holds q.mu.
func (q *WorkQueue) claimLocked() []models.CommentID {
	var claimed []models.CommentID
	for q.active < q.limit && len(q.items) > 0 {
		id := q.items[0]
		q.items[0] = ""
		q.items = q.items[1:]
		q.active++
		claimed = append(claimed, id)
	}
	q.metrics.SetGauge("triage_in_flight", int64(q.active))
	q.metrics.SetGauge("triage_queue_depth", int64(len(q.items)))
	q.updateIdleLocked()
	return claimed
}

func (q *WorkQueue) updateIdleLocked() {
	isIdle := q.active == 0 && len(q.items) == 0
	select {
	case <-q.idle:
		if !isIdle {
			q.idle = make(chan struct{})
		}
	default:
		if isIdle {
			close(q.idle)
		}
	}
}

// ActiveCount returns the number of runs in flight.
func (q *WorkQueue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Len returns the number of ids waiting for a slot.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Wait blocks until the queue is drained and nothing is running, or ctx ends.
func (q *WorkQueue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
