// File: internal/infra/worker/queue.go
package worker

import (
	"errors"
	"time"

	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/infra/metrics"
)

// ErrQueueFull is returned when the in-memory job buffer is saturated.
var ErrQueueFull = errors.New("evaluation queue full")

// Queue is a bounded in-memory FIFO of evaluation jobs. Producers (answer
// intake, auto-advance) enqueue; the evaluator workers drain. Jobs are
// transient: a process restart loses whatever was buffered, and unevaluated
// answers stay visible as pending in results.
type Queue struct {
	jobs chan *model.EvaluationJob
	done chan struct{}
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{
		jobs: make(chan *model.EvaluationJob, size),
		done: make(chan struct{}),
	}
}

// Enqueue adds a job without blocking. Returns ErrQueueFull when saturated so
// the caller can decide between failing the request and degrading.
func (q *Queue) Enqueue(job *model.EvaluationJob) error {
	if job == nil {
		return errors.New("nil evaluation job")
	}
	select {
	case q.jobs <- job:
		metrics.SetEvaluationQueueDepth(len(q.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

// EnqueueAfter re-enqueues a job after the given delay. The timer goroutine
// blocks until there is room, so a delayed retry is never silently dropped.
func (q *Queue) EnqueueAfter(job *model.EvaluationJob, delay time.Duration) {
	time.AfterFunc(delay, func() {
		select {
		case q.jobs <- job:
			metrics.SetEvaluationQueueDepth(len(q.jobs))
		case <-q.done:
		}
	})
}

// Jobs exposes the receive side for the evaluator workers.
func (q *Queue) Jobs() <-chan *model.EvaluationJob { return q.jobs }

func (q *Queue) Len() int { return len(q.jobs) }

// Close releases any pending delayed re-enqueues. Buffered jobs are not
// drained; shutdown abandons them.
func (q *Queue) Close() { close(q.done) }
