package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/joseph-ayodele/pallet-tracker/internal/common"
)

// ProcessorQueue buffers jobs and runs them on an ants pool. Each job is one
// ingestion run; runs execute concurrently with each other, never within.
type ProcessorQueue struct {
	proc       Processor
	logger     *slog.Logger
	workers    int
	timeout    time.Duration
	onComplete func(Result)

	pool     *ants.Pool
	ch       chan Job
	done     chan struct{}
	senders  sync.WaitGroup
	dispatch sync.WaitGroup
	inflight sync.WaitGroup
	once     sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithRunTimeout bounds each run. Pages already started still finish; the
// remaining pages are skipped.
func WithRunTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithOnComplete(fn func(Result)) Option {
	return func(q *ProcessorQueue) {
		q.onComplete = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(q *ProcessorQueue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// NewProcessorQueue starts the dispatcher; call Shutdown to stop it.
func NewProcessorQueue(proc Processor, opts ...Option) (*ProcessorQueue, error) {
	q := &ProcessorQueue{
		proc:    proc,
		logger:  slog.Default(),
		workers: 2,
		timeout: 30 * time.Minute,
		ch:      make(chan Job, 64),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}

	pool, err := ants.NewPool(q.workers, ants.WithPanicHandler(func(p any) {
		q.logger.Error("ingestion worker panicked", "panic", p)
	}))
	if err != nil {
		q.logger.Error("failed to create worker pool", "workers", q.workers, "error", err)
		return nil, err
	}
	q.pool = pool
	q.start()
	return q, nil
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		q.dispatch.Add(1)
		go func() {
			defer q.dispatch.Done()
			q.logger.Info("ingestion queue started", "workers", q.workers, "queue_size", cap(q.ch))

			for job := range q.ch {
				q.inflight.Add(1)
				if err := q.pool.Submit(func() {
					defer q.inflight.Done()
					q.process(job)
				}); err != nil {
					q.inflight.Done()
					q.logger.Error("failed to submit job", "job_id", job.ID, "path", job.Path, "error", err)
					q.complete(Result{Job: job, Err: err})
				}
			}
		}()
	})
}

func (q *ProcessorQueue) process(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
	}

	start := time.Now()
	run, err := q.proc.IngestPath(ctx, job.Path, job.DocumentName)
	res := Result{Job: job, Run: run, Err: err, Duration: time.Since(start)}

	if err != nil {
		q.logger.Error("ingestion failed", "job_id", job.ID, "path", job.Path, "error", err)
	} else {
		q.logger.Info("ingestion finished", "job_id", job.ID, "path", job.Path, "run_id", run.ID,
			"status", run.Status, "inserted", run.Inserted(), "failures", len(run.Failures),
			"waited", start.Sub(job.SubmittedAt), "took", res.Duration)
	}
	q.complete(res)
}

func (q *ProcessorQueue) complete(res Result) {
	if q.onComplete != nil {
		q.onComplete(res)
	}
}

// Enqueue blocks while the buffer is full, until ctx is done or Shutdown starts.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	// ch stays open until every registered sender has returned
	q.senders.Add(1)
	q.mu.RUnlock()
	defer q.senders.Done()

	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for ingestion", "job_id", job.ID, "path", job.Path)
		return nil
	default:
	}

	q.logger.Warn("queue full, applying backpressure", "job_id", job.ID, "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
}

// Shutdown stops accepting jobs and waits for queued and running jobs, or ctx.
// Producers blocked on a full buffer return ErrQueueClosed.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		q.senders.Wait()
		close(q.ch)
		q.dispatch.Wait()
		q.inflight.Wait()
		q.pool.Release()
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-drained:
		q.logger.Info("queue drained, shutdown complete")
	}
}
