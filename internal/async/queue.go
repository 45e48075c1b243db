// Package async drives job advancement in the background. Enqueue hands a
// job id to a worker pool; each worker re-invokes the orchestrator until
// the job reaches a terminal state.
package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/docsum/docsum/constants"
)

// Job is one unit of background work: a job id to drive to completion.
type Job struct {
	JobID       uuid.UUID
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Advancer is the orchestrator seam the queue drives.
type Advancer interface {
	Advance(ctx context.Context, jobID uuid.UUID) (constants.JobState, error)
}

// maxDrives caps advance invocations per enqueued job so a wedged job can
// never pin a worker forever.
const maxDrives = 32

type AdvanceQueue struct {
	adv        Advancer
	logger     *slog.Logger
	workers    int
	timeout    time.Duration
	backoff    time.Duration
	onTerminal func(ctx context.Context, jobID uuid.UUID, state constants.JobState)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*AdvanceQueue)

func WithWorkers(n int) Option {
	return func(q *AdvanceQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *AdvanceQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithAdvanceTimeout(d time.Duration) Option {
	return func(q *AdvanceQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithRetryBackoff(d time.Duration) Option {
	return func(q *AdvanceQueue) {
		if d > 0 {
			q.backoff = d
		}
	}
}

// WithTerminalHook installs a callback invoked once per job when it
// reaches SUCCEEDED or FAILED.
func WithTerminalHook(fn func(ctx context.Context, jobID uuid.UUID, state constants.JobState)) Option {
	return func(q *AdvanceQueue) { q.onTerminal = fn }
}

func NewAdvanceQueue(adv Advancer, logger *slog.Logger, opts ...Option) *AdvanceQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &AdvanceQueue{
		adv:     adv,
		logger:  logger,
		workers: 4,
		timeout: 5 * time.Minute,
		backoff: 2 * time.Second,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *AdvanceQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.drive(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// drive advances one job until it is terminal. A state that did not move
// means a stage attempt failed and is awaiting retry; those get an
// exponential pause before the next advance.
func (q *AdvanceQueue) drive(workerID int, job Job) {
	var prev constants.JobState
	stalls := 0

	for i := 0; i < maxDrives; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		state, err := q.adv.Advance(ctx, job.JobID)
		cancel()

		if err != nil {
			q.logger.Error("advance failed", "worker_id", workerID, "job_id", job.JobID, "error", err)
			stalls++
			q.pause(stalls)
			continue
		}
		if state.Terminal() {
			q.logger.Info("job finished", "worker_id", workerID, "job_id", job.JobID, "state", state)
			if q.onTerminal != nil {
				nctx, ncancel := context.WithTimeout(context.Background(), 30*time.Second)
				q.onTerminal(nctx, job.JobID, state)
				ncancel()
			}
			return
		}

		if state == prev {
			stalls++
			q.pause(stalls)
		} else {
			stalls = 0
		}
		prev = state
	}
	q.logger.Error("job abandoned after drive cap", "worker_id", workerID, "job_id", job.JobID)
}

func (q *AdvanceQueue) pause(stalls int) {
	d := q.backoff
	for i := 1; i < stalls && d < time.Minute; i++ {
		d *= 2
	}
	if d > time.Minute {
		d = time.Minute
	}
	time.Sleep(d)
}

func (q *AdvanceQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.JobID)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued job", "job_id", job.JobID)
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", job.JobID)
		q.ch <- job
	}
	return nil
}

func (q *AdvanceQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
