package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskJob carries one queued score task plus the upload payload. File bytes
// ride along in memory only; persisted task state holds metadata alone.
type TaskJob struct {
	TaskID  uuid.UUID
	OwnerID uuid.UUID
	Request Request

	FileName    string
	ContentType string
	Data        []byte
}

// JobHandler processes one queued task end to end.
type JobHandler interface {
	Process(ctx context.Context, job TaskJob)
}

// TaskPool runs queued score tasks on a fixed set of workers. Jobs survive
// in the task store, not the channel; a restart re-enqueues nothing, which
// leaves interrupted tasks PROCESSING until an operator intervenes.
type TaskPool struct {
	handler JobHandler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan TaskJob
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// PoolOption configures a TaskPool.
type PoolOption func(*TaskPool)

// WithWorkers sets the worker count.
func WithWorkers(n int) PoolOption {
	return func(p *TaskPool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithQueueSize sets the pending-job buffer size.
func WithQueueSize(n int) PoolOption {
	return func(p *TaskPool) {
		if n > 0 {
			p.ch = make(chan TaskJob, n)
		}
	}
}

// WithJobTimeout bounds how long one task may process.
func WithJobTimeout(d time.Duration) PoolOption {
	return func(p *TaskPool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewTaskPool creates and starts the pool.
func NewTaskPool(handler JobHandler, logger *slog.Logger, opts ...PoolOption) *TaskPool {
	p := &TaskPool{
		handler: handler,
		logger:  logger,
		workers: 3,
		timeout: 2 * time.Minute,
		ch:      make(chan TaskJob, 64),
	}
	for _, o := range opts {
		o(p)
	}
	p.start()
	return p
}

func (p *TaskPool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.logger.Info("score worker started", slog.Int("worker_id", workerID))

				for job := range p.ch {
					ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
					p.handler.Process(ctx, job)
					cancel()
				}

				p.logger.Info("score worker stopped", slog.Int("worker_id", workerID))
			}(i + 1)
		}
	})
}

// Enqueue hands a job to the pool. When the buffer is full the caller
// blocks, which applies backpressure to the submit endpoint. The blocking
// send happens outside the mutex so a full queue stalls only its own
// submitter, never other callers or Shutdown.
func (p *TaskPool) Enqueue(_ context.Context, job TaskJob) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("cannot enqueue: pool is shutting down", slog.String("task_id", job.TaskID.String()))
		return nil
	}
	p.pending.Add(1)
	p.mu.Unlock()
	defer p.pending.Done()

	select {
	case p.ch <- job:
	default:
		p.logger.Warn("queue full, applying backpressure", slog.String("task_id", job.TaskID.String()))
		p.ch <- job
	}
	p.logger.Info("task queued for scoring", slog.String("task_id", job.TaskID.String()))
	return nil
}

// Shutdown stops intake and waits for in-flight tasks until ctx expires.
// Intake closes first, then pending sends drain before the channel closes,
// so no send can hit a closed channel.
func (p *TaskPool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.pending.Wait()
	close(p.ch)

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("pool shutdown interrupted by context")
	case <-done:
		p.logger.Info("pool drained, shutdown complete")
	}
}
