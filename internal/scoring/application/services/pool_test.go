package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	mu   sync.Mutex
	seen []uuid.UUID
}

func (h *countingHandler) Process(_ context.Context, job TaskJob) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, job.TaskID)
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func TestTaskPool(t *testing.T) {
	t.Run("processes every enqueued job", func(t *testing.T) {
		handler := &countingHandler{}
		pool := NewTaskPool(handler, testLogger(), WithWorkers(2), WithQueueSize(8))

		for i := 0; i < 5; i++ {
			require.NoError(t, pool.Enqueue(context.Background(), TaskJob{TaskID: uuid.New()}))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		pool.Shutdown(ctx)

		assert.Equal(t, 5, handler.count())
	})

	t.Run("enqueue after shutdown is a no-op", func(t *testing.T) {
		handler := &countingHandler{}
		pool := NewTaskPool(handler, testLogger(), WithWorkers(1))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		pool.Shutdown(ctx)

		require.NoError(t, pool.Enqueue(context.Background(), TaskJob{TaskID: uuid.New()}))
		assert.Equal(t, 0, handler.count())
	})

	t.Run("submitters blocked on a full queue drain through shutdown", func(t *testing.T) {
		processed := &countingHandler{}
		handler := handlerFunc(func(ctx context.Context, job TaskJob) {
			time.Sleep(10 * time.Millisecond)
			processed.Process(ctx, job)
		})
		pool := NewTaskPool(handler, testLogger(), WithWorkers(1), WithQueueSize(1))

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				require.NoError(t, pool.Enqueue(context.Background(), TaskJob{TaskID: uuid.New()}))
			}()
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			pool.Shutdown(ctx)
			close(done)
		}()

		select {
		case <-done:
			assert.Equal(t, 5, processed.count(), "every blocked submitter's job must land")
		case <-time.After(5 * time.Second):
			t.Fatal("pool deadlocked with submitters blocked on a full queue")
		}
	})

	t.Run("shutdown is idempotent", func(t *testing.T) {
		pool := NewTaskPool(&countingHandler{}, testLogger(), WithWorkers(1))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		pool.Shutdown(ctx)
		pool.Shutdown(ctx)
	})

	t.Run("handler context carries the job timeout", func(t *testing.T) {
		deadlines := make(chan bool, 1)
		handler := handlerFunc(func(ctx context.Context, _ TaskJob) {
			_, ok := ctx.Deadline()
			deadlines <- ok
		})
		pool := NewTaskPool(handler, testLogger(), WithWorkers(1), WithJobTimeout(time.Minute))

		require.NoError(t, pool.Enqueue(context.Background(), TaskJob{TaskID: uuid.New()}))

		select {
		case ok := <-deadlines:
			assert.True(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("job was never processed")
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		pool.Shutdown(ctx)
	})
}

type handlerFunc func(ctx context.Context, job TaskJob)

func (f handlerFunc) Process(ctx context.Context, job TaskJob) { f(ctx, job) }
