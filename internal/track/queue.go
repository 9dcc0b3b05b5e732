// Package track runs best-effort post-processing for tracking events on a
// bounded worker pool, so beacon handlers can return immediately without
// leaving unowned goroutines behind.
package track

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Queue bounds in-flight background tasks. When the pool is saturated or
// closing, Submit drops the task with a log line instead of blocking the
// request path.
type Queue struct {
	sem     *semaphore.Weighted
	log     *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func NewQueue(limit int64, taskTimeout time.Duration, log *zap.Logger) *Queue {
	if limit <= 0 {
		limit = 64
	}
	if taskTimeout <= 0 {
		taskTimeout = 5 * time.Second
	}
	return &Queue{
		sem:     semaphore.NewWeighted(limit),
		log:     log,
		timeout: taskTimeout,
	}
}

// Submit schedules fn on the pool. Returns false if the task was dropped.
// Task errors are logged, never propagated: counters and session touches
// are derived state, the raw event write is the durability boundary.
func (q *Queue) Submit(name string, fn func(ctx context.Context) error) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.log.Warn("track queue closed, dropping task", zap.String("task", name))
		return false
	}
	if !q.sem.TryAcquire(1) {
		q.mu.Unlock()
		q.log.Warn("track queue saturated, dropping task", zap.String("task", name))
		return false
	}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		defer q.sem.Release(1)

		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			q.log.Error("track task failed", zap.String("task", name), zap.Error(err))
		}
	}()

	return true
}

// Close stops accepting tasks and waits for in-flight ones to finish, up to
// the context deadline.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
