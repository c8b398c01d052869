package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize is the default number of concurrent background tasks.
const DefaultPoolSize = 4

// TaskPool runs fire-and-forget tasks with bounded concurrency. When every slot
// is taken a new task is dropped rather than queued.
type TaskPool struct {
	sem    *semaphore.Weighted
	size   int64
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed  atomic.Bool
	started atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewTaskPool creates a pool running at most size tasks at once.
func NewTaskPool(size int) *TaskPool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskPool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   int64(size),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go starts fn in the background and reports whether it was accepted.
// Errors and panics from fn are logged under name and never propagate.
func (p *TaskPool) Go(name string, fn func(ctx context.Context) error) bool {
	if p.closed.Load() || !p.sem.TryAcquire(1) {
		p.dropped.Add(1)
		log.Printf("pool: dropped task %s", name)
		return false
	}

	p.started.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)

		if err := p.run(fn); err != nil {
			p.failed.Add(1)
			log.Printf("pool: task %s failed: %v", name, err)
		}
	}()
	return true
}

func (p *TaskPool) run(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(p.ctx)
}

// Shutdown stops accepting tasks and waits for running ones until ctx is done,
// at which point the tasks' context is cancelled and ctx.Err is returned.
func (p *TaskPool) Shutdown(ctx context.Context) error {
	p.closed.Store(true)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

// PoolStats is a point-in-time view of TaskPool counters.
type PoolStats struct {
	Size    int64  `json:"size"`
	Started uint64 `json:"started"`
	Dropped uint64 `json:"dropped"`
	Failed  uint64 `json:"failed"`
}

// Stats returns the pool counters.
func (p *TaskPool) Stats() PoolStats {
	return PoolStats{
		Size:    p.size,
		Started: p.started.Load(),
		Dropped: p.dropped.Load(),
		Failed:  p.failed.Load(),
	}
}
