package preview

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Do after Close.
var ErrPoolClosed = errors.New("worker pool closed")

type job struct {
	fn   func() error
	done chan error
}

// WorkerPool is a small fixed-size pool that blocking warehouse calls are
// dispatched to, keeping them off the request handler goroutines. The pool
// size deliberately caps concurrent load on the remote warehouse.
type WorkerPool struct {
	jobs chan job

	// mu makes submission and shutdown mutually exclusive: Do holds the
	// read side across the channel send so Close never closes jobs while
	// a submitter is active or parked on a full queue.
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewWorkerPool starts workers goroutines servicing a bounded queue.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = 2
	}
	p := &WorkerPool{
		jobs: make(chan job, workers*2),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.done <- j.fn()
	}
}

// Do submits fn to the pool and waits for its result or for ctx to end. If
// ctx ends first, the caller stops waiting but fn still runs to completion
// on its worker; at this pool size the briefly occupied slot is an accepted
// limitation rather than an engineered-away case.
func (p *WorkerPool) Do(ctx context.Context, fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	select {
	case p.jobs <- j:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for the workers to drain.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
