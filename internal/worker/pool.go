package worker

import (
	"context"
	"sync"
)

// Task produces one result. It should return promptly once ctx is done.
type Task[T any] func(ctx context.Context) T

// Pool runs tasks on at most a fixed number of goroutines.
// Every submitted task owns one result slot, so Wait returns results in
// submission order without sorting.
type Pool[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	slots  chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	results []T
}

// NewPool creates a pool bound to ctx; cancelling ctx is seen by every task
func NewPool[T any](ctx context.Context, workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool[T]{
		ctx:    ctx,
		cancel: cancel,
		slots:  make(chan struct{}, workers),
	}
}

// Workers returns the concurrency bound
func (p *Pool[T]) Workers() int {
	return cap(p.slots)
}

// Go reserves a result slot and runs task once a worker is free.
// It blocks while all workers are busy. Go must not be called after Wait.
func (p *Pool[T]) Go(task Task[T]) {
	p.mu.Lock()
	idx := len(p.results)
	var zero T
	p.results = append(p.results, zero)
	p.mu.Unlock()

	p.slots <- struct{}{}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.slots }()

		out := task(p.ctx)

		p.mu.Lock()
		p.results[idx] = out
		p.mu.Unlock()
	}()
}

// Wait blocks until every task has finished and returns the results in submission order
func (p *Pool[T]) Wait() []T {
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]T, len(p.results))
	copy(out, p.results)
	return out
}

// Shutdown cancels running tasks and waits for them to return
func (p *Pool[T]) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
