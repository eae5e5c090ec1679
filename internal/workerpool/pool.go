// Package workerpool runs blocking provider calls on a bounded set of goroutines and
// hands back futures, so adapters can offer a non-blocking entry point with the same
// result as their blocking one.
package workerpool

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool is a bounded worker pool. Submit never blocks the caller; work waits for a free
// slot when the pool is saturated.
type Pool struct {
	g       errgroup.Group
	pending sync.WaitGroup
}

// New returns a Pool running at most limit tasks at once. limit <= 0 means unbounded.
func New(limit int) *Pool {
	p := &Pool{}
	if limit > 0 {
		p.g.SetLimit(limit)
	}
	return p
}

// DefaultLimit mirrors the usual thread-pool default: min(32, NumCPU+4).
func DefaultLimit() int {
	return min(32, runtime.NumCPU()+4)
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// Default returns the process-wide pool shared by adapters that are not given one.
func Default() *Pool {
	defaultPoolOnce.Do(func() { defaultPool = New(DefaultLimit()) })
	return defaultPool
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.pending.Wait()
	_ = p.g.Wait()
}

// Future is the pending result of a submitted task.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await returns the task result, or ctx.Err() if ctx ends first. The task itself keeps
// running to completion either way.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit schedules fn on p and returns its Future. fn receives a context that carries
// ctx's values but is never cancelled: once dispatched, a call runs to completion.
func Submit[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) *Future[T] {
	if p == nil {
		p = Default()
	}
	f := &Future[T]{done: make(chan struct{})}
	callCtx := context.WithoutCancel(ctx)
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		p.g.Go(func() error {
			defer close(f.done)
			f.val, f.err = fn(callCtx)
			return nil
		})
	}()
	return f
}

// Run submits fn and awaits it. It is the blocking counterpart of Submit.
func Run[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	return Submit(ctx, p, fn).Await(ctx)
}
