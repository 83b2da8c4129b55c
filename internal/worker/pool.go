package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"imgedit-backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var ErrPoolClosed = errors.New("worker pool closed")

const DefaultPoolSize = 8

type task struct {
	ctx context.Context
	run func(ctx context.Context)
}

// Pool runs jobs on a fixed number of goroutines. A job that has been handed
// to a worker always runs to completion; callers that stop waiting only lose
// the result.
type Pool struct {
	jobs    chan task
	quit    chan struct{}
	group   errgroup.Group
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

type Option func(*Pool)

// WithJobTimeout bounds each job's context. Zero disables the limit.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.timeout = d
	}
}

// WithQueueSize lets up to n jobs wait for a free worker without blocking
// the submitter.
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.jobs = make(chan task, n)
		}
	}
}

func NewPool(size int, opts ...Option) *Pool {
	if size < 1 {
		size = DefaultPoolSize
	}
	p := &Pool{
		jobs: make(chan task),
		quit: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < size; i++ {
		p.group.Go(func() error {
			for t := range p.jobs {
				p.execute(t)
			}
			return nil
		})
	}
	logger.Infof("worker pool started with %d workers", size)
	return p
}

func (p *Pool) execute(t task) {
	ctx := t.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	t.run(ctx)
}

// submit blocks until a worker (or the queue) accepts run, ctx ends, or the
// pool shuts down. The job's context keeps ctx's values but not its
// cancellation.
func (p *Pool) submit(ctx context.Context, run func(ctx context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- task{ctx: context.WithoutCancel(ctx), run: run}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrPoolClosed
	}
}

type outcome[T any] struct {
	value T
	err   error
}

// Do runs fn on the pool and waits for its result. If ctx ends first Do
// returns ctx.Err(); a job already running is left to finish and its result
// is dropped.
func Do[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	done := make(chan outcome[T], 1)

	err := p.submit(ctx, func(jobCtx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("worker job panicked: %v", r)
				done <- outcome[T]{err: fmt.Errorf("job panicked: %v", r)}
			}
		}()
		v, err := fn(jobCtx)
		done <- outcome[T]{value: v, err: err}
	})
	if err != nil {
		return zero, err
	}

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops accepting jobs, lets queued and running jobs finish, and waits
// for the workers to exit.
func (p *Pool) Close() error {
	p.once.Do(func() {
		close(p.quit)
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
	})
	err := p.group.Wait()
	logger.Info("worker pool stopped")
	return err
}
