// internal/worker/pool.go
//
// Bounded pool for background persistence writes (score submission, daily
// completion marks). Gameplay hands work to the pool and moves on; failures
// are logged as PersistenceError and never reach the player, because the
// in-memory session state is authoritative.
//
// Shutdown: Close stops intake, then lets workers drain what is already
// queued so a final score submitted just before shutdown is not lost.

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is a unit of work submitted to the Pool.
type Job func(ctx context.Context) error

// DefaultJobTimeout bounds a single job when the pool is built with zero.
const DefaultJobTimeout = 10 * time.Second

// Pool runs jobs on a fixed number of goroutines.
type Pool struct {
	jobs       chan Job
	quit       chan struct{}
	wg         sync.WaitGroup
	workers    int
	jobTimeout time.Duration

	mu        sync.RWMutex // held for read by senders, for write by Close
	closed    bool
	closeOnce sync.Once
}

// New creates a pool with the given number of workers and queue capacity.
func New(workers, queue int, jobTimeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	return &Pool{
		jobs:       make(chan Job, queue),
		quit:       make(chan struct{}),
		workers:    workers,
		jobTimeout: jobTimeout,
	}
}

// Start launches the workers. They exit when ctx is done or after Close once
// the queue is drained.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					p.exec(ctx, job)
				}
			}
		}()
	}
}

func (p *Pool) exec(ctx context.Context, job Job) {
	jctx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()
	_ = job(jctx)
}

// Submit enqueues a job, blocking while the queue is full. It returns
// ErrPoolClosed once Close has been called.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	}
}

// Run submits a named persistence job. Errors, including a closed pool, are
// logged and swallowed.
func (p *Pool) Run(op string, job Job) {
	err := p.Submit(func(ctx context.Context) error {
		if err := job(ctx); err != nil {
			perr := &PersistenceError{Op: op, Err: err}
			log.Warn().Err(perr).Str("op", op).Msg("persistence failed")
			return perr
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("op", op).Msg("persistence job dropped")
	}
}

// Close stops accepting jobs and waits for workers to finish queued work.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// ErrPoolClosed is returned if a Submit is attempted after Close.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError provides a simple typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }

// PersistenceError wraps a failed remote write. Local state stays authoritative.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence %s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }
