package pool

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 10

// Pool is a fixed-size set of workers draining one shared, unbounded FIFO queue.
// Every queued task is handed to exactly one worker exactly once.
//
// AddTask never blocks and never drops work; there is no backpressure, so the queue
// grows without bound if producers outpace the workers.
//
// Workers are supervised: a panic escaping the task callback is logged and counted,
// and the worker carries on with the next task, so capacity never shrinks.
type Pool[T any] struct {
	fn      func(T)
	workers int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []T
	stopped bool
	started bool

	wg        sync.WaitGroup
	processed atomic.Int64
	panics    atomic.Int64
}

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	Workers   int   `json:"workers"`
	Pending   int   `json:"pending"`
	Processed int64 `json:"processed"`
	Panics    int64 `json:"panics"`
}

// New creates a pool that runs fn for every task.
// A non-positive worker count falls back to DefaultWorkers.
func New[T any](fn func(T), workers int) *Pool[T] {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	p := &Pool[T]{
		fn:      fn,
		workers: workers,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches the workers. They run until ctx is cancelled; a worker in the middle
// of a task finishes it first. Tasks still queued at cancellation are not run.
// Calling Start more than once has no effect.
func (p *Pool[T]) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for n := 0; n < p.workers; n++ {
		p.wg.Add(1)
		go p.work(n)
	}

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		p.cond.Broadcast()
	}()
}

// AddTask appends a task to the queue and wakes one idle worker.
func (p *Pool[T]) AddTask(task T) {
	p.mu.Lock()
	p.queue = append(p.queue, task)
	p.mu.Unlock()
	p.cond.Signal()
}

// Wait blocks until every worker has exited after cancellation.
func (p *Pool[T]) Wait() {
	p.wg.Wait()
}

// Pending returns the number of queued tasks no worker has picked up yet.
func (p *Pool[T]) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Pending:   p.Pending(),
		Processed: p.processed.Load(),
		Panics:    p.panics.Load(),
	}
}

func (p *Pool[T]) work(n int) {
	defer p.wg.Done()
	log.Printf("[DEBUG] Worker %d started", n)

	for {
		task, ok := p.next()
		if !ok {
			log.Printf("[DEBUG] Worker %d exited cleanly", n)
			return
		}
		p.run(n, task)
	}
}

// next blocks until a task is available or the pool is stopped.
func (p *Pool[T]) next() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.stopped {
		p.cond.Wait()
	}

	var zero T
	if p.stopped {
		return zero, false
	}

	task := p.queue[0]
	p.queue[0] = zero
	p.queue = p.queue[1:]
	return task, true
}

func (p *Pool[T]) run(n int, task T) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			log.Printf("[ERROR] Worker %d recovered from panic: %v\n%s", n, r, debug.Stack())
		}
		p.processed.Add(1)
	}()

	p.fn(task)
}
