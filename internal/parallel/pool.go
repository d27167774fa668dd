// Package parallel provides the task runtime used for distance-field work.
//
// WorkerPool is a small work-stealing pool: each worker owns a queue and
// steals from its siblings when idle. Gather collects exactly one outcome per
// spawned task and is the only way results travel back to the owner of the
// atlas.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a pool of goroutines for CPU-bound tasks.
//
// Every submitted task runs to completion: work that arrives after Close is
// executed on the submitting goroutine instead of being dropped.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	workQueues []chan func()

	// done signals workers to stop.
	done chan struct{}
	wg   sync.WaitGroup

	// mu orders Submit against Close so no work is queued after the
	// workers have drained.
	mu      sync.RWMutex
	running atomic.Bool

	// next is the round-robin cursor used by Submit.
	next atomic.Uint32

	submitted atomic.Uint64
	inline    atomic.Uint64
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drainQueue(own)
			return
		case work := <-own:
			run(work)
		default:
			if stolen := p.steal(id); stolen != nil {
				run(stolen)
				continue
			}
			select {
			case <-p.done:
				p.drainQueue(own)
				return
			case work := <-own:
				run(work)
			}
		}
	}
}

func run(work func()) {
	if work != nil {
		work()
	}
}

// drainQueue executes all remaining work in a queue.
func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			run(work)
		default:
			return
		}
	}
}

// steal attempts to take work from another worker's queue.
func (p *WorkerPool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// Submit schedules fn on the pool. It may block while every queue is full.
func (p *WorkerPool) Submit(fn func()) {
	if fn == nil {
		return
	}
	p.submitted.Add(1)

	p.mu.RLock()
	if !p.running.Load() {
		p.mu.RUnlock()
		p.inline.Add(1)
		fn()
		return
	}
	id := int(p.next.Add(1)-1) % p.workers
	p.workQueues[id] <- fn
	p.mu.RUnlock()
}

// ExecuteAll runs every item on the pool and waits for all of them.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(work))
	for _, fn := range work {
		p.Submit(func() {
			defer wg.Done()
			run(fn)
		})
	}
	wg.Wait()
}

// Close stops the workers after the queued work has run.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// PoolStats reports how work has been scheduled.
type PoolStats struct {
	Submitted uint64
	Inline    uint64
	Queued    int
}

// Stats returns a snapshot of the pool counters. Queued is approximate.
func (p *WorkerPool) Stats() PoolStats {
	queued := 0
	for _, q := range p.workQueues {
		queued += len(q)
	}
	return PoolStats{
		Submitted: p.submitted.Load(),
		Inline:    p.inline.Load(),
		Queued:    queued,
	}
}
