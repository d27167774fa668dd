package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if got, want := pool.Workers(), runtime.GOMAXPROCS(0); got != want {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", n, got, want)
		}
		pool.Close()
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}

	pool.ExecuteAll(work)

	if got := counter.Load(); got != 100 {
		t.Errorf("counter = %d, want 100", got)
	}
}

func TestWorkerPool_Submit(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	const numTasks = 20
	done := make(chan struct{})

	for range numTasks {
		pool.Submit(func() {
			if counter.Add(1) == numTasks {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Errorf("timeout waiting for submitted work, counter = %d", counter.Load())
	}

	if s := pool.Stats(); s.Submitted != numTasks {
		t.Errorf("Stats().Submitted = %d, want %d", s.Submitted, numTasks)
	}
}

func TestWorkerPool_SubmitNil(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	pool.Submit(nil)
	if s := pool.Stats(); s.Submitted != 0 {
		t.Errorf("Stats().Submitted = %d, want 0", s.Submitted)
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(4)

	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("Pool should not be running after close")
	}
}

func TestWorkerPool_CloseDrainsQueuedWork(t *testing.T) {
	pool := NewWorkerPool(2)

	var counter atomic.Int64
	for range 50 {
		pool.Submit(func() { counter.Add(1) })
	}
	pool.Close()

	if got := counter.Load(); got != 50 {
		t.Errorf("counter = %d, want 50 after Close", got)
	}
}

func TestWorkerPool_SubmitAfterCloseRunsInline(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	var executed atomic.Bool
	pool.Submit(func() { executed.Store(true) })

	if !executed.Load() {
		t.Error("work submitted after Close should run on the caller")
	}
	if s := pool.Stats(); s.Inline != 1 {
		t.Errorf("Stats().Inline = %d, want 1", s.Inline)
	}
}

func TestWorkerPool_Concurrent(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	const goroutines, perGoroutine = 10, 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			work := make([]func(), perGoroutine)
			for i := range work {
				work[i] = func() { counter.Add(1) }
			}
			pool.ExecuteAll(work)
		}()
	}
	wg.Wait()

	if got := counter.Load(); got != goroutines*perGoroutine {
		t.Errorf("counter = %d, want %d", got, goroutines*perGoroutine)
	}
}

func TestWorkerPool_WorkStealing(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	// One slow item on every queue position; stealing lets idle workers
	// pick up the rest.
	var counter atomic.Int64
	work := make([]func(), 40)
	for i := range work {
		work[i] = func() {
			if i%4 == 0 {
				time.Sleep(2 * time.Millisecond)
			}
			counter.Add(1)
		}
	}
	pool.ExecuteAll(work)

	if got := counter.Load(); got != 40 {
		t.Errorf("counter = %d, want 40", got)
	}
}
